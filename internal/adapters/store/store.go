package store

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/mikey/phishsense/internal/core"
)

var (
	// ErrStoreClosed is returned by every operation after Close
	ErrStoreClosed = errors.New("scan store is closed")

	// ErrPartialAppend means the record reached the global history but not the session history
	ErrPartialAppend = errors.New("scan recorded in global history only")
)

// RetryConfig controls how networked stores retry failed writes
type RetryConfig struct {
	MaxRetries uint64
	BaseDelay  time.Duration
}

// DefaultRetryConfig returns the retry settings used when none are configured
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, BaseDelay: 100 * time.Millisecond}
}

// withRetry runs task with Fibonacci backoff. Context errors are not retried.
func withRetry(ctx context.Context, cfg RetryConfig, logger *zap.Logger, op string, task func(ctx context.Context) error) error {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultRetryConfig().BaseDelay
	}
	b := retry.WithMaxRetries(cfg.MaxRetries, retry.NewFibonacci(cfg.BaseDelay))
	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := task(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrStoreClosed) {
			return err
		}
		logger.Warn("Scan store operation failed, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Error(err))
		return retry.RetryableError(err)
	})
}

// tail returns the last limit envelopes; limit <= 0 yields an empty slice
func tail(envs []*core.Envelope, limit int) []*core.Envelope {
	if limit <= 0 {
		return []*core.Envelope{}
	}
	if len(envs) > limit {
		envs = envs[len(envs)-limit:]
	}
	return envs
}

// reverse flips envelopes read newest first back into append order
func reverse(envs []*core.Envelope) []*core.Envelope {
	for i, j := 0, len(envs)-1; i < j; i, j = i+1, j-1 {
		envs[i], envs[j] = envs[j], envs[i]
	}
	return envs
}
