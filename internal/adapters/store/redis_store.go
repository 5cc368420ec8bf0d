package store

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mikey/phishsense/internal/core"
)

// RedisOptions configures the Redis scan store
type RedisOptions struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisStore keeps scan history in two Redis lists: one global and one per session
type RedisStore struct {
	client *redis.Client
	prefix string
	retry  RetryConfig
	logger *zap.Logger
	closed atomic.Bool
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(ctx context.Context, opts RedisOptions, retryCfg RetryConfig, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return newRedisStore(ctx, client, opts.KeyPrefix, retryCfg, logger)
}

func newRedisStore(ctx context.Context, client *redis.Client, prefix string, retryCfg RetryConfig, logger *zap.Logger) (*RedisStore, error) {
	if prefix == "" {
		prefix = "phishsense"
	}
	s := &RedisStore{client: client, prefix: prefix, retry: retryCfg, logger: logger}

	err := withRetry(ctx, retryCfg, logger, "redis.ping", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis scan history",
		zap.String("address", client.Options().Addr),
		zap.String("key_prefix", prefix))
	return s, nil
}

func (s *RedisStore) globalKey() string {
	return s.prefix + ":scans"
}

func (s *RedisStore) sessionKey(sessionID string) string {
	return s.prefix + ":session:" + sessionID
}

// appendScript pushes a record onto the global list and, when a session key is
// given, the session list. KEYS[1] marks the record key as applied so a retried
// append whose first attempt already ran is a no-op.
var appendScript = redis.NewScript(`
if redis.call('SET', KEYS[1], '1', 'NX', 'EX', ARGV[2]) then
	redis.call('RPUSH', KEYS[2], ARGV[1])
	if #KEYS > 2 then
		redis.call('RPUSH', KEYS[3], ARGV[1])
	end
	return 1
end
return 0
`)

// appliedTTL is how long an applied record key is remembered
const appliedTTL = time.Hour

// Append implements core.ScanStore. Both lists are pushed atomically by one script.
func (s *RedisStore) Append(ctx context.Context, env *core.Envelope) error {
	return s.appendWithKey(ctx, env, uuid.NewString())
}

func (s *RedisStore) appendWithKey(ctx context.Context, env *core.Envelope, key string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	data, err := core.MarshalRecord(env)
	if err != nil {
		return err
	}

	keys := []string{s.prefix + ":applied:" + key, s.globalKey()}
	if env.SessionID != "" {
		keys = append(keys, s.sessionKey(env.SessionID))
	}

	return withRetry(ctx, s.retry, s.logger, "redis.append", func(ctx context.Context) error {
		err := appendScript.Run(ctx, s.client, keys, data, int(appliedTTL/time.Second)).Err()
		if err != nil {
			return fmt.Errorf("failed to push scan record: %w", err)
		}
		return nil
	})
}

// Recent implements core.ScanStore
func (s *RedisStore) Recent(ctx context.Context, limit int) ([]*core.Envelope, error) {
	return s.lastN(ctx, s.globalKey(), limit)
}

// BySession implements core.ScanStore
func (s *RedisStore) BySession(ctx context.Context, sessionID string, limit int) ([]*core.Envelope, error) {
	return s.lastN(ctx, s.sessionKey(sessionID), limit)
}

func (s *RedisStore) lastN(ctx context.Context, key string, limit int) ([]*core.Envelope, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	if limit <= 0 {
		return []*core.Envelope{}, nil
	}

	var values []string
	err := withRetry(ctx, s.retry, s.logger, "redis.range", func(ctx context.Context) error {
		var err error
		values, err = s.client.LRange(ctx, key, int64(-limit), -1).Result()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read scan history: %w", err)
	}

	envs := make([]*core.Envelope, 0, len(values))
	for _, v := range values {
		env, err := core.UnmarshalRecord([]byte(v))
		if err != nil {
			s.logger.Debug("Skipping unreadable history record",
				zap.String("key", key),
				zap.Error(err))
			continue
		}
		envs = append(envs, env)
	}
	return envs, nil
}

// Close implements core.ScanStore
func (s *RedisStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.client.Close()
}
