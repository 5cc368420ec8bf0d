package store

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mikey/phishsense/internal/core"
)

// MemoryStore is an in-process ScanStore. Records are kept in encoded form so
// callers can never mutate stored history through a returned pointer.
type MemoryStore struct {
	mu      sync.RWMutex
	records [][]byte
	logger  *zap.Logger
	closed  bool
}

// NewMemoryStore creates an empty in-memory scan store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{logger: logger}
}

// Append implements core.ScanStore
func (s *MemoryStore) Append(ctx context.Context, env *core.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := core.MarshalRecord(env)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.records = append(s.records, data)
	return nil
}

// Recent implements core.ScanStore
func (s *MemoryStore) Recent(ctx context.Context, limit int) ([]*core.Envelope, error) {
	return s.collect(ctx, limit, nil)
}

// BySession implements core.ScanStore
func (s *MemoryStore) BySession(ctx context.Context, sessionID string, limit int) ([]*core.Envelope, error) {
	return s.collect(ctx, limit, func(env *core.Envelope) bool {
		return env.SessionID == sessionID
	})
}

// collect walks the records newest first until limit matches are found
func (s *MemoryStore) collect(ctx context.Context, limit int, keep func(*core.Envelope) bool) ([]*core.Envelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []*core.Envelope{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	envs := []*core.Envelope{}
	for i := len(s.records) - 1; i >= 0 && len(envs) < limit; i-- {
		env, err := core.UnmarshalRecord(s.records[i])
		if err != nil {
			s.logger.Debug("Skipping unreadable history record", zap.Error(err))
			continue
		}
		if keep == nil || keep(env) {
			envs = append(envs, env)
		}
	}
	return reverse(envs), nil
}

// Len returns the number of stored records
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close implements core.ScanStore
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.records = nil
	return nil
}
