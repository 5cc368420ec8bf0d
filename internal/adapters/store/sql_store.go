package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikey/phishsense/internal/core"
)

// sqlStore is the database/sql ScanStore shared by the SQLite and MySQL backends.
// Rows are ordered by their auto-increment id, which is the append order.
type sqlStore struct {
	db     *sql.DB
	name   string
	insert string
	retry  RetryConfig
	logger *zap.Logger
	closed atomic.Bool
}

func (s *sqlStore) init(ctx context.Context, schema []string) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create %s history schema: %w", s.name, err)
		}
	}
	return nil
}

// Append implements core.ScanStore. Every append carries a fresh record key, so a
// retried insert whose first attempt already landed does not add a second row.
func (s *sqlStore) Append(ctx context.Context, env *core.Envelope) error {
	return s.appendWithKey(ctx, env, uuid.NewString())
}

func (s *sqlStore) appendWithKey(ctx context.Context, env *core.Envelope, key string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	data, err := core.MarshalRecord(env)
	if err != nil {
		return err
	}

	return withRetry(ctx, s.retry, s.logger, s.name+".append", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, s.insert,
			key, env.SessionID, string(env.Type), env.Verdict.String(), env.Score,
			env.Timestamp.UTC().Format(time.RFC3339Nano), string(data))
		if err != nil {
			return fmt.Errorf("failed to insert scan record: %w", err)
		}
		return nil
	})
}

// Recent implements core.ScanStore
func (s *sqlStore) Recent(ctx context.Context, limit int) ([]*core.Envelope, error) {
	if limit <= 0 {
		return []*core.Envelope{}, nil
	}
	return s.query(ctx, `
		SELECT id, record FROM scan_history
		ORDER BY id DESC
		LIMIT ?
	`, limit)
}

// BySession implements core.ScanStore
func (s *sqlStore) BySession(ctx context.Context, sessionID string, limit int) ([]*core.Envelope, error) {
	if limit <= 0 {
		return []*core.Envelope{}, nil
	}
	return s.query(ctx, `
		SELECT id, record FROM scan_history
		WHERE session_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, sessionID, limit)
}

// query reads (id, record) rows newest first and returns them in append order
func (s *sqlStore) query(ctx context.Context, q string, args ...interface{}) ([]*core.Envelope, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan history: %w", err)
	}
	defer rows.Close()

	envs := []*core.Envelope{}
	for rows.Next() {
		var id int64
		var record string
		if err := rows.Scan(&id, &record); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		env, err := core.UnmarshalRecord([]byte(record))
		if err != nil {
			s.logger.Debug("Skipping unreadable history record",
				zap.String("store", s.name),
				zap.Int64("id", id),
				zap.Error(err))
			continue
		}
		envs = append(envs, env)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scan history: %w", err)
	}
	return reverse(envs), nil
}

// Close implements core.ScanStore
func (s *sqlStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close %s history database: %w", s.name, err)
	}
	return nil
}
