package store

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/mikey/phishsense/internal/core"
)

// JSONLStore keeps scan history as two append-only JSON Lines files:
// a global log of every scan and a session log that is filtered by session id.
type JSONLStore struct {
	mu          sync.Mutex
	globalPath  string
	sessionPath string
	global      *os.File
	session     *os.File
	logger      *zap.Logger
	closed      bool
}

// NewJSONLStore opens (creating if needed) the two log files under dir
func NewJSONLStore(dir, globalFile, sessionFile string, logger *zap.Logger) (*JSONLStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	s := &JSONLStore{
		globalPath:  filepath.Join(dir, globalFile),
		sessionPath: filepath.Join(dir, sessionFile),
		logger:      logger,
	}

	var err error
	if s.global, err = openLog(s.globalPath); err != nil {
		return nil, err
	}
	if s.session, err = openLog(s.sessionPath); err != nil {
		s.global.Close()
		return nil, err
	}

	logger.Info("Opened JSONL scan history",
		zap.String("global_log", s.globalPath),
		zap.String("session_log", s.sessionPath))
	return s, nil
}

func openLog(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open history log %s: %w", path, err)
	}
	return f, nil
}

// Append implements core.ScanStore. Each line is written with a single Write call.
// The global log is written first; a record the session log failed to take stays in
// the global log and is reported as a partial append.
func (s *JSONLStore) Append(ctx context.Context, env *core.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := core.MarshalRecord(env)
	if err != nil {
		return err
	}
	line := append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	if _, err := s.global.Write(line); err != nil {
		return fmt.Errorf("failed to append to global history: %w", err)
	}
	if env.SessionID != "" {
		if _, err := s.session.Write(line); err != nil {
			s.logger.Error("Scan recorded in global history only, session history write failed",
				zap.String("global_log", s.globalPath),
				zap.String("session_log", s.sessionPath),
				zap.String("session_id", env.SessionID),
				zap.Error(err))
			return fmt.Errorf("%w: %v", ErrPartialAppend, err)
		}
	}
	return nil
}

// Recent implements core.ScanStore. It takes the last limit records of the global
// log and drops the unreadable ones, so fewer than limit may be returned.
func (s *JSONLStore) Recent(ctx context.Context, limit int) ([]*core.Envelope, error) {
	if limit <= 0 {
		return []*core.Envelope{}, nil
	}

	ring := make([]logLine, 0, min(limit, 1024))
	next := 0
	err := s.readLines(ctx, s.globalPath, func(l logLine) {
		if len(ring) < limit {
			ring = append(ring, l)
			return
		}
		ring[next] = l
		next = (next + 1) % limit
	})
	if err != nil {
		return nil, err
	}

	envs := make([]*core.Envelope, 0, len(ring))
	for i := 0; i < len(ring); i++ {
		if env, ok := s.decode(s.globalPath, ring[(next+i)%len(ring)]); ok {
			envs = append(envs, env)
		}
	}
	return envs, nil
}

// BySession implements core.ScanStore
func (s *JSONLStore) BySession(ctx context.Context, sessionID string, limit int) ([]*core.Envelope, error) {
	if limit <= 0 {
		return []*core.Envelope{}, nil
	}

	envs := []*core.Envelope{}
	err := s.readLines(ctx, s.sessionPath, func(l logLine) {
		if env, ok := s.decode(s.sessionPath, l); ok && env.SessionID == sessionID {
			envs = append(envs, env)
		}
	})
	if err != nil {
		return nil, err
	}
	return tail(envs, limit), nil
}

type logLine struct {
	n    int
	data []byte
}

// readLines calls visit with every non-blank line of path in order
func (s *JSONLStore) readLines(ctx context.Context, path string, visit func(logLine)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to open history log %s: %w", path, err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	lineNo := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, readErr := reader.ReadBytes('\n')
		if readErr != nil && readErr != io.EOF {
			return fmt.Errorf("failed to read history log %s: %w", path, readErr)
		}
		lineNo++

		if line = bytes.TrimSpace(line); len(line) > 0 {
			visit(logLine{n: lineNo, data: line})
		}
		if readErr == io.EOF {
			return nil
		}
	}
}

func (s *JSONLStore) decode(path string, l logLine) (*core.Envelope, bool) {
	env, err := core.UnmarshalRecord(l.data)
	if err != nil {
		s.logger.Debug("Skipping unreadable history record",
			zap.String("path", path),
			zap.Int("line", l.n),
			zap.Error(err))
		return nil, false
	}
	return env, true
}

// Close implements core.ScanStore
func (s *JSONLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return errors.Join(s.global.Close(), s.session.Close())
}
