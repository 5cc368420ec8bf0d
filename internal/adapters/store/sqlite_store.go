package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteStore is a SQLite implementation of core.ScanStore
type SQLiteStore struct {
	sqlStore
}

// NewSQLiteStore opens (creating if needed) the history database at dbPath
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// One connection serializes writers and keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{sqlStore{
		db:     db,
		name:   "sqlite",
		insert: `
			INSERT INTO scan_history (record_key, session_id, scan_type, verdict, score, scanned_at, record)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(record_key) DO NOTHING
		`,
		retry:  RetryConfig{MaxRetries: 0},
		logger: logger,
	}}
	err = s.init(context.Background(), []string{
		`CREATE TABLE IF NOT EXISTS scan_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			record_key TEXT UNIQUE,
			session_id TEXT NOT NULL,
			scan_type TEXT NOT NULL,
			verdict TEXT NOT NULL,
			score REAL NOT NULL,
			scanned_at TEXT NOT NULL,
			record TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_history_session ON scan_history(session_id, id)`,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Opened SQLite scan history", zap.String("path", dbPath))
	return s, nil
}
