package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLStore is a MySQL implementation of core.ScanStore
type MySQLStore struct {
	sqlStore
}

// NewMySQLStore connects to MySQL and creates the history table if needed
func NewMySQLStore(ctx context.Context, dsn string, retryCfg RetryConfig, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	s := &MySQLStore{sqlStore{
		db:     db,
		name:   "mysql",
		insert: `
			INSERT INTO scan_history (record_key, session_id, scan_type, verdict, score, scanned_at, record)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE id = id
		`,
		retry:  retryCfg,
		logger: logger,
	}}

	// Test the connection
	if err := withRetry(ctx, retryCfg, logger, "mysql.ping", db.PingContext); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	err = s.init(ctx, []string{
		`CREATE TABLE IF NOT EXISTS scan_history (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			record_key CHAR(36) NULL,
			session_id VARCHAR(255) NOT NULL,
			scan_type VARCHAR(16) NOT NULL,
			verdict VARCHAR(16) NOT NULL,
			score DOUBLE NOT NULL,
			scanned_at VARCHAR(40) NOT NULL,
			record MEDIUMTEXT NOT NULL,
			UNIQUE KEY uq_scan_history_record_key (record_key),
			INDEX idx_scan_history_session (session_id, id)
		)`,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Connected to MySQL scan history")
	return s, nil
}
