package factory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/phishsense/internal/adapters/store"
	"github.com/mikey/phishsense/internal/config"
	"github.com/mikey/phishsense/internal/core"
)

// StoreFactory creates scan history stores based on configuration
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateScanStore creates a scan store based on the configuration
func (f *StoreFactory) CreateScanStore(ctx context.Context) (core.ScanStore, error) {
	hc := f.cfg.GetHistory()
	retryCfg := store.RetryConfig{
		MaxRetries: uint64(max(hc.Retry.MaxRetries, 0)),
		BaseDelay:  hc.Retry.BaseDelay,
	}

	switch hc.Type {
	case "jsonl", "":
		return store.NewJSONLStore(hc.Dir, hc.GlobalFile, hc.SessionFile, f.logger)
	case "memory":
		return store.NewMemoryStore(f.logger), nil
	case "sqlite":
		return store.NewSQLiteStore(hc.SQLitePath, f.logger)
	case "mysql":
		return store.NewMySQLStore(ctx, hc.MySQLDSN, retryCfg, f.logger)
	case "redis":
		return store.NewRedisStore(ctx, store.RedisOptions{
			Address:   hc.Redis.Address,
			Password:  hc.Redis.Password,
			DB:        hc.Redis.DB,
			KeyPrefix: hc.Redis.KeyPrefix,
		}, retryCfg, f.logger)
	default:
		return nil, fmt.Errorf("unsupported history type: %s", hc.Type)
	}
}
