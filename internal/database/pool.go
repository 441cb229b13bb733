// Package database opens the relational store and manages its connection
// pool. It is internal and not part of the public API.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/agentverse/agentverse/config"
)

// Open connects to the configured database and applies the pool limits.
func Open(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	case "mysql":
		dialector = mysql.Open(cfg.DSN())
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	logger.Info("database connected",
		zap.String("driver", cfg.Driver),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
	)

	return db, nil
}

// PoolManager wraps the pool for health checks and shutdown.
type PoolManager struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
}

// NewPoolManager wraps an opened gorm.DB.
func NewPoolManager(db *gorm.DB, logger *zap.Logger) (*PoolManager, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	return &PoolManager{
		db:     db,
		sqlDB:  sqlDB,
		logger: logger.With(zap.String("component", "db_pool")),
	}, nil
}

// DB returns the underlying gorm handle.
func (pm *PoolManager) DB() *gorm.DB {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.db
}

// Ping verifies the connection.
func (pm *PoolManager) Ping(ctx context.Context) error {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	if pm.closed {
		return errors.New("pool is closed")
	}
	return pm.sqlDB.PingContext(ctx)
}

// Stats returns the driver's pool counters.
func (pm *PoolManager) Stats() sql.DBStats {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.sqlDB.Stats()
}

// Close shuts the pool down. Subsequent calls are no-ops.
func (pm *PoolManager) Close() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return nil
	}
	pm.closed = true
	pm.logger.Info("closing database pool")
	return pm.sqlDB.Close()
}

// StatsLoop publishes pool gauges to publish on every tick until ctx is
// cancelled. It is started by the server when metrics are enabled.
func (pm *PoolManager) StatsLoop(ctx context.Context, interval time.Duration, publish func(sql.DBStats)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pm.mu.RLock()
			closed := pm.closed
			pm.mu.RUnlock()
			if closed {
				return
			}
			publish(pm.Stats())
		}
	}
}
