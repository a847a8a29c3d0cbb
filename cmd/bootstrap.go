package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"backoffice.GO/api"
	"backoffice.GO/config"
	"backoffice.GO/core/cache"
	"backoffice.GO/service/audit"
)

// app is what every command needs: the database, a logger and the services.
type app struct {
	cfg    *config.Config
	db     *gorm.DB
	logger *zap.Logger
	audit  *audit.Recorder
	deps   *api.Deps
}

// openDB connects and pings the configured database.
func openDB() (*gorm.DB, error) {
	db, err := config.NewDB()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get DB instance: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return db, nil
}

// bootstrap wires config, logger, database, optional Redis and the audit
// sinks into a set of services. Call close when done.
func bootstrap(ctx context.Context) (*app, error) {
	cfg := config.LoadAppConfig()
	logger, err := config.NewLogger()
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	db, err := openDB()
	if err != nil {
		return nil, err
	}

	config.InitRedis()
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := config.PingRedis(pingCtx); err != nil {
		logger.Warn("Redis configured but not reachable, audit fan-out disabled", zap.Error(err))
	}

	var sinks []audit.Sink
	if config.RedisClient != nil && cfg.Audit.RedisChannel != "" {
		sinks = append(sinks, audit.NewRedisSink(config.RedisClient, cfg.Audit.RedisChannel))
	}
	if len(cfg.Audit.KafkaBrokers) > 0 {
		sinks = append(sinks, audit.NewKafkaSink(cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic))
	}
	rec := audit.NewRecorder(db, logger.Named("audit"), sinks...)

	deps, err := api.NewDeps(db, cfg, rec, cache.GetInstance(), logger)
	if err != nil {
		_ = rec.Close()
		return nil, err
	}
	logger.Info("backoffice ready",
		zap.String("env", cfg.Env),
		zap.String("db_driver", config.DBDriver()),
		zap.Int("audit_sinks", len(sinks)),
	)
	return &app{cfg: cfg, db: db, logger: logger, audit: rec, deps: deps}, nil
}

func (a *app) close() {
	if err := a.audit.Close(); err != nil {
		a.logger.Warn("close audit sinks", zap.Error(err))
	}
	closeDB(a.db)
	_ = a.logger.Sync()
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
