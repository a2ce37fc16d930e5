package db

import (
	"context"
	"fmt"
	"time"

	"github.com/malwarebo/rentops/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

type Options struct {
	PrimaryDSN   string
	ReplicaDSNs  []string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	MaxIdleTime  time.Duration
	LogLevel     logger.LogLevel
}

type DB struct {
	*gorm.DB
}

func (db *DB) GetDB() *gorm.DB {
	return db.DB
}

// CreateDB opens the primary and routes reads to replicas when any are configured.
// Writes, and reads inside a transaction, always hit the primary.
func CreateDB(opts Options) (*DB, error) {
	if opts.LogLevel == 0 {
		opts.LogLevel = logger.Warn
	}
	config := &gorm.Config{
		Logger:         logger.Default.LogMode(opts.LogLevel),
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(opts.PrimaryDSN), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to primary database: %w", err)
	}

	if len(opts.ReplicaDSNs) > 0 {
		resolverConfig := dbresolver.Config{Policy: dbresolver.RandomPolicy{}}
		for _, replicaDSN := range opts.ReplicaDSNs {
			resolverConfig.Replicas = append(resolverConfig.Replicas, postgres.Open(replicaDSN))
		}

		err = db.Use(dbresolver.Register(resolverConfig).
			SetConnMaxIdleTime(opts.MaxIdleTime).
			SetConnMaxLifetime(opts.MaxLifetime).
			SetMaxIdleConns(opts.MaxIdleConns).
			SetMaxOpenConns(opts.MaxOpenConns))
		if err != nil {
			return nil, fmt.Errorf("failed to configure read replicas: %w", err)
		}

		utils.Info(context.Background(), "configured read replicas", map[string]interface{}{
			"replicas": len(opts.ReplicaDSNs),
		})
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opts.MaxLifetime)
	sqlDB.SetConnMaxIdleTime(opts.MaxIdleTime)

	utils.Info(context.Background(), "connected to database", nil)
	return &DB{db}, nil
}

func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
