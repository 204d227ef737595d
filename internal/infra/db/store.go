package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"coffeeshop/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Store struct {
	DB *gorm.DB
}

// NewStore connects to postgres and migrates the schema. An empty DSN yields a store
// without a database, and callers fall back to the in-memory repository.
func NewStore(cfg config.Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PostgresDSN == "" {
		logger.Warn("POSTGRES_DSN not set; starting in no-db mode")
		return &Store{DB: nil}, nil
	}
	store, err := Open(postgres.Open(cfg.PostgresDSN))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return store, nil
}

// Open wraps any gorm dialector; tests use it with sqlite.
func Open(dialector gorm.Dialector) (*Store, error) {
	gdb, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}
	if err := gdb.AutoMigrate(&DrinkModel{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{DB: gdb}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errDBUnavailable
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
