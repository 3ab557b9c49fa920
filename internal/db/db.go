package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	_ "github.com/xkdemo/moments/internal/migrations"
	"github.com/xkdemo/moments/pkg/config"
	"github.com/xkdemo/moments/pkg/logger"
	"github.com/xkdemo/moments/pkg/retry"
)

// Open returns a database/sql handle for goose, pinged and with the dialect set.
// The caller closes it.
func Open(ctx context.Context, cfg *config.Config, log logger.Logger) (*sql.DB, error) {
	conn, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = retry.Do(ctx, log, "postgres ping", func() error {
		return conn.PingContext(ctx)
	}, retry.DefaultConfig())
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set dialect: %w", err)
	}
	return conn, nil
}

// Migrate applies the Go migrations registered by internal/migrations.
func Migrate(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	conn, err := Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Migrations are compiled in; the directory only scopes them.
	if err := goose.UpContext(ctx, conn, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, conn)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	log.Info("Database migrations applied", "version", version)
	return nil
}
