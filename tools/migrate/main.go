// Command migrate manages the schema with the migrations compiled into this module.
//
//	migrate up | up-by-one | up-to <version> | down | down-to <version> | redo | status | version | reset
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/pressly/goose/v3"
	"github.com/xkdemo/moments/internal/db"
	"github.com/xkdemo/moments/pkg/config"
	"github.com/xkdemo/moments/pkg/logger"
)

const dir = "."

type command struct {
	needsVersion bool
	run          func(ctx context.Context, conn *sql.DB, version int64) error
}

var commands = map[string]command{
	"up": {run: func(ctx context.Context, conn *sql.DB, _ int64) error {
		return goose.UpContext(ctx, conn, dir)
	}},
	"up-by-one": {run: func(ctx context.Context, conn *sql.DB, _ int64) error {
		return goose.UpByOneContext(ctx, conn, dir)
	}},
	"up-to": {needsVersion: true, run: func(ctx context.Context, conn *sql.DB, v int64) error {
		return goose.UpToContext(ctx, conn, dir, v)
	}},
	"down": {run: func(ctx context.Context, conn *sql.DB, _ int64) error {
		return goose.DownContext(ctx, conn, dir)
	}},
	"down-to": {needsVersion: true, run: func(ctx context.Context, conn *sql.DB, v int64) error {
		return goose.DownToContext(ctx, conn, dir, v)
	}},
	"redo": {run: func(ctx context.Context, conn *sql.DB, _ int64) error {
		return goose.RedoContext(ctx, conn, dir)
	}},
	"status": {run: func(ctx context.Context, conn *sql.DB, _ int64) error {
		return goose.StatusContext(ctx, conn, dir)
	}},
	"version": {run: func(ctx context.Context, conn *sql.DB, _ int64) error {
		return goose.VersionContext(ctx, conn, dir)
	}},
	"reset": {run: func(ctx context.Context, conn *sql.DB, _ int64) error {
		return goose.ResetContext(ctx, conn, dir)
	}},
}

func main() {
	log := logger.New(logger.Opts{})
	if err := run(os.Args[1:], log); err != nil {
		log.Error("Migration failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string, log logger.Logger) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: migrate <up|up-by-one|up-to|down|down-to|redo|status|version|reset> [version]")
	}

	name := args[0]
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q", name)
	}

	var version int64
	if cmd.needsVersion {
		if len(args) < 2 {
			return fmt.Errorf("%s needs a target version", name)
		}
		v, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		version = v
	}

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := cmd.run(ctx, conn, version); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	log.Info("Migration command finished", "command", name)
	return nil
}
