package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xkdemo/moments/internal/app"
	"github.com/xkdemo/moments/pkg/logger"
	"go.uber.org/fx"
)

const shutdownTimeout = 15 * time.Second

func main() {
	log := logger.New(logger.Opts{})

	application := fx.New(
		fx.Logger(log),
		app.Module,
	)

	// Start the application
	if err := application.Start(context.Background()); err != nil {
		log.Error("Failed to start application", "error", err)
		os.Exit(1)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Shutting down", "signal", sig.String())

	// Gracefully shutdown the application; the HTTP server drains first, then
	// background refreshes stop, then the pool closes.
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := application.Stop(ctx); err != nil {
		log.Error("Failed to stop application", "error", err)
		os.Exit(1)
	}
}
