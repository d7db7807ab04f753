package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/chatly/chatly/internal/app"
	"github.com/chatly/chatly/internal/config"
	"github.com/chatly/chatly/internal/log"
)

// runServe loads configuration, wires the application, and serves until
// interrupted.
func runServe(logger log.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting chatly", "version", AppVersion)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	if err := a.Server.Run(ctx); err != nil {
		return fmt.Errorf("running server: %w", err)
	}
	return nil
}
