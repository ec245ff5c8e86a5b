// Command server runs the newsletter subscription service.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bissquit/newsletter-garden/internal/app"
	"github.com/bissquit/newsletter-garden/internal/config"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := config.LoadDotenv(); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	configPath := flag.String("config", config.ConfigPathFromEnv(), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	application, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Run()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			slog.Error("server stopped", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := application.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("shutdown failed", "error", err)
		os.Exit(1)
	}
}
