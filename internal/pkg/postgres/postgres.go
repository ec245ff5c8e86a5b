// Package postgres opens the subscriber database and maps its errors.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const maxBackoff = 16 * time.Second

// Config describes the pool and how hard Connect tries to reach the server.
type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// ConnectAttempts is the number of pool creations tried; values below 1 mean one.
	ConnectAttempts int
	// ApplicationName is reported to the server as application_name when set.
	ApplicationName string
	Logger          *slog.Logger

	// backoff overrides the delay before the next attempt.
	backoff func(attempt int) time.Duration
}

// Connect returns a pool whose first connection answered a ping.
// Failed attempts are retried with exponential backoff until ctx is done
// or ConnectAttempts is used up.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	if cfg.ApplicationName != "" {
		poolConfig.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	backoff := cfg.backoff
	if backoff == nil {
		backoff = exponentialBackoff
	}
	attempts := max(cfg.ConnectAttempts, 1)

	var lastErr error
	for attempt := 1; ; attempt++ {
		pool, err := open(ctx, poolConfig)
		if err == nil {
			logger.Info("database connected", "attempt", attempt)
			return pool, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		wait := backoff(attempt)
		logger.Warn("database not ready",
			"attempt", attempt,
			"max_attempts", attempts,
			"retry_in", wait,
			"error", err,
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("connect to database: %w", errors.Join(ctx.Err(), lastErr))
		case <-timer.C:
		}
	}

	return nil, fmt.Errorf("connect to database after %d attempts: %w", attempts, lastErr)
}

// open builds the pool and pings it, closing the pool when the ping fails.
func open(ctx context.Context, poolConfig *pgxpool.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// exponentialBackoff doubles from one second and stops growing at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	return min(time.Duration(1<<(attempt-1))*time.Second, maxBackoff)
}
