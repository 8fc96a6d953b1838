package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gatehouse-id/gatehouse/pkg/persistence"
)

// startSweeper schedules periodic pruning of expired sessions and spent
// continuation tickets. Rows are kept briefly past expiry so late callers
// get a "session expired" answer instead of "not found".
func startSweeper(logger *slog.Logger, store persistence.Persistence, spec string, retention time.Duration) (*cron.Cron, error) {
	sweeperLogger := logger.With("module", "sweeper")
	scheduler := cron.New()

	_, err := scheduler.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		cutoff := time.Now().UTC().Add(-retention)

		sessions, err := store.Sessions().DeleteExpired(ctx, cutoff)
		if err != nil {
			sweeperLogger.ErrorContext(ctx, "Failed to prune expired sessions", "error", err)
		}

		actions, err := store.Actions().DeleteExpired(ctx, cutoff)
		if err != nil {
			sweeperLogger.ErrorContext(ctx, "Failed to prune expired actions", "error", err)
		}

		if sessions > 0 || actions > 0 {
			sweeperLogger.Info("Pruned expired rows", "sessions", sessions, "actions", actions)
		}
	})
	if err != nil {
		return nil, err
	}

	scheduler.Start()

	return scheduler, nil
}
