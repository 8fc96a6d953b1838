package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gatehouse-id/gatehouse/pkg/persistence"
	"github.com/gatehouse-id/gatehouse/pkg/persistence/memory"
	"github.com/gatehouse-id/gatehouse/pkg/persistence/postgresql"
)

// NewPersistence picks the store implementation from the database URL
// scheme. Anything that is not postgres falls back to the in-process memory
// store, which is only meant for development.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(err)
		}

		return store
	default:
		logger.WarnContext(ctx, "No durable database configured, using in-memory store")

		return memory.NewPersistence()
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return ""
	}

	return provider
}
