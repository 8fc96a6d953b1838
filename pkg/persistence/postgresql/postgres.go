// Package postgresql provides the PostgreSQL persistence implementation for
// flow definitions, versions, deployments and authentication sessions.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/gatehouse-id/gatehouse/pkg/persistence"
	"github.com/gatehouse-id/gatehouse/pkg/persistence/sqlbase"
)

type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	drafts      *DraftRepository
	versions    *VersionRepository
	deployments *DeploymentRepository
	sessions    *SessionRepository
	actions     *ActionRepository
}

// NewPersistence connects, runs migrations and wires the repositories.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:          database,
		logger:      logger,
		drafts:      NewDraftRepository(database, logger),
		versions:    NewVersionRepository(database, logger),
		deployments: NewDeploymentRepository(database, logger),
		sessions:    NewSessionRepository(database, logger),
		actions:     NewActionRepository(database, logger),
	}, nil
}

func (p *Persistence) Drafts() persistence.DraftRepository { return p.drafts }

func (p *Persistence) Versions() persistence.VersionRepository { return p.versions }

func (p *Persistence) Deployments() persistence.DeploymentRepository { return p.deployments }

func (p *Persistence) Sessions() persistence.SessionRepository { return p.sessions }

func (p *Persistence) Actions() persistence.ActionRepository { return p.actions }

func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
