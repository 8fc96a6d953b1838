// Package persistence provides the data storage abstraction for flow
// definitions, compiled versions, deployments and authentication sessions.
// Implementations hold no core logic: CRUD plus the few atomic operations
// the engine's invariants require.
package persistence

import (
	"context"
	"time"

	"github.com/gatehouse-id/gatehouse/pkg/models"
)

type Persistence interface {
	Drafts() DraftRepository
	Versions() VersionRepository
	Deployments() DeploymentRepository
	Sessions() SessionRepository
	Actions() ActionRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// DraftRepository stores editable flow drafts.
type DraftRepository interface {
	Save(ctx context.Context, draft *models.FlowDraft) error
	GetByID(ctx context.Context, id string) (*models.FlowDraft, error)
	ListByRealm(ctx context.Context, realmID string) ([]*models.FlowDraft, error)
	Delete(ctx context.Context, id string) error
}

// VersionRepository stores immutable compiled versions. Create assigns no
// number; the caller computes it from MaxVersionNumber and relies on the
// store's uniqueness guarantee on (draft_id, version_number) to serialize
// concurrent publishes of the same draft.
type VersionRepository interface {
	Create(ctx context.Context, version *models.FlowVersion) error
	GetByID(ctx context.Context, id string) (*models.FlowVersion, error)
	ListByDraft(ctx context.Context, draftID string) ([]*models.FlowVersion, error)
	MaxVersionNumber(ctx context.Context, draftID string) (int, error)
}

// DeploymentRepository stores the single mutable pointer per (realm, flow
// type). Upsert must be atomic: readers observe either the old or the new
// pointer, never a partial state.
type DeploymentRepository interface {
	Upsert(ctx context.Context, deployment *models.FlowDeployment) error
	Get(ctx context.Context, realmID string, flowType models.FlowType) (*models.FlowDeployment, error)
}

// SessionRepository stores authentication sessions. Update enforces
// optimistic concurrency on Revision: a stale write returns ErrStaleSession
// and the caller re-fetches.
type SessionRepository interface {
	Create(ctx context.Context, session *models.AuthSession) error
	GetByID(ctx context.Context, id string) (*models.AuthSession, error)
	Update(ctx context.Context, session *models.AuthSession) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// ActionRepository stores single-use continuation tickets. Consume marks a
// ticket consumed exactly once; a second consumption returns
// ErrActionConsumed.
type ActionRepository interface {
	Create(ctx context.Context, action *models.SessionAction) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.SessionAction, error)
	Consume(ctx context.Context, id string, at time.Time) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
