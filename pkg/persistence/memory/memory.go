// Package memory provides an in-process persistence implementation used for
// development and tests. It honors the same atomicity contracts as the SQL
// implementation: unique (draft_id, version_number), revision-checked
// session updates and single-use ticket consumption.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/gatehouse-id/gatehouse/pkg/models"
	"github.com/gatehouse-id/gatehouse/pkg/persistence"
)

type Persistence struct {
	mu sync.RWMutex

	drafts      map[string]*models.FlowDraft
	versions    map[string]*models.FlowVersion
	deployments map[string]*models.FlowDeployment // keyed realmID + "/" + flowType
	sessions    map[string]*models.AuthSession
	actions     map[string]*models.SessionAction
}

func NewPersistence() *Persistence {
	return &Persistence{
		drafts:      make(map[string]*models.FlowDraft),
		versions:    make(map[string]*models.FlowVersion),
		deployments: make(map[string]*models.FlowDeployment),
		sessions:    make(map[string]*models.AuthSession),
		actions:     make(map[string]*models.SessionAction),
	}
}

func (p *Persistence) Drafts() persistence.DraftRepository           { return &draftRepo{p} }
func (p *Persistence) Versions() persistence.VersionRepository       { return &versionRepo{p} }
func (p *Persistence) Deployments() persistence.DeploymentRepository { return &deploymentRepo{p} }
func (p *Persistence) Sessions() persistence.SessionRepository       { return &sessionRepo{p} }
func (p *Persistence) Actions() persistence.ActionRepository         { return &actionRepo{p} }
func (p *Persistence) HealthCheck(ctx context.Context) error         { return nil }
func (p *Persistence) Close(ctx context.Context) error               { return nil }

type draftRepo struct{ p *Persistence }

func (r *draftRepo) Save(ctx context.Context, draft *models.FlowDraft) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	copied := *draft
	r.p.drafts[draft.ID] = &copied

	return nil
}

func (r *draftRepo) GetByID(ctx context.Context, id string) (*models.FlowDraft, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	draft, ok := r.p.drafts[id]
	if !ok {
		return nil, persistence.ErrDraftNotFound
	}

	copied := *draft

	return &copied, nil
}

func (r *draftRepo) ListByRealm(ctx context.Context, realmID string) ([]*models.FlowDraft, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	out := make([]*models.FlowDraft, 0)

	for _, draft := range r.p.drafts {
		if draft.RealmID == realmID {
			copied := *draft
			out = append(out, &copied)
		}
	}

	return out, nil
}

func (r *draftRepo) Delete(ctx context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, ok := r.p.drafts[id]; !ok {
		return persistence.ErrDraftNotFound
	}

	delete(r.p.drafts, id)

	return nil
}

type versionRepo struct{ p *Persistence }

func (r *versionRepo) Create(ctx context.Context, version *models.FlowVersion) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	for _, existing := range r.p.versions {
		if existing.DraftID == version.DraftID && existing.VersionNumber == version.VersionNumber {
			return persistence.ErrVersionConflict
		}
	}

	copied := *version
	r.p.versions[version.ID] = &copied

	return nil
}

func (r *versionRepo) GetByID(ctx context.Context, id string) (*models.FlowVersion, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	version, ok := r.p.versions[id]
	if !ok {
		return nil, persistence.ErrVersionNotFound
	}

	copied := *version

	return &copied, nil
}

func (r *versionRepo) ListByDraft(ctx context.Context, draftID string) ([]*models.FlowVersion, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	out := make([]*models.FlowVersion, 0)

	for _, version := range r.p.versions {
		if version.DraftID == draftID {
			copied := *version
			out = append(out, &copied)
		}
	}

	return out, nil
}

func (r *versionRepo) MaxVersionNumber(ctx context.Context, draftID string) (int, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	maxNumber := 0

	for _, version := range r.p.versions {
		if version.DraftID == draftID && version.VersionNumber > maxNumber {
			maxNumber = version.VersionNumber
		}
	}

	return maxNumber, nil
}

func deploymentKey(realmID string, flowType models.FlowType) string {
	return realmID + "/" + string(flowType)
}

type deploymentRepo struct{ p *Persistence }

func (r *deploymentRepo) Upsert(ctx context.Context, deployment *models.FlowDeployment) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	copied := *deployment
	r.p.deployments[deploymentKey(deployment.RealmID, deployment.FlowType)] = &copied

	return nil
}

func (r *deploymentRepo) Get(ctx context.Context, realmID string, flowType models.FlowType) (*models.FlowDeployment, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	deployment, ok := r.p.deployments[deploymentKey(realmID, flowType)]
	if !ok {
		return nil, persistence.ErrDeploymentNotFound
	}

	copied := *deployment

	return &copied, nil
}

type sessionRepo struct{ p *Persistence }

func (r *sessionRepo) Create(ctx context.Context, session *models.AuthSession) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	r.p.sessions[session.ID] = copySession(session)

	return nil
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*models.AuthSession, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	session, ok := r.p.sessions[id]
	if !ok {
		return nil, persistence.ErrSessionNotFound
	}

	return copySession(session), nil
}

// Update applies the write only if the caller read the latest revision.
func (r *sessionRepo) Update(ctx context.Context, session *models.AuthSession) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	stored, ok := r.p.sessions[session.ID]
	if !ok {
		return persistence.ErrSessionNotFound
	}

	if stored.Revision != session.Revision {
		return persistence.ErrStaleSession
	}

	session.Revision++
	session.UpdatedAt = time.Now().UTC()
	r.p.sessions[session.ID] = copySession(session)

	return nil
}

func (r *sessionRepo) Delete(ctx context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, ok := r.p.sessions[id]; !ok {
		return persistence.ErrSessionNotFound
	}

	delete(r.p.sessions, id)

	return nil
}

func (r *sessionRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	var count int64

	for id, session := range r.p.sessions {
		if session.ExpiresAt.Before(before) {
			delete(r.p.sessions, id)
			count++
		}
	}

	return count, nil
}

func copySession(session *models.AuthSession) *models.AuthSession {
	copied := *session
	copied.Context = maps.Clone(session.Context)

	return &copied
}

type actionRepo struct{ p *Persistence }

func (r *actionRepo) Create(ctx context.Context, action *models.SessionAction) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	copied := *action
	copied.Payload = maps.Clone(action.Payload)
	r.p.actions[action.ID] = &copied

	return nil
}

func (r *actionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*models.SessionAction, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	for _, action := range r.p.actions {
		if action.TokenHash == tokenHash {
			copied := *action
			copied.Payload = maps.Clone(action.Payload)

			return &copied, nil
		}
	}

	return nil, persistence.ErrActionNotFound
}

// Consume transitions ConsumedAt from nil to a timestamp exactly once.
func (r *actionRepo) Consume(ctx context.Context, id string, at time.Time) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	action, ok := r.p.actions[id]
	if !ok {
		return persistence.ErrActionNotFound
	}

	if action.ConsumedAt != nil {
		return persistence.ErrActionConsumed
	}

	consumedAt := at
	action.ConsumedAt = &consumedAt
	action.UpdatedAt = at

	return nil
}

func (r *actionRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	var count int64

	for id, action := range r.p.actions {
		if action.ExpiresAt.Before(before) || action.ConsumedAt != nil {
			delete(r.p.actions, id)
			count++
		}
	}

	return count, nil
}
