// Package flow manages the draft, version and deployment lifecycle of
// authentication flows.
package flow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/gatehouse-id/gatehouse/pkg/compiler"
	"github.com/gatehouse-id/gatehouse/pkg/eventbus"
	"github.com/gatehouse-id/gatehouse/pkg/events"
	"github.com/gatehouse-id/gatehouse/pkg/models"
	"github.com/gatehouse-id/gatehouse/pkg/persistence"
	"github.com/gatehouse-id/gatehouse/pkg/registry"
)

// publishRetries bounds how many times Publish re-reads the max version
// number after losing a numbering race to a concurrent publish.
const publishRetries = 3

// Manager owns the Draft -> Version -> Deployment progression. Drafts are
// freely editable, versions are immutable compiled snapshots, and the
// deployment pointer is the only thing that affects live traffic.
type Manager struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	validator   *validator.Validate
	logger      *slog.Logger
}

func NewManager(
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		persistence: persistence,
		registry:    registry,
		eventBus:    eventBus,
		validator:   validator.New(),
		logger:      logger.With("module", "flow_manager"),
	}
}

// CreateDraft validates and stores a new editable draft. The graph is not
// compiled here; drafts may be structurally broken while being edited.
func (m *Manager) CreateDraft(ctx context.Context, draft *models.FlowDraft) (*models.FlowDraft, error) {
	if draft.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate draft id: %w", err)
		}

		draft.ID = id.String()
	}

	now := time.Now().UTC()
	draft.CreatedAt = now
	draft.UpdatedAt = now

	if draft.Graph == nil {
		draft.Graph = []byte(`{"nodes":[],"edges":[]}`)
	}

	err := m.validator.Struct(draft)
	if err != nil {
		return nil, fmt.Errorf("invalid draft: %w", err)
	}

	err = m.persistence.Drafts().Save(ctx, draft)
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "Draft created",
		"draft_id", draft.ID, "realm_id", draft.RealmID, "flow_type", draft.FlowType)

	return draft, nil
}

// UpdateDraft applies free-form edits to an existing draft. Name,
// description and graph are replaceable; realm and flow type are fixed at
// creation.
func (m *Manager) UpdateDraft(ctx context.Context, draft *models.FlowDraft) (*models.FlowDraft, error) {
	current, err := m.persistence.Drafts().GetByID(ctx, draft.ID)
	if err != nil {
		return nil, err
	}

	current.Name = draft.Name
	current.Description = draft.Description

	if draft.Graph != nil {
		current.Graph = draft.Graph
	}

	current.UpdatedAt = time.Now().UTC()

	err = m.validator.Struct(current)
	if err != nil {
		return nil, fmt.Errorf("invalid draft: %w", err)
	}

	err = m.persistence.Drafts().Save(ctx, current)
	if err != nil {
		return nil, err
	}

	return current, nil
}

func (m *Manager) GetDraft(ctx context.Context, id string) (*models.FlowDraft, error) {
	return m.persistence.Drafts().GetByID(ctx, id)
}

func (m *Manager) ListDrafts(ctx context.Context, realmID string) ([]*models.FlowDraft, error) {
	return m.persistence.Drafts().ListByRealm(ctx, realmID)
}

func (m *Manager) DeleteDraft(ctx context.Context, id string) error {
	return m.persistence.Drafts().Delete(ctx, id)
}

// Publish compiles the draft's current graph and persists the result as a
// new immutable version. On any compilation failure nothing is written.
// Version numbers are strictly increasing per draft, starting at 1.
func (m *Manager) Publish(ctx context.Context, draftID string) (*models.FlowVersion, error) {
	draft, err := m.persistence.Drafts().GetByID(ctx, draftID)
	if err != nil {
		return nil, err
	}

	plan, err := compiler.Compile(draft.Graph, m.registry)
	if err != nil {
		return nil, err
	}

	artifact, err := compiler.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize execution plan: %w", err)
	}

	sum := sha256.Sum256(artifact)
	checksum := hex.EncodeToString(sum[:])

	var version *models.FlowVersion

	for attempt := 0; ; attempt++ {
		maxNumber, err := m.persistence.Versions().MaxVersionNumber(ctx, draftID)
		if err != nil {
			return nil, err
		}

		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate version id: %w", err)
		}

		version = &models.FlowVersion{
			ID:            id.String(),
			DraftID:       draft.ID,
			RealmID:       draft.RealmID,
			FlowType:      draft.FlowType,
			VersionNumber: maxNumber + 1,
			Artifact:      artifact,
			Checksum:      checksum,
			CreatedAt:     time.Now().UTC(),
		}

		err = m.persistence.Versions().Create(ctx, version)
		if err == nil {
			break
		}

		if errors.Is(err, persistence.ErrVersionConflict) && attempt < publishRetries {
			// A concurrent publish of the same draft claimed the
			// number; recompute and take the next one.
			continue
		}

		return nil, err
	}

	m.logger.InfoContext(ctx, "Draft published",
		"draft_id", draft.ID, "version_id", version.ID,
		"version_number", version.VersionNumber, "checksum", checksum)

	m.publish(ctx, draft.RealmID, &events.FlowPublished{
		BaseEvent: m.baseEvent(events.FlowPublishedEvent, draft.RealmID),
		DraftID:   draft.ID,
		VersionID: version.ID,

		VersionNumber: version.VersionNumber,
		Checksum:      version.Checksum,
	})

	return version, nil
}

func (m *Manager) GetVersion(ctx context.Context, id string) (*models.FlowVersion, error) {
	return m.persistence.Versions().GetByID(ctx, id)
}

func (m *Manager) ListVersions(ctx context.Context, draftID string) ([]*models.FlowVersion, error) {
	return m.persistence.Versions().ListByDraft(ctx, draftID)
}

// Deploy atomically points a (realm, flow type) pair at a version. The
// version must exist and belong to the same realm and flow type. In-flight
// sessions are unaffected; only new sessions pick up the pointer.
func (m *Manager) Deploy(ctx context.Context, realmID string, flowType models.FlowType, versionID string) (*models.FlowDeployment, error) {
	version, err := m.persistence.Versions().GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}

	if version.RealmID != realmID {
		return nil, fmt.Errorf("version %s does not belong to realm %s", versionID, realmID)
	}

	if version.FlowType != flowType {
		return nil, fmt.Errorf("version %s is a %s flow, not %s", versionID, version.FlowType, flowType)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate deployment id: %w", err)
	}

	deployment := &models.FlowDeployment{
		ID:              id.String(),
		RealmID:         realmID,
		FlowType:        flowType,
		ActiveVersionID: versionID,
		UpdatedAt:       time.Now().UTC(),
	}

	err = m.persistence.Deployments().Upsert(ctx, deployment)
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "Version deployed",
		"realm_id", realmID, "flow_type", flowType, "version_id", versionID)

	m.publish(ctx, realmID, &events.FlowDeployed{
		BaseEvent: m.baseEvent(events.FlowDeployedEvent, realmID),
		FlowType:  string(flowType),
		VersionID: versionID,
	})

	return deployment, nil
}

func (m *Manager) GetDeployment(ctx context.Context, realmID string, flowType models.FlowType) (*models.FlowDeployment, error) {
	return m.persistence.Deployments().Get(ctx, realmID, flowType)
}

// ResolveActivePlan follows the deployment pointer to the version that
// serves new sessions and deserializes its plan.
func (m *Manager) ResolveActivePlan(ctx context.Context, realmID string, flowType models.FlowType) (*models.FlowVersion, *models.ExecutionPlan, error) {
	deployment, err := m.persistence.Deployments().Get(ctx, realmID, flowType)
	if err != nil {
		return nil, nil, err
	}

	version, err := m.persistence.Versions().GetByID(ctx, deployment.ActiveVersionID)
	if err != nil {
		return nil, nil, err
	}

	plan, err := version.Plan()
	if err != nil {
		return nil, nil, fmt.Errorf("corrupt execution artifact in version %s: %w", version.ID, err)
	}

	return version, plan, nil
}

func (m *Manager) baseEvent(eventType events.EventType, realmID string) events.BaseEvent {
	return events.BaseEvent{
		ID:        m.eventBus.GenerateID(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		RealmID:   realmID,
	}
}

func (m *Manager) publish(ctx context.Context, key string, event events.Event) {
	err := m.eventBus.Publish(ctx, key, event)
	if err != nil {
		m.logger.WarnContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}
