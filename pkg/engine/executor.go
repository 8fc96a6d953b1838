// Package engine runs compiled authentication flows as suspendable session
// state machines. One executor pass handles one incoming request: it loads
// the session, drives node lifecycle phases until the flow suspends or
// terminates, and commits the session exactly once.
package engine

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/gatehouse-id/gatehouse/pkg/eventbus"
	"github.com/gatehouse-id/gatehouse/pkg/events"
	"github.com/gatehouse-id/gatehouse/pkg/models"
	"github.com/gatehouse-id/gatehouse/pkg/otelhelper"
	"github.com/gatehouse-id/gatehouse/pkg/persistence"
	"github.com/gatehouse-id/gatehouse/pkg/protocol"
	"github.com/gatehouse-id/gatehouse/pkg/registry"
	"github.com/gatehouse-id/gatehouse/pkg/sessionlock"
)

// maxHops bounds the automatic Continue loop within a single pass. A graph
// cycle that slipped past static validation trips this instead of spinning.
const maxHops = 100

const (
	defaultSessionTTL = 30 * time.Minute
	defaultActionTTL  = 15 * time.Minute
	lockTTL           = 15 * time.Second
)

// ResultStatus tells the caller how to render an executor pass.
type ResultStatus string

const (
	ResultChallenge ResultStatus = "challenge" // Render Screen with Challenge data
	ResultPending   ResultStatus = "pending"   // Awaiting an external event via ActionToken
	ResultRejected  ResultStatus = "rejected"  // Re-render the same screen with Error
	ResultCompleted ResultStatus = "completed" // Authenticated; Token is set
	ResultFailed    ResultStatus = "failed"    // Terminal denial with Reason
)

// Result is the caller-visible product of one executor pass.
type Result struct {
	SessionID string         `json:"session_id"`
	Status    ResultStatus   `json:"status"`
	Screen    string         `json:"screen,omitempty"`
	Challenge map[string]any `json:"challenge,omitempty"`
	Error     string         `json:"error,omitempty"`

	// Pending only. ActionToken is the plaintext continuation token,
	// returned exactly once; the store keeps only its hash.
	ActionType  string `json:"action_type,omitempty"`
	ActionToken string `json:"action_token,omitempty"`

	Token  *protocol.IssuedToken `json:"token,omitempty"`
	Reason string                `json:"reason,omitempty"`
}

type Executor struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	tokens      protocol.TokenIssuer
	locker      sessionlock.Locker
	tracer      trace.Tracer
	logger      *slog.Logger

	// SessionTTL bounds how long a session may stay active.
	SessionTTL time.Duration

	planMu sync.RWMutex
	plans  map[string]*models.ExecutionPlan
}

func NewExecutor(
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
	tokens protocol.TokenIssuer,
	locker sessionlock.Locker,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Executor {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("engine")
	}

	return &Executor{
		persistence: persistence,
		registry:    registry,
		eventBus:    eventBus,
		tokens:      tokens,
		locker:      locker,
		tracer:      tracer,
		logger:      logger.With("module", "engine"),
		SessionTTL:  defaultSessionTTL,
		plans:       make(map[string]*models.ExecutionPlan),
	}
}

// Start creates a session against the realm's active deployment and drives
// the flow from its entry point until it suspends or terminates. The
// session pins the version it started on; later redeploys never affect it.
// Top-level input keys seed the session context, so first-pass nodes such
// as the SSO cookie check can read what the login request carried.
func (e *Executor) Start(ctx context.Context, realmID string, flowType models.FlowType, input map[string]any) (*Result, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.start",
		attribute.String(otelhelper.RealmIDKey, realmID),
		attribute.String(otelhelper.FlowTypeKey, string(flowType)))
	defer span.End()

	deployment, err := e.persistence.Deployments().Get(ctx, realmID, flowType)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	plan, err := e.planFor(ctx, deployment.ActiveVersionID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	sessionContext := make(map[string]any, len(input))
	for k, v := range input {
		sessionContext[k] = v
	}

	now := time.Now().UTC()
	session := &models.AuthSession{
		ID:            id.String(),
		RealmID:       realmID,
		FlowVersionID: deployment.ActiveVersionID,
		CurrentNodeID: plan.StartNodeID,
		Context:       sessionContext,
		Status:        models.SessionStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
		ExpiresAt:     now.Add(e.SessionTTL),
	}

	err = e.persistence.Sessions().Create(ctx, session)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.SessionIDKey, session.ID))

	e.publish(ctx, session.RealmID, &events.SessionStarted{
		BaseEvent:     e.baseEvent(events.SessionStartedEvent, session.RealmID),
		SessionID:     session.ID,
		FlowType:      string(flowType),
		FlowVersionID: session.FlowVersionID,
	})

	release, err := e.locker.Acquire(ctx, session.ID, lockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	current := plan.Node(session.CurrentNodeID)
	if current == nil {
		return nil, e.invariant(span, session, plan.StartNodeID, "start node missing from plan")
	}

	instance, outcome, err := e.enter(ctx, session, current)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	return e.run(ctx, span, plan, session, current, instance, outcome)
}

// Submit delivers caller input to the node the session is paused on.
func (e *Executor) Submit(ctx context.Context, sessionID string, input map[string]any) (*Result, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.submit",
		attribute.String(otelhelper.SessionIDKey, sessionID))
	defer span.End()

	release, err := e.locker.Acquire(ctx, sessionID, lockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	session, plan, current, err := e.loadActive(ctx, sessionID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	return e.dispatchInput(ctx, span, plan, session, current, input)
}

// Resume consumes a single-use continuation ticket and delivers its payload
// to the suspended node. The plaintext token is hashed before lookup; a
// ticket is consumed exactly once even under concurrent resumption.
func (e *Executor) Resume(ctx context.Context, token string, input map[string]any) (*Result, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.resume")
	defer span.End()

	sum := sha256.Sum256([]byte(token))

	action, err := e.persistence.Actions().GetByTokenHash(ctx, hex.EncodeToString(sum[:]))
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(
		attribute.String(otelhelper.SessionIDKey, action.SessionID),
		attribute.String(otelhelper.ActionTypeKey, action.ActionType))

	now := time.Now().UTC()
	if action.Expired(now) {
		return nil, ErrActionExpired
	}

	release, err := e.locker.Acquire(ctx, action.SessionID, lockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	session, plan, current, err := e.loadActive(ctx, action.SessionID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if session.CurrentNodeID != action.ResumeNodeID {
		return nil, ErrActionMismatch
	}

	// Burn the ticket before running the node; the store enforces
	// exactly-once consumption.
	err = e.persistence.Actions().Consume(ctx, action.ID, now)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	merged := make(map[string]any, len(action.Payload)+len(input)+1)
	for k, v := range action.Payload {
		merged[k] = v
	}

	for k, v := range input {
		merged[k] = v
	}

	merged["action_type"] = action.ActionType

	return e.dispatchInput(ctx, span, plan, session, current, merged)
}

// GetSession returns the current persisted state of a session.
func (e *Executor) GetSession(ctx context.Context, sessionID string) (*models.AuthSession, error) {
	return e.persistence.Sessions().GetByID(ctx, sessionID)
}

// loadActive fetches a session that is still allowed to advance, together
// with its pinned plan and current node.
func (e *Executor) loadActive(ctx context.Context, sessionID string) (*models.AuthSession, *models.ExecutionPlan, *models.ExecutionNode, error) {
	session, err := e.persistence.Sessions().GetByID(ctx, sessionID)
	if err != nil {
		return nil, nil, nil, err
	}

	if session.Status != models.SessionStatusActive {
		return nil, nil, nil, ErrSessionFinished
	}

	if session.Expired(time.Now().UTC()) {
		return nil, nil, nil, ErrSessionExpired
	}

	plan, err := e.planFor(ctx, session.FlowVersionID)
	if err != nil {
		return nil, nil, nil, err
	}

	current := plan.Node(session.CurrentNodeID)
	if current == nil {
		return nil, nil, nil, &InvariantError{
			SessionID: session.ID,
			NodeID:    session.CurrentNodeID,
			Message:   "session position missing from plan",
		}
	}

	return session, plan, current, nil
}

func (e *Executor) dispatchInput(
	ctx context.Context,
	span trace.Span,
	plan *models.ExecutionPlan,
	session *models.AuthSession,
	current *models.ExecutionNode,
	input map[string]any,
) (*Result, error) {
	instance, err := e.registry.CreateNode(ctx, current.Type, current.ID, current.Config)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	outcome, err := instance.HandleInput(ctx, session, input)
	if errors.Is(err, protocol.ErrNoInput) {
		outcome = protocol.Reject(err.Error())
		err = nil
	}

	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	return e.run(ctx, span, plan, session, current, instance, outcome)
}

// enter lands control on a node: OnEnter, then Execute.
func (e *Executor) enter(ctx context.Context, session *models.AuthSession, node *models.ExecutionNode) (protocol.Node, protocol.Outcome, error) {
	instance, err := e.registry.CreateNode(ctx, node.Type, node.ID, node.Config)
	if err != nil {
		return nil, protocol.Outcome{}, err
	}

	err = instance.OnEnter(ctx, session)
	if err != nil {
		return nil, protocol.Outcome{}, fmt.Errorf("on_enter failed at node %s: %w", node.ID, err)
	}

	outcome, err := instance.Execute(ctx, session)
	if err != nil {
		return nil, protocol.Outcome{}, fmt.Errorf("execute failed at node %s: %w", node.ID, err)
	}

	return instance, outcome, nil
}

// run drives the outcome loop until the flow suspends or terminates,
// committing the session exactly once at the end. Nothing is persisted on
// an error path, so the stored session stays at its last committed node.
func (e *Executor) run(
	ctx context.Context,
	span trace.Span,
	plan *models.ExecutionPlan,
	session *models.AuthSession,
	current *models.ExecutionNode,
	instance protocol.Node,
	outcome protocol.Outcome,
) (*Result, error) {
	hops := 0

	for {
		span.SetAttributes(
			attribute.String(otelhelper.NodeIDKey, current.ID),
			attribute.String(otelhelper.OutcomeKey, string(outcome.Kind)))

		switch outcome.Kind {
		case protocol.OutcomeContinue:
			hops++
			if hops > maxHops {
				return nil, e.invariant(span, session, current.ID,
					fmt.Sprintf("iteration cap of %d hops exceeded", maxHops))
			}

			err := instance.OnExit(ctx, session)
			if err != nil {
				otelhelper.SetError(span, err)

				return nil, fmt.Errorf("on_exit failed at node %s: %w", current.ID, err)
			}

			target, ok := current.Next[outcome.Output]
			if !ok {
				target, ok = current.Next[models.DefaultHandle]
			}

			if !ok {
				return nil, e.invariant(span, session, current.ID,
					fmt.Sprintf("no edge wired for output %q", outcome.Output))
			}

			next := plan.Node(target)
			if next == nil {
				return nil, e.invariant(span, session, current.ID,
					fmt.Sprintf("edge target %q missing from plan", target))
			}

			session.CurrentNodeID = target
			current = next

			instance, outcome, err = e.enter(ctx, session, current)
			if err != nil {
				otelhelper.SetError(span, err)

				return nil, err
			}

		case protocol.OutcomeSuspendForUI:
			err := e.commit(ctx, session)
			if err != nil {
				otelhelper.SetError(span, err)

				return nil, err
			}

			return &Result{
				SessionID: session.ID,
				Status:    ResultChallenge,
				Screen:    outcome.Screen,
				Challenge: outcome.Challenge,
			}, nil

		case protocol.OutcomeSuspendForAsync:
			token, err := e.mintAction(ctx, session, current, outcome)
			if err != nil {
				otelhelper.SetError(span, err)

				return nil, err
			}

			err = e.commit(ctx, session)
			if err != nil {
				otelhelper.SetError(span, err)

				return nil, err
			}

			return &Result{
				SessionID:   session.ID,
				Status:      ResultPending,
				ActionType:  outcome.ActionType,
				ActionToken: token,
			}, nil

		case protocol.OutcomeReject:
			// Position is unchanged but attempt counters in the
			// context may have moved; commit those.
			err := e.commit(ctx, session)
			if err != nil {
				otelhelper.SetError(span, err)

				return nil, err
			}

			return &Result{
				SessionID: session.ID,
				Status:    ResultRejected,
				Error:     outcome.Error,
			}, nil

		case protocol.OutcomeSuccess:
			return e.complete(ctx, span, session, outcome)

		case protocol.OutcomeFailure:
			return e.fail(ctx, span, session, outcome)

		default:
			return nil, e.invariant(span, session, current.ID,
				fmt.Sprintf("unknown outcome kind %q", outcome.Kind))
		}
	}
}

func (e *Executor) complete(ctx context.Context, span trace.Span, session *models.AuthSession, outcome protocol.Outcome) (*Result, error) {
	session.Status = models.SessionStatusCompleted
	session.UserID = outcome.UserID

	err := e.commit(ctx, session)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	e.publish(ctx, session.RealmID, &events.SessionCompleted{
		BaseEvent: e.baseEvent(events.SessionCompletedEvent, session.RealmID),
		SessionID: session.ID,
		UserID:    session.UserID,
		Duration:  time.Since(session.CreatedAt),
	})

	result := &Result{SessionID: session.ID, Status: ResultCompleted}

	if e.tokens != nil {
		token, err := e.tokens.Issue(ctx, session.RealmID, session.UserID)
		if err != nil {
			otelhelper.SetError(span, err)

			return nil, fmt.Errorf("token issuance failed for session %s: %w", session.ID, err)
		}

		result.Token = token
	}

	e.logger.InfoContext(ctx, "Session completed",
		"session_id", session.ID, "user_id", session.UserID)

	return result, nil
}

func (e *Executor) fail(ctx context.Context, span trace.Span, session *models.AuthSession, outcome protocol.Outcome) (*Result, error) {
	session.Status = models.SessionStatusFailed

	err := e.commit(ctx, session)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	e.publish(ctx, session.RealmID, &events.SessionFailed{
		BaseEvent: e.baseEvent(events.SessionFailedEvent, session.RealmID),
		SessionID: session.ID,
		Reason:    outcome.Reason,
		Duration:  time.Since(session.CreatedAt),
	})

	e.logger.InfoContext(ctx, "Session failed",
		"session_id", session.ID, "reason", outcome.Reason)

	return &Result{
		SessionID: session.ID,
		Status:    ResultFailed,
		Reason:    outcome.Reason,
	}, nil
}

func (e *Executor) commit(ctx context.Context, session *models.AuthSession) error {
	session.UpdatedAt = time.Now().UTC()

	return e.persistence.Sessions().Update(ctx, session)
}

// mintAction creates the single-use continuation ticket for an async
// suspension and returns the plaintext token. Only the hash is stored.
func (e *Executor) mintAction(ctx context.Context, session *models.AuthSession, current *models.ExecutionNode, outcome protocol.Outcome) (string, error) {
	raw := make([]byte, 32)

	_, err := rand.Read(raw)
	if err != nil {
		return "", fmt.Errorf("failed to generate action token: %w", err)
	}

	token := hex.EncodeToString(raw)
	sum := sha256.Sum256([]byte(token))

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate action id: %w", err)
	}

	ttl := outcome.ActionTTL
	if ttl <= 0 {
		ttl = defaultActionTTL
	}

	now := time.Now().UTC()
	action := &models.SessionAction{
		ID:           id.String(),
		SessionID:    session.ID,
		RealmID:      session.RealmID,
		ActionType:   outcome.ActionType,
		TokenHash:    hex.EncodeToString(sum[:]),
		Payload:      outcome.Payload,
		ResumeNodeID: current.ID,
		ExpiresAt:    now.Add(ttl),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = e.persistence.Actions().Create(ctx, action)
	if err != nil {
		return "", err
	}

	return token, nil
}

// planFor resolves a version's plan through the cache. Versions are
// immutable, so a cached plan never goes stale.
func (e *Executor) planFor(ctx context.Context, versionID string) (*models.ExecutionPlan, error) {
	e.planMu.RLock()
	plan, ok := e.plans[versionID]
	e.planMu.RUnlock()

	if ok {
		return plan, nil
	}

	version, err := e.persistence.Versions().GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}

	plan, err = version.Plan()
	if err != nil {
		return nil, fmt.Errorf("corrupt execution artifact in version %s: %w", versionID, err)
	}

	e.planMu.Lock()
	e.plans[versionID] = plan
	e.planMu.Unlock()

	return plan, nil
}

func (e *Executor) invariant(span trace.Span, session *models.AuthSession, nodeID, message string) error {
	err := &InvariantError{SessionID: session.ID, NodeID: nodeID, Message: message}

	otelhelper.SetError(span, err)
	e.logger.Error("Runtime invariant violated",
		"session_id", session.ID, "node_id", nodeID, "message", message)

	return err
}

func (e *Executor) baseEvent(eventType events.EventType, realmID string) events.BaseEvent {
	var id string
	if e.eventBus != nil {
		id = e.eventBus.GenerateID()
	}

	return events.BaseEvent{
		ID:        id,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		RealmID:   realmID,
	}
}

func (e *Executor) publish(ctx context.Context, key string, event events.Event) {
	if e.eventBus == nil {
		return
	}

	err := e.eventBus.Publish(ctx, key, event)
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}
