package engine_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse-id/gatehouse/pkg/credentials"
	"github.com/gatehouse-id/gatehouse/pkg/engine"
	"github.com/gatehouse-id/gatehouse/pkg/eventbus"
	"github.com/gatehouse-id/gatehouse/pkg/events"
	"github.com/gatehouse-id/gatehouse/pkg/flow"
	"github.com/gatehouse-id/gatehouse/pkg/models"
	"github.com/gatehouse-id/gatehouse/pkg/persistence"
	"github.com/gatehouse-id/gatehouse/pkg/persistence/memory"
	"github.com/gatehouse-id/gatehouse/pkg/protocol"
	"github.com/gatehouse-id/gatehouse/pkg/registry"
	"github.com/gatehouse-id/gatehouse/pkg/sessionlock"
	"github.com/gatehouse-id/gatehouse/pkg/token"
)

type nopEventBus struct{}

func (nopEventBus) Publish(ctx context.Context, key string, event events.Event) error { return nil }
func (nopEventBus) Subscribe(ctx context.Context) error                               { return nil }
func (nopEventBus) Handle(eventType events.EventType, handler eventbus.EventHandler) error {
	return nil
}
func (nopEventBus) GenerateID() string { return "test-event" }
func (nopEventBus) Close() error       { return nil }

// magicLinkNode suspends awaiting an out-of-band confirmation and finishes
// the login when its ticket is resumed.
type magicLinkNode struct {
	protocol.BaseNode

	ttl time.Duration
}

func (n *magicLinkNode) Execute(ctx context.Context, session *models.AuthSession) (protocol.Outcome, error) {
	return protocol.SuspendForAsync("magic_link", map[string]any{"user_id": "user-42"}, n.ttl), nil
}

func (n *magicLinkNode) HandleInput(ctx context.Context, session *models.AuthSession, input map[string]any) (protocol.Outcome, error) {
	if input["action_type"] != "magic_link" {
		return protocol.Reject("unexpected action"), nil
	}

	userID, _ := input["user_id"].(string)
	session.UserID = userID

	return protocol.ContinueTo("success"), nil
}

type magicLinkFactory struct {
	ttl time.Duration
}

func (f *magicLinkFactory) Create(ctx context.Context, id string, config map[string]any, deps protocol.Dependencies) (protocol.Node, error) {
	return &magicLinkNode{ttl: f.ttl}, nil
}

func (f *magicLinkFactory) ID() string                { return "test.auth.magiclink" }
func (f *magicLinkFactory) StepType() models.StepType { return models.StepTypeAuthenticator }

func (f *magicLinkFactory) Metadata() models.NodeMetadata {
	return models.NodeMetadata{
		ID:          f.ID(),
		Category:    f.StepType(),
		DisplayName: "Magic Link",
		Outputs:     []string{"success"},
	}
}

const passwordGraph = `{
	"nodes": [
		{"id": "start", "type": "core.start"},
		{"id": "pw", "type": "core.auth.password", "data": {"config": {"max_attempts": 3}}},
		{"id": "allow", "type": "core.terminal.allow"},
		{"id": "deny", "type": "core.terminal.deny"}
	],
	"edges": [
		{"source": "start", "target": "pw"},
		{"source": "pw", "target": "allow", "sourceHandle": "success"},
		{"source": "pw", "target": "deny", "sourceHandle": "failure"}
	]
}`

const lockoutGraph = `{
	"nodes": [
		{"id": "start", "type": "core.start"},
		{"id": "pw", "type": "core.auth.password", "data": {"config": {"max_attempts": 2}}},
		{"id": "allow", "type": "core.terminal.allow"},
		{"id": "deny", "type": "core.terminal.deny"}
	],
	"edges": [
		{"source": "start", "target": "pw"},
		{"source": "pw", "target": "allow", "sourceHandle": "success"},
		{"source": "pw", "target": "deny", "sourceHandle": "failure"}
	]
}`

const cookieGraph = `{
	"nodes": [
		{"id": "start", "type": "core.start"},
		{"id": "sso", "type": "core.auth.cookie"},
		{"id": "check", "type": "core.logic.condition", "data": {"config": {"variable": "cookie_authenticated", "operator": "eq", "value": true}}},
		{"id": "allow", "type": "core.terminal.allow"},
		{"id": "deny", "type": "core.terminal.deny"}
	],
	"edges": [
		{"source": "start", "target": "sso"},
		{"source": "sso", "target": "check", "sourceHandle": "continue"},
		{"source": "check", "target": "allow", "sourceHandle": "true"},
		{"source": "check", "target": "deny", "sourceHandle": "false"}
	]
}`

const magicLinkGraph = `{
	"nodes": [
		{"id": "start", "type": "core.start"},
		{"id": "ml", "type": "test.auth.magiclink"},
		{"id": "allow", "type": "core.terminal.allow"}
	],
	"edges": [
		{"source": "start", "target": "ml"},
		{"source": "ml", "target": "allow", "sourceHandle": "success"}
	]
}`

type testEnv struct {
	store    *memory.Persistence
	registry *registry.Registry
	manager  *flow.Manager
	executor *engine.Executor
	locker   *sessionlock.MemoryLocker
	issuer   *token.JWTIssuer
	creds    *credentials.Store
}

func newTestEnv(t *testing.T, extra ...protocol.NodeFactory) *testEnv {
	t.Helper()

	logger := slog.Default()

	creds := credentials.NewStore()
	require.NoError(t, creds.AddUser("acme", "alice", "user-42", "hunter2"))

	reg := registry.NewRegistry(logger, protocol.Dependencies{
		Credentials: creds,
		OTPSender:   credentials.NewLogOTPSender(logger),
	})
	reg.RegisterDefaultNodes()

	for _, factory := range extra {
		reg.RegisterNode(factory)
	}

	store := memory.NewPersistence()
	bus := nopEventBus{}
	locker := sessionlock.NewMemoryLocker()

	issuer, err := token.NewJWTIssuer([]byte("0123456789abcdef0123456789abcdef"), "gatehouse-test", 0)
	require.NoError(t, err)

	return &testEnv{
		store:    store,
		registry: reg,
		manager:  flow.NewManager(store, reg, bus, logger),
		executor: engine.NewExecutor(store, reg, bus, issuer, locker, nil, logger),
		locker:   locker,
		issuer:   issuer,
		creds:    creds,
	}
}

// deployGraph publishes the graph as a fresh draft and points the realm's
// browser deployment at it.
func (env *testEnv) deployGraph(t *testing.T, graph string) *models.FlowVersion {
	t.Helper()

	ctx := context.Background()

	draft, err := env.manager.CreateDraft(ctx, &models.FlowDraft{
		RealmID:  "acme",
		Name:     "browser login",
		FlowType: models.FlowTypeBrowser,
		Graph:    []byte(graph),
	})
	require.NoError(t, err)

	version, err := env.manager.Publish(ctx, draft.ID)
	require.NoError(t, err)

	_, err = env.manager.Deploy(ctx, "acme", models.FlowTypeBrowser, version.ID)
	require.NoError(t, err)

	return version
}

func TestExecutor_FullWalk(t *testing.T) {
	env := newTestEnv(t)
	env.deployGraph(t, passwordGraph)
	ctx := context.Background()

	started, err := env.executor.Start(ctx, "acme", models.FlowTypeBrowser, nil)
	require.NoError(t, err)

	assert.Equal(t, engine.ResultChallenge, started.Status)
	assert.Equal(t, "password", started.Screen)
	assert.Contains(t, started.Challenge, "fields")
	require.NotEmpty(t, started.SessionID)

	rejected, err := env.executor.Submit(ctx, started.SessionID, map[string]any{
		"username": "alice",
		"password": "wrong",
	})
	require.NoError(t, err)
	assert.Equal(t, engine.ResultRejected, rejected.Status)
	assert.Equal(t, "invalid credentials", rejected.Error)

	completed, err := env.executor.Submit(ctx, started.SessionID, map[string]any{
		"username": "alice",
		"password": "hunter2",
	})
	require.NoError(t, err)

	assert.Equal(t, engine.ResultCompleted, completed.Status)
	require.NotNil(t, completed.Token)
	assert.Equal(t, "Bearer", completed.Token.TokenType)

	claims, err := env.issuer.Verify(completed.Token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.Subject)
	assert.Equal(t, "acme", claims.RealmID)

	session, err := env.executor.GetSession(ctx, started.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusCompleted, session.Status)
	assert.Equal(t, "user-42", session.UserID)
	assert.Equal(t, "allow", session.CurrentNodeID)
}

func TestExecutor_RejectKeepsPosition(t *testing.T) {
	env := newTestEnv(t)
	env.deployGraph(t, passwordGraph)
	ctx := context.Background()

	started, err := env.executor.Start(ctx, "acme", models.FlowTypeBrowser, nil)
	require.NoError(t, err)

	_, err = env.executor.Submit(ctx, started.SessionID, map[string]any{
		"username": "alice",
		"password": "wrong",
	})
	require.NoError(t, err)

	session, err := env.executor.GetSession(ctx, started.SessionID)
	require.NoError(t, err)

	assert.Equal(t, models.SessionStatusActive, session.Status)
	assert.Equal(t, "pw", session.CurrentNodeID)
	assert.Equal(t, 1, session.GetInt("password_attempts"))
}

func TestExecutor_LockoutRoutesThroughFailureEdge(t *testing.T) {
	env := newTestEnv(t)
	env.deployGraph(t, lockoutGraph)
	ctx := context.Background()

	started, err := env.executor.Start(ctx, "acme", models.FlowTypeBrowser, nil)
	require.NoError(t, err)

	wrong := map[string]any{"username": "alice", "password": "wrong"}

	first, err := env.executor.Submit(ctx, started.SessionID, wrong)
	require.NoError(t, err)
	assert.Equal(t, engine.ResultRejected, first.Status)

	second, err := env.executor.Submit(ctx, started.SessionID, wrong)
	require.NoError(t, err)
	assert.Equal(t, engine.ResultFailed, second.Status)
	assert.Equal(t, "access denied", second.Reason)

	session, err := env.executor.GetSession(ctx, started.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusFailed, session.Status)
	assert.Equal(t, "deny", session.CurrentNodeID)
}

func TestExecutor_SessionPinsVersionAcrossRedeploy(t *testing.T) {
	env := newTestEnv(t)
	v1 := env.deployGraph(t, passwordGraph)
	ctx := context.Background()

	started, err := env.executor.Start(ctx, "acme", models.FlowTypeBrowser, nil)
	require.NoError(t, err)

	// Redeploy with a tighter lockout. The in-flight session must keep the
	// three-attempt behavior it started with.
	v2 := env.deployGraph(t, lockoutGraph)
	require.NotEqual(t, v1.ID, v2.ID)

	wrong := map[string]any{"username": "alice", "password": "wrong"}

	_, err = env.executor.Submit(ctx, started.SessionID, wrong)
	require.NoError(t, err)

	second, err := env.executor.Submit(ctx, started.SessionID, wrong)
	require.NoError(t, err)
	assert.Equal(t, engine.ResultRejected, second.Status, "pinned session must not inherit the redeployed lockout")

	session, err := env.executor.GetSession(ctx, started.SessionID)
	require.NoError(t, err)
	assert.Equal(t, v1.ID, session.FlowVersionID)

	fresh, err := env.executor.Start(ctx, "acme", models.FlowTypeBrowser, nil)
	require.NoError(t, err)

	freshSession, err := env.executor.GetSession(ctx, fresh.SessionID)
	require.NoError(t, err)
	assert.Equal(t, v2.ID, freshSession.FlowVersionID)
}

func TestExecutor_ExpiredSession(t *testing.T) {
	env := newTestEnv(t)
	env.deployGraph(t, passwordGraph)
	ctx := context.Background()

	started, err := env.executor.Start(ctx, "acme", models.FlowTypeBrowser, nil)
	require.NoError(t, err)

	session, err := env.store.Sessions().GetByID(ctx, started.SessionID)
	require.NoError(t, err)

	session.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, env.store.Sessions().Update(ctx, session))

	_, err = env.executor.Submit(ctx, started.SessionID, map[string]any{
		"username": "alice",
		"password": "hunter2",
	})
	assert.ErrorIs(t, err, engine.ErrSessionExpired)
}

func TestExecutor_FinishedSessionRejectsInput(t *testing.T) {
	env := newTestEnv(t)
	env.deployGraph(t, passwordGraph)
	ctx := context.Background()

	started, err := env.executor.Start(ctx, "acme", models.FlowTypeBrowser, nil)
	require.NoError(t, err)

	_, err = env.executor.Submit(ctx, started.SessionID, map[string]any{
		"username": "alice",
		"password": "hunter2",
	})
	require.NoError(t, err)

	_, err = env.executor.Submit(ctx, started.SessionID, map[string]any{
		"username": "alice",
		"password": "hunter2",
	})
	assert.ErrorIs(t, err, engine.ErrSessionFinished)
}

func TestExecutor_UnknownSession(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.executor.Submit(context.Background(), "no-such-session", nil)
	assert.ErrorIs(t, err, persistence.ErrSessionNotFound)
}

func TestExecutor_BusySessionReturnsErrLocked(t *testing.T) {
	env := newTestEnv(t)
	env.deployGraph(t, passwordGraph)
	ctx := context.Background()

	started, err := env.executor.Start(ctx, "acme", models.FlowTypeBrowser, nil)
	require.NoError(t, err)

	release, err := env.locker.Acquire(ctx, started.SessionID, time.Minute)
	require.NoError(t, err)
	defer release()

	_, err = env.executor.Submit(ctx, started.SessionID, map[string]any{
		"username": "alice",
		"password": "hunter2",
	})
	assert.ErrorIs(t, err, sessionlock.ErrLocked)
}

func TestExecutor_HopCapTripsOnCyclicArtifact(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Static validation would never emit a cycle; plant one directly in the
	// stored artifact to exercise the runtime guard.
	scriptConfig := map[string]any{
		"operations": []any{map[string]any{"op": "set", "key": "x", "value": 1}},
	}
	plan := &models.ExecutionPlan{
		StartNodeID: "start",
		Nodes: map[string]*models.ExecutionNode{
			"start": {
				ID: "start", Type: "core.start", StepType: models.StepTypeLogic,
				Next: map[string]string{"default": "a"},
			},
			"a": {
				ID: "a", Type: "core.logic.script", StepType: models.StepTypeLogic,
				Next: map[string]string{"default": "b"}, Config: scriptConfig,
			},
			"b": {
				ID: "b", Type: "core.logic.script", StepType: models.StepTypeLogic,
				Next: map[string]string{"default": "a"}, Config: scriptConfig,
			},
		},
	}

	artifact, err := json.Marshal(plan)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, env.store.Versions().Create(ctx, &models.FlowVersion{
		ID:            "v-cycle",
		DraftID:       "d-cycle",
		RealmID:       "acme",
		FlowType:      models.FlowTypeBrowser,
		VersionNumber: 1,
		Artifact:      artifact,
		Checksum:      "cycle",
		CreatedAt:     now,
	}))
	require.NoError(t, env.store.Deployments().Upsert(ctx, &models.FlowDeployment{
		ID:              "dep-cycle",
		RealmID:         "acme",
		FlowType:        models.FlowTypeBrowser,
		ActiveVersionID: "v-cycle",
		UpdatedAt:       now,
	}))

	_, err = env.executor.Start(ctx, "acme", models.FlowTypeBrowser, nil)
	require.Error(t, err)
	assert.True(t, engine.IsInvariantError(err))
	assert.Contains(t, err.Error(), "iteration cap")
}

func TestExecutor_ResumeConsumesTicketOnce(t *testing.T) {
	env := newTestEnv(t, &magicLinkFactory{ttl: time.Minute})
	env.deployGraph(t, magicLinkGraph)
	ctx := context.Background()

	started, err := env.executor.Start(ctx, "acme", models.FlowTypeBrowser, nil)
	require.NoError(t, err)

	assert.Equal(t, engine.ResultPending, started.Status)
	assert.Equal(t, "magic_link", started.ActionType)
	require.NotEmpty(t, started.ActionToken)

	completed, err := env.executor.Resume(ctx, started.ActionToken, nil)
	require.NoError(t, err)
	assert.Equal(t, engine.ResultCompleted, completed.Status)
	require.NotNil(t, completed.Token)

	claims, err := env.issuer.Verify(completed.Token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.Subject)

	// The session finished, so the second resume fails on status before it
	// ever reaches the ticket; a still-active session would fail on
	// ErrActionConsumed instead. Either way the ticket is spent.
	_, err = env.executor.Resume(ctx, started.ActionToken, nil)
	assert.Error(t, err)
}

func TestExecutor_ResumeUnknownToken(t *testing.T) {
	env := newTestEnv(t, &magicLinkFactory{ttl: time.Minute})

	_, err := env.executor.Resume(context.Background(), "deadbeef", nil)
	assert.ErrorIs(t, err, persistence.ErrActionNotFound)
}

func TestExecutor_ResumeExpiredTicket(t *testing.T) {
	env := newTestEnv(t, &magicLinkFactory{ttl: time.Millisecond})
	env.deployGraph(t, magicLinkGraph)
	ctx := context.Background()

	started, err := env.executor.Start(ctx, "acme", models.FlowTypeBrowser, nil)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = env.executor.Resume(ctx, started.ActionToken, nil)
	assert.ErrorIs(t, err, engine.ErrActionExpired)
}

func TestExecutor_ResumePositionMismatchPreservesTicket(t *testing.T) {
	env := newTestEnv(t, &magicLinkFactory{ttl: time.Minute})
	env.deployGraph(t, magicLinkGraph)
	ctx := context.Background()

	started, err := env.executor.Start(ctx, "acme", models.FlowTypeBrowser, nil)
	require.NoError(t, err)

	session, err := env.store.Sessions().GetByID(ctx, started.SessionID)
	require.NoError(t, err)

	session.CurrentNodeID = "allow"
	require.NoError(t, env.store.Sessions().Update(ctx, session))

	_, err = env.executor.Resume(ctx, started.ActionToken, nil)
	assert.ErrorIs(t, err, engine.ErrActionMismatch)

	// A mismatched resume must not burn the ticket. Restore the session and
	// the same token still works.
	session, err = env.store.Sessions().GetByID(ctx, started.SessionID)
	require.NoError(t, err)

	session.CurrentNodeID = "ml"
	require.NoError(t, env.store.Sessions().Update(ctx, session))

	completed, err := env.executor.Resume(ctx, started.ActionToken, nil)
	require.NoError(t, err)
	assert.Equal(t, engine.ResultCompleted, completed.Status)
}

func TestExecutor_ResumeMergesCallerInputOverPayload(t *testing.T) {
	env := newTestEnv(t, &magicLinkFactory{ttl: time.Minute})
	env.deployGraph(t, magicLinkGraph)
	ctx := context.Background()

	started, err := env.executor.Start(ctx, "acme", models.FlowTypeBrowser, nil)
	require.NoError(t, err)

	// Caller input overrides the minted payload key for key.
	completed, err := env.executor.Resume(ctx, started.ActionToken, map[string]any{
		"user_id": "user-override",
	})
	require.NoError(t, err)

	session, err := env.executor.GetSession(ctx, completed.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "user-override", session.UserID)
}

func TestExecutor_StartWithValidCookieCompletesWithoutChallenge(t *testing.T) {
	env := newTestEnv(t)
	env.creds.AddCookie("acme", "sso-tok-1", "user-42")
	env.deployGraph(t, cookieGraph)
	ctx := context.Background()

	result, err := env.executor.Start(ctx, "acme", models.FlowTypeBrowser, map[string]any{
		"sso_cookie": "sso-tok-1",
	})
	require.NoError(t, err)

	assert.Equal(t, engine.ResultCompleted, result.Status)
	require.NotNil(t, result.Token)

	claims, err := env.issuer.Verify(result.Token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.Subject)

	session, err := env.executor.GetSession(ctx, result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "user-42", session.UserID)
	assert.Equal(t, "allow", session.CurrentNodeID)
}

func TestExecutor_StartWithoutCookieRoutesThroughFalseBranch(t *testing.T) {
	env := newTestEnv(t)
	env.creds.AddCookie("other", "other-realm-tok", "user-9")
	env.deployGraph(t, cookieGraph)
	ctx := context.Background()

	tests := []struct {
		name  string
		input map[string]any
	}{
		{name: "no input at all", input: nil},
		{name: "forged cookie", input: map[string]any{"sso_cookie": "not-a-real-token"}},
		{name: "cookie from another realm", input: map[string]any{"sso_cookie": "other-realm-tok"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := env.executor.Start(ctx, "acme", models.FlowTypeBrowser, tt.input)
			require.NoError(t, err)

			assert.Equal(t, engine.ResultFailed, result.Status)
			assert.Equal(t, "access denied", result.Reason)
		})
	}
}
