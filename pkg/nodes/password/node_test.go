package password_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse-id/gatehouse/pkg/models"
	"github.com/gatehouse-id/gatehouse/pkg/nodes/password"
	"github.com/gatehouse-id/gatehouse/pkg/protocol"
)

type fakeVerifier struct {
	userID   string
	password string
}

func (f *fakeVerifier) VerifyPassword(ctx context.Context, realmID, username, pw string) (string, error) {
	if pw == f.password {
		return f.userID, nil
	}

	return "", protocol.ErrInvalidCredentials
}

func (f *fakeVerifier) VerifyCookie(ctx context.Context, realmID, token string) (string, error) {
	return "", protocol.ErrInvalidCredentials
}

func testDeps(verifier protocol.CredentialVerifier) protocol.Dependencies {
	return protocol.Dependencies{
		Logger:      slog.Default(),
		Credentials: verifier,
	}
}

func newSession() *models.AuthSession {
	return &models.AuthSession{
		ID:      "sess-1",
		RealmID: "acme",
		Context: make(map[string]any),
		Status:  models.SessionStatusActive,
	}
}

func TestPasswordNode_ExecuteSuspendsForUI(t *testing.T) {
	node := password.NewPasswordNode("pw", nil, testDeps(&fakeVerifier{}))

	outcome, err := node.Execute(context.Background(), newSession())
	require.NoError(t, err)

	assert.Equal(t, protocol.OutcomeSuspendForUI, outcome.Kind)
	assert.Equal(t, password.ScreenPassword, outcome.Screen)
}

func TestPasswordNode_ValidCredentials(t *testing.T) {
	verifier := &fakeVerifier{userID: "user-42", password: "hunter2"}
	node := password.NewPasswordNode("pw", nil, testDeps(verifier))
	session := newSession()

	outcome, err := node.HandleInput(context.Background(), session, map[string]any{
		"username": "jdoe",
		"password": "hunter2",
	})
	require.NoError(t, err)

	assert.Equal(t, protocol.OutcomeContinue, outcome.Kind)
	assert.Equal(t, password.OutputSuccess, outcome.Output)
	assert.Equal(t, "user-42", session.UserID)
}

func TestPasswordNode_MissingFields(t *testing.T) {
	node := password.NewPasswordNode("pw", nil, testDeps(&fakeVerifier{}))

	outcome, err := node.HandleInput(context.Background(), newSession(), map[string]any{
		"username": "jdoe",
	})
	require.NoError(t, err)

	assert.Equal(t, protocol.OutcomeReject, outcome.Kind)
}

func TestPasswordNode_LockoutRoutesToFailure(t *testing.T) {
	verifier := &fakeVerifier{userID: "user-42", password: "hunter2"}
	node := password.NewPasswordNode("pw", map[string]any{"max_attempts": float64(3)}, testDeps(verifier))
	session := newSession()

	input := map[string]any{"username": "jdoe", "password": "wrong"}

	// First two failures reject and stay on the node.
	for range 2 {
		outcome, err := node.HandleInput(context.Background(), session, input)
		require.NoError(t, err)
		assert.Equal(t, protocol.OutcomeReject, outcome.Kind)
	}

	// The third exhausts max_attempts and routes through failure.
	outcome, err := node.HandleInput(context.Background(), session, input)
	require.NoError(t, err)

	assert.Equal(t, protocol.OutcomeContinue, outcome.Kind)
	assert.Equal(t, password.OutputFailure, outcome.Output)
	assert.Equal(t, 3, session.GetInt("password_attempts"))
}

func TestPasswordNode_AttemptCounterSurvivesJSONRoundTrip(t *testing.T) {
	verifier := &fakeVerifier{userID: "user-42", password: "hunter2"}
	node := password.NewPasswordNode("pw", map[string]any{"max_attempts": float64(2)}, testDeps(verifier))
	session := newSession()

	// Counter persisted through JSON comes back as float64.
	session.Put("password_attempts", float64(1))

	outcome, err := node.HandleInput(context.Background(), session, map[string]any{
		"username": "jdoe",
		"password": "wrong",
	})
	require.NoError(t, err)

	assert.Equal(t, protocol.OutcomeContinue, outcome.Kind)
	assert.Equal(t, password.OutputFailure, outcome.Output)
}
