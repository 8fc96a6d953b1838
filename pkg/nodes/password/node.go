// Package password provides the username/password authenticator node.
package password

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gatehouse-id/gatehouse/pkg/models"
	"github.com/gatehouse-id/gatehouse/pkg/protocol"
)

const (
	OutputSuccess = "success"
	OutputFailure = "failure"

	ScreenPassword = "password"

	contextKeyAttempts = "password_attempts"
	contextKeyUserID   = "user_id"
	contextKeyUsername = "username"

	defaultMaxAttempts = 3
)

// PasswordNode suspends for a credential form and verifies submissions
// against the realm's credential store. Exhausting max_attempts routes
// through the failure output rather than rejecting again, so the graph
// decides what lockout looks like.
type PasswordNode struct {
	protocol.BaseNode

	id          string
	maxAttempts int
	credentials protocol.CredentialVerifier
	logger      *slog.Logger
}

func NewPasswordNode(id string, config map[string]any, deps protocol.Dependencies) *PasswordNode {
	maxAttempts := defaultMaxAttempts
	if v, ok := config["max_attempts"].(float64); ok && v > 0 {
		maxAttempts = int(v)
	} else if v, ok := config["max_attempts"].(int); ok && v > 0 {
		maxAttempts = v
	}

	return &PasswordNode{
		id:          id,
		maxAttempts: maxAttempts,
		credentials: deps.Credentials,
		logger:      deps.Logger,
	}
}

func (n *PasswordNode) Execute(ctx context.Context, session *models.AuthSession) (protocol.Outcome, error) {
	return protocol.SuspendForUI(ScreenPassword, map[string]any{
		"fields":       []string{"username", "password"},
		"max_attempts": n.maxAttempts,
	}), nil
}

func (n *PasswordNode) HandleInput(ctx context.Context, session *models.AuthSession, input map[string]any) (protocol.Outcome, error) {
	username, _ := input["username"].(string)
	password, _ := input["password"].(string)

	if username == "" || password == "" {
		return protocol.Reject("username and password are required"), nil
	}

	userID, err := n.credentials.VerifyPassword(ctx, session.RealmID, username, password)
	if err != nil {
		if !errors.Is(err, protocol.ErrInvalidCredentials) {
			return protocol.Outcome{}, err
		}

		attempts := session.GetInt(contextKeyAttempts) + 1
		session.Put(contextKeyAttempts, attempts)

		n.logger.InfoContext(ctx, "Password verification failed",
			"session_id", session.ID, "attempt", attempts, "max_attempts", n.maxAttempts)

		if attempts >= n.maxAttempts {
			return protocol.ContinueTo(OutputFailure), nil
		}

		return protocol.Reject("invalid credentials"), nil
	}

	session.UserID = userID
	session.Put(contextKeyUserID, userID)
	session.Put(contextKeyUsername, username)

	return protocol.ContinueTo(OutputSuccess), nil
}
