// Package cookie provides the SSO-cookie check authenticator node.
package cookie

import (
	"context"
	"log/slog"

	"github.com/gatehouse-id/gatehouse/pkg/models"
	"github.com/gatehouse-id/gatehouse/pkg/protocol"
)

const (
	OutputContinue = "continue"

	// SSOCookieName is the HTTP cookie the login endpoint lifts the SSO
	// token from.
	SSOCookieName = "gatehouse_sso"

	// Context keys written by this node.
	ContextKeyCookieAuthenticated = "cookie_authenticated"
	ContextKeyUserID              = "user_id"

	// Context key read from the login request.
	ContextKeyCookieToken = "sso_cookie"
)

// CookieNode checks whether the login request carried a valid SSO cookie.
// It has a single output: the check records its result in the session
// context and always continues, letting a downstream condition node branch
// on cookie_authenticated.
type CookieNode struct {
	protocol.BaseNode

	id          string
	credentials protocol.CredentialVerifier
	logger      *slog.Logger
}

func NewCookieNode(id string, deps protocol.Dependencies) *CookieNode {
	return &CookieNode{
		id:          id,
		credentials: deps.Credentials,
		logger:      deps.Logger,
	}
}

func (n *CookieNode) Execute(ctx context.Context, session *models.AuthSession) (protocol.Outcome, error) {
	token := session.GetString(ContextKeyCookieToken)
	if token == "" {
		session.Put(ContextKeyCookieAuthenticated, false)

		return protocol.ContinueTo(OutputContinue), nil
	}

	userID, err := n.credentials.VerifyCookie(ctx, session.RealmID, token)
	if err != nil {
		n.logger.DebugContext(ctx, "SSO cookie rejected", "session_id", session.ID, "error", err)
		session.Put(ContextKeyCookieAuthenticated, false)

		return protocol.ContinueTo(OutputContinue), nil
	}

	session.Put(ContextKeyCookieAuthenticated, true)
	session.Put(ContextKeyUserID, userID)
	session.UserID = userID

	return protocol.ContinueTo(OutputContinue), nil
}
