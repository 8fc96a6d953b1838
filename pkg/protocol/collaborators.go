package protocol

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrInvalidCredentials is returned by credential verification when the
// supplied credentials do not match any user.
var ErrInvalidCredentials = errors.New("invalid credentials")

// CredentialVerifier is the user-credential lookup capability consumed by
// authenticator nodes. Implementations live outside the core engine.
type CredentialVerifier interface {
	// VerifyPassword checks a username/password pair within a realm and
	// returns the authenticated user id, or ErrInvalidCredentials.
	VerifyPassword(ctx context.Context, realmID, username, password string) (string, error)

	// VerifyCookie checks an SSO cookie token within a realm and returns
	// the user id it identifies, or ErrInvalidCredentials.
	VerifyCookie(ctx context.Context, realmID, token string) (string, error)
}

// OTPSender delivers a one-time code to the user out of band.
type OTPSender interface {
	Send(ctx context.Context, realmID, userID, code string) error
}

// IssuedToken is the result of token issuance after a successful flow.
type IssuedToken struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresIn   time.Duration `json:"expires_in"`
}

// TokenIssuer is invoked by the engine exactly once, on flow success.
type TokenIssuer interface {
	Issue(ctx context.Context, realmID, userID string) (*IssuedToken, error)
}

// Dependencies carries the collaborators node implementations may use.
// The registry hands it to every factory at node construction time.
type Dependencies struct {
	Logger      *slog.Logger
	Credentials CredentialVerifier
	OTPSender   OTPSender
}
