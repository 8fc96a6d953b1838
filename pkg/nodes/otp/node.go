// Package otp provides the one-time-code authenticator node.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/gatehouse-id/gatehouse/pkg/models"
	"github.com/gatehouse-id/gatehouse/pkg/protocol"
)

const (
	OutputSuccess = "success"
	OutputFailure = "failure"
	OutputResend  = "resend"

	ScreenOTP = "otp"

	contextKeyCode     = "otp_code"
	contextKeyAttempts = "otp_attempts"
	contextKeyUserID   = "user_id"

	defaultMaxAttempts = 3
	codeDigits         = 6
)

// OTPNode generates a one-time code on entry, delivers it through the
// configured sender and suspends for the user to type it back. The resend
// output is expected to be wired back to this node so re-entering it mints
// and delivers a fresh code.
type OTPNode struct {
	protocol.BaseNode

	id          string
	maxAttempts int
	sender      protocol.OTPSender
	logger      *slog.Logger
}

func NewOTPNode(id string, config map[string]any, deps protocol.Dependencies) *OTPNode {
	maxAttempts := defaultMaxAttempts
	if v, ok := config["max_attempts"].(float64); ok && v > 0 {
		maxAttempts = int(v)
	} else if v, ok := config["max_attempts"].(int); ok && v > 0 {
		maxAttempts = v
	}

	return &OTPNode{
		id:          id,
		maxAttempts: maxAttempts,
		sender:      deps.OTPSender,
		logger:      deps.Logger,
	}
}

// OnEnter mints the code and resets the attempt counter for this visit.
func (n *OTPNode) OnEnter(ctx context.Context, session *models.AuthSession) error {
	code, err := generateCode()
	if err != nil {
		return err
	}

	session.Put(contextKeyCode, code)
	session.Put(contextKeyAttempts, 0)

	userID := session.GetString(contextKeyUserID)

	err = n.sender.Send(ctx, session.RealmID, userID, code)
	if err != nil {
		return fmt.Errorf("failed to deliver one-time code: %w", err)
	}

	return nil
}

func (n *OTPNode) Execute(ctx context.Context, session *models.AuthSession) (protocol.Outcome, error) {
	return protocol.SuspendForUI(ScreenOTP, map[string]any{
		"digits":       codeDigits,
		"max_attempts": n.maxAttempts,
	}), nil
}

func (n *OTPNode) HandleInput(ctx context.Context, session *models.AuthSession, input map[string]any) (protocol.Outcome, error) {
	if resend, _ := input["resend"].(bool); resend {
		return protocol.ContinueTo(OutputResend), nil
	}

	code, _ := input["code"].(string)
	if code == "" {
		return protocol.Reject("code is required"), nil
	}

	expected := session.GetString(contextKeyCode)
	if expected != "" && subtle.ConstantTimeCompare([]byte(code), []byte(expected)) == 1 {
		return protocol.ContinueTo(OutputSuccess), nil
	}

	attempts := session.GetInt(contextKeyAttempts) + 1
	session.Put(contextKeyAttempts, attempts)

	n.logger.InfoContext(ctx, "OTP verification failed",
		"session_id", session.ID, "attempt", attempts, "max_attempts", n.maxAttempts)

	if attempts >= n.maxAttempts {
		return protocol.ContinueTo(OutputFailure), nil
	}

	return protocol.Reject("incorrect code"), nil
}

func generateCode() (string, error) {
	limit := big.NewInt(1)
	for range codeDigits {
		limit.Mul(limit, big.NewInt(10))
	}

	v, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("failed to generate one-time code: %w", err)
	}

	return fmt.Sprintf("%0*d", codeDigits, v), nil
}
