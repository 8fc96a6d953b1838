package credentials

import (
	"context"
	"log/slog"
	"sync"
)

// LogOTPSender logs codes instead of delivering them. Development and test
// use only; production wires an SMS or email gateway behind
// protocol.OTPSender.
type LogOTPSender struct {
	logger *slog.Logger

	mu   sync.Mutex
	last map[string]string // realm + "/" + user id -> last code
}

func NewLogOTPSender(logger *slog.Logger) *LogOTPSender {
	return &LogOTPSender{
		logger: logger.With("module", "otp_sender"),
		last:   make(map[string]string),
	}
}

func (s *LogOTPSender) Send(ctx context.Context, realmID, userID, code string) error {
	s.mu.Lock()
	s.last[realmID+"/"+userID] = code
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "OTP code generated", "realm_id", realmID, "user_id", userID)

	return nil
}

// LastCode returns the most recent code sent to a user, for tests.
func (s *LogOTPSender) LastCode(realmID, userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.last[realmID+"/"+userID]
}
