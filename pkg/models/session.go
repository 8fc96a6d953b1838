package models

import "time"

// SessionStatus represents the lifecycle state of an authentication session.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"    // Flow in progress, may advance
	SessionStatusCompleted SessionStatus = "completed" // Terminal allow reached, tokens issued
	SessionStatusFailed    SessionStatus = "failed"    // Terminal deny reached
)

// AuthSession is the runtime instance of one login attempt. It is bound
// permanently to a single flow version: redeploys never change the behavior
// of an in-flight session.
type AuthSession struct {
	ID            string         `json:"id"`
	RealmID       string         `json:"realm_id"`
	FlowVersionID string         `json:"flow_version_id"`
	CurrentNodeID string         `json:"current_node_id"`
	Context       map[string]any `json:"context"`
	Status        SessionStatus  `json:"status"`
	UserID        string         `json:"user_id,omitempty"`
	Revision      int64          `json:"revision"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	ExpiresAt     time.Time      `json:"expires_at"`
}

// Put inserts or overwrites a top-level context key. Context keys are never
// deleted and nested values are treated as opaque: callers replace whole
// top-level entries rather than deep-merging.
func (s *AuthSession) Put(key string, value any) {
	if s.Context == nil {
		s.Context = make(map[string]any)
	}

	s.Context[key] = value
}

// Get returns a top-level context value.
func (s *AuthSession) Get(key string) (any, bool) {
	v, ok := s.Context[key]

	return v, ok
}

// GetString returns a top-level context value as a string, or "".
func (s *AuthSession) GetString(key string) string {
	v, _ := s.Context[key].(string)

	return v
}

// GetInt returns a top-level context value as an int, tolerating the
// float64 representation JSON round-trips produce.
func (s *AuthSession) GetInt(key string) int {
	switch v := s.Context[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Expired reports whether the session's TTL has elapsed.
func (s *AuthSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// SessionAction is a durable, single-use continuation ticket created when a
// node suspends awaiting an external event (a magic-link click, a push
// approval). ConsumedAt transitions from nil to a timestamp exactly once.
type SessionAction struct {
	ID           string         `json:"id"`
	SessionID    string         `json:"session_id"`
	RealmID      string         `json:"realm_id"`
	ActionType   string         `json:"action_type"`
	TokenHash    string         `json:"token_hash"`
	Payload      map[string]any `json:"payload,omitempty"`
	ResumeNodeID string         `json:"resume_node_id"`
	ExpiresAt    time.Time      `json:"expires_at"`
	ConsumedAt   *time.Time     `json:"consumed_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Expired reports whether the ticket's own TTL has elapsed. Ticket expiry
// is independent of the owning session's expiry.
func (a *SessionAction) Expired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}
