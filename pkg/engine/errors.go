package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired means the session's TTL elapsed; the caller must
	// restart the flow.
	ErrSessionExpired = errors.New("session expired")

	// ErrSessionFinished means the session already reached a terminal
	// state; no further transitions are accepted.
	ErrSessionFinished = errors.New("session already finished")

	// ErrActionExpired means the continuation ticket's own TTL elapsed.
	ErrActionExpired = errors.New("action ticket expired")

	// ErrActionMismatch means the ticket resolves to a session that has
	// since moved off the suspending node.
	ErrActionMismatch = errors.New("action ticket no longer matches session position")
)

// InvariantError signals a compiler or registry inconsistency observed at
// runtime: a produced output with no wired handle, or the hop cap tripping.
// It is fatal for the request and never corrupts the persisted session.
type InvariantError struct {
	SessionID string
	NodeID    string
	Message   string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("runtime invariant violated at node %s: %s", e.NodeID, e.Message)
}

// IsInvariantError reports whether err is a runtime invariant violation.
func IsInvariantError(err error) bool {
	var ie *InvariantError

	return errors.As(err, &ie)
}
