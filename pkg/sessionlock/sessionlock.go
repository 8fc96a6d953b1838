// Package sessionlock serializes executor passes over a single
// authentication session. Two concurrent submissions for the same session
// must not interleave; the loser gets ErrLocked and retries or surfaces a
// conflict to the caller.
package sessionlock

import (
	"context"
	"errors"
	"time"
)

// ErrLocked is returned when the session is already held by another pass.
var ErrLocked = errors.New("session is locked by another request")

// Locker provides per-session mutual exclusion. Acquire returns a release
// function that must be called when the executor pass finishes; ttl bounds
// how long a crashed holder can block the session.
type Locker interface {
	Acquire(ctx context.Context, sessionID string, ttl time.Duration) (release func(), err error)
	Close() error
}
