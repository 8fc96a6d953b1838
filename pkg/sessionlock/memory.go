package sessionlock

import (
	"context"
	"sync"
	"time"
)

type memoryLock struct {
	owner    uint64
	deadline time.Time
}

// MemoryLocker is the single-process Locker used in development and tests.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]memoryLock
	next  uint64
	clock func() time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		held:  make(map[string]memoryLock),
		clock: time.Now,
	}
}

func (l *MemoryLocker) Acquire(ctx context.Context, sessionID string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()

	current, taken := l.held[sessionID]
	if taken && now.Before(current.deadline) {
		return nil, ErrLocked
	}

	l.next++
	owner := l.next
	l.held[sessionID] = memoryLock{owner: owner, deadline: now.Add(ttl)}

	// Release only drops the lock for the acquisition that took it. A
	// holder releasing after its TTL elapsed must not free a lock another
	// pass has since acquired.
	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()

		if held, ok := l.held[sessionID]; ok && held.owner == owner {
			delete(l.held, sessionID)
		}
	}

	return release, nil
}

func (l *MemoryLocker) Close() error {
	return nil
}
