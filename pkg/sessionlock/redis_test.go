package sessionlock_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse-id/gatehouse/pkg/sessionlock"
)

func newRedisLocker(t *testing.T) (*sessionlock.RedisLocker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	locker, err := sessionlock.NewRedisLocker("redis://"+mr.Addr(), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = locker.Close() })

	return locker, mr
}

func TestRedisLocker_AcquireAndRelease(t *testing.T) {
	locker, _ := newRedisLocker(t)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "s1", time.Minute)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "s1", time.Minute)
	assert.ErrorIs(t, err, sessionlock.ErrLocked)

	release()

	release2, err := locker.Acquire(ctx, "s1", time.Minute)
	require.NoError(t, err)
	release2()
}

func TestRedisLocker_TTLExpiry(t *testing.T) {
	locker, mr := newRedisLocker(t)
	ctx := context.Background()

	_, err := locker.Acquire(ctx, "s1", 50*time.Millisecond)
	require.NoError(t, err)

	mr.FastForward(time.Second)

	release, err := locker.Acquire(ctx, "s1", time.Minute)
	require.NoError(t, err)
	release()
}

func TestRedisLocker_ReleaseIsOwnershipChecked(t *testing.T) {
	locker, mr := newRedisLocker(t)
	ctx := context.Background()

	staleRelease, err := locker.Acquire(ctx, "s1", 50*time.Millisecond)
	require.NoError(t, err)

	// The first holder's lock expires and a second holder takes over.
	mr.FastForward(time.Second)

	release, err := locker.Acquire(ctx, "s1", time.Minute)
	require.NoError(t, err)
	defer release()

	// The stale release must not delete the new holder's lock.
	staleRelease()

	_, err = locker.Acquire(ctx, "s1", time.Minute)
	assert.ErrorIs(t, err, sessionlock.ErrLocked)
}

func TestRedisLocker_InvalidURL(t *testing.T) {
	_, err := sessionlock.NewRedisLocker("not-a-url", slog.Default())
	assert.Error(t, err)
}
