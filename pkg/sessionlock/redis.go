package sessionlock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only if this holder still owns it, so
// a slow pass cannot release a lock that already expired and was re-taken.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// RedisLocker distributes session locks across API replicas using
// SET NX PX with an ownership token.
type RedisLocker struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisLocker(redisURL string, logger *slog.Logger) (*RedisLocker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	return &RedisLocker{
		client: redis.NewClient(opts),
		logger: logger.With("module", "sessionlock"),
	}, nil
}

func (l *RedisLocker) Acquire(ctx context.Context, sessionID string, ttl time.Duration) (func(), error) {
	token := make([]byte, 16)

	_, err := rand.Read(token)
	if err != nil {
		return nil, fmt.Errorf("failed to generate lock token: %w", err)
	}

	owner := hex.EncodeToString(token)
	key := "gatehouse:lock:session:" + sessionID

	ok, err := l.client.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire session lock: %w", err)
	}

	if !ok {
		return nil, ErrLocked
	}

	release := func() {
		// Release outlives the request context.
		err := l.client.Eval(context.Background(), releaseScript, []string{key}, owner).Err()
		if err != nil && err != redis.Nil {
			l.logger.Warn("Failed to release session lock", "session_id", sessionID, "error", err)
		}
	}

	return release, nil
}

func (l *RedisLocker) Close() error {
	return l.client.Close()
}
