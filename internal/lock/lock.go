// Package lock guards registration requests with short-lived Redis keys so a
// double-submitted form is rejected instead of racing the database.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"ms-festbuzz/internal/logger"
)

// ErrHeld is returned when another request owns the lock.
var ErrHeld = errors.New("lock already held")

const defaultTTL = 10 * time.Second

// release deletes the key only if it still carries our token.
var release = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Locker struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewLocker(client *redis.Client, ttl time.Duration, log *logger.Logger) *Locker {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Locker{Client: client, TTL: ttl, Logger: log}
}

func key(userID, scope string) string {
	return fmt.Sprintf("registration_lock:%s:%s", userID, scope)
}

// Acquire takes the (user, scope) lock and returns its release func. A nil
// Locker or client always succeeds. Redis errors are logged and treated as
// success since the database constraints still hold.
func (l *Locker) Acquire(ctx context.Context, userID, scope string) (func(), error) {
	noop := func() {}
	if l == nil || l.Client == nil {
		return noop, nil
	}

	k := key(userID, scope)
	token := uuid.NewString()
	ok, err := l.Client.SetNX(ctx, k, token, l.TTL).Result()
	if err != nil {
		l.Logger.Warn("REDIS", fmt.Sprintf("lock %s unavailable: %v", k, err))
		return noop, nil
	}
	if !ok {
		return nil, ErrHeld
	}

	return func() {
		// the caller's ctx may already be cancelled
		if err := release.Run(context.Background(), l.Client, []string{k}, token).Err(); err != nil {
			l.Logger.Warn("REDIS", fmt.Sprintf("release %s: %v", k, err))
		}
	}, nil
}
