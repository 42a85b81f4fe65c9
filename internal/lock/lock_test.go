package lock_test

import (
	"context"
	"testing"
	"time"

	"ms-festbuzz/internal/lock"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

// held reports whether the (user, scope) lock key is present in Redis.
func held(mr *miniredis.Miniredis, userID, scope string) bool {
	return mr.Exists("registration_lock:" + userID + ":" + scope)
}

func TestLocker_AcquireAndRelease(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := lock.NewLocker(client, time.Minute, nil)
	ctx := context.Background()

	unlock, err := l.Acquire(ctx, "user-1", "fest:f1")
	require.NoError(t, err)

	// A second request for the same scope is rejected
	_, err = l.Acquire(ctx, "user-1", "fest:f1")
	assert.ErrorIs(t, err, lock.ErrHeld)

	// Other users and scopes are unaffected
	other, err := l.Acquire(ctx, "user-2", "fest:f1")
	require.NoError(t, err)
	other()

	assert.True(t, held(mr, "user-1", "fest:f1"))
	unlock()
	assert.False(t, held(mr, "user-1", "fest:f1"))

	again, err := l.Acquire(ctx, "user-1", "fest:f1")
	require.NoError(t, err)
	again()
}

func TestLocker_ExpiresAfterTTL(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := lock.NewLocker(client, 5*time.Second, nil)
	ctx := context.Background()

	_, err := l.Acquire(ctx, "user-1", "event:e1")
	require.NoError(t, err)

	mr.FastForward(6 * time.Second)

	unlock, err := l.Acquire(ctx, "user-1", "event:e1")
	require.NoError(t, err)
	unlock()
}

func TestLocker_StaleReleaseKeepsNewOwner(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := lock.NewLocker(client, 5*time.Second, nil)
	ctx := context.Background()

	stale, err := l.Acquire(ctx, "user-1", "event:e1")
	require.NoError(t, err)
	mr.FastForward(6 * time.Second)

	_, err = l.Acquire(ctx, "user-1", "event:e1")
	require.NoError(t, err)

	// The expired owner must not delete the new owner's key
	stale()
	assert.True(t, held(mr, "user-1", "event:e1"))
}

func TestLocker_RedisDownIsIgnored(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := lock.NewLocker(client, time.Second, nil)
	mr.Close()

	unlock, err := l.Acquire(context.Background(), "user-1", "fest:f1")
	require.NoError(t, err)
	unlock()
}

func TestLocker_NilIsNoop(t *testing.T) {
	var l *lock.Locker
	unlock, err := l.Acquire(context.Background(), "user-1", "fest:f1")
	require.NoError(t, err)
	unlock()
}
