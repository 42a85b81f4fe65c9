package roles

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-festbuzz/internal/models"
)

// cachedRole is what Redis holds for one (user, festival). An empty Role
// records that the user holds nothing there.
type cachedRole struct {
	Role      models.FestivalRole `json:"role"`
	ExpiresAt time.Time           `json:"expires_at,omitempty"`
}

// effective drops roles whose own expiry passed while cached.
func (c *cachedRole) effective(now time.Time) models.FestivalRole {
	if c.ExpiresAt.IsZero() || now.Before(c.ExpiresAt) {
		return c.Role
	}
	return ""
}

// RedisRoleCache caches festival roles in Redis with a fixed TTL.
type RedisRoleCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisRoleCache(client *redis.Client, ttl time.Duration) *RedisRoleCache {
	return &RedisRoleCache{Client: client, TTL: ttl}
}

func cacheKey(userID, festID string) string {
	return fmt.Sprintf("festival_role:%s:%s", festID, userID)
}

// Get returns nil on a cache miss.
func (c *RedisRoleCache) Get(ctx context.Context, userID, festID string) (*cachedRole, error) {
	raw, err := c.Client.Get(ctx, cacheKey(userID, festID)).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get role from Redis: %w", err)
	}

	var cr cachedRole
	if err := json.Unmarshal([]byte(raw), &cr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached role: %w", err)
	}
	return &cr, nil
}

func (c *RedisRoleCache) Set(ctx context.Context, userID, festID string, cr cachedRole) error {
	raw, err := json.Marshal(cr)
	if err != nil {
		return fmt.Errorf("failed to marshal cached role: %w", err)
	}
	if err := c.Client.Set(ctx, cacheKey(userID, festID), raw, c.TTL).Err(); err != nil {
		return fmt.Errorf("failed to store role in Redis: %w", err)
	}
	return nil
}

func (c *RedisRoleCache) Invalidate(ctx context.Context, userID, festID string) error {
	return c.Client.Del(ctx, cacheKey(userID, festID)).Err()
}
