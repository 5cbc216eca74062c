package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"loopchat_backend/internal/config"
)

const presenceTTL = 24 * time.Hour

// PresenceCache mirrors online/last-seen state in redis so other instances
// and ops tooling can read presence cheaply. The database stays
// authoritative; a nil cache is a no-op.
type PresenceCache struct {
	client *redis.Client
}

// NewPresenceCache returns nil when redis is disabled; all methods are
// nil-safe.
func NewPresenceCache(cfg config.RedisConfig) *PresenceCache {
	if !cfg.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &PresenceCache{client: client}
}

func presenceKey(userID string) string {
	return fmt.Sprintf("presence:%s", userID)
}

func (c *PresenceCache) SetOnline(ctx context.Context, userID string) error {
	if c == nil {
		return nil
	}
	return c.client.Set(ctx, presenceKey(userID), "online", presenceTTL).Err()
}

func (c *PresenceCache) SetOffline(ctx context.Context, userID string, lastSeen time.Time) error {
	if c == nil {
		return nil
	}
	return c.client.Set(ctx, presenceKey(userID), lastSeen.UTC().Format(time.RFC3339), presenceTTL).Err()
}

// Get returns "online" or an RFC3339 last-seen timestamp; ok is false on
// a miss or when the cache is disabled.
func (c *PresenceCache) Get(ctx context.Context, userID string) (string, bool, error) {
	if c == nil {
		return "", false, nil
	}
	val, err := c.client.Get(ctx, presenceKey(userID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *PresenceCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
