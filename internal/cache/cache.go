package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const statsTTL = 5 * time.Minute

// Cache holds short-lived per-user statistics payloads in Redis so the trend
// queries do not hit Postgres on every dashboard refresh. Misses and Redis
// errors both fall through to the database.
type Cache struct {
	rdb *redis.Client
}

func New(addr string) *Cache {
	return &Cache{rdb: redis.NewClient(&redis.Options{Addr: addr})}
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func statsKey(userID uuid.UUID, days int) string {
	return fmt.Sprintf("speechcoach:stats:%s:%d", userID, days)
}

// GetStats loads a cached statistics payload into dst. The second return is
// false on miss or any Redis error.
func (c *Cache) GetStats(ctx context.Context, userID uuid.UUID, days int, dst interface{}) bool {
	data, err := c.rdb.Get(ctx, statsKey(userID, days)).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (c *Cache) SetStats(ctx context.Context, userID uuid.UUID, days int, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, statsKey(userID, days), data, statsTTL)
}

// InvalidateUser drops every cached statistics window for the user, called
// whenever a new analysis result lands.
func (c *Cache) InvalidateUser(ctx context.Context, userID uuid.UUID) {
	pattern := fmt.Sprintf("speechcoach:stats:%s:*", userID)
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		c.rdb.Del(ctx, iter.Val())
	}
}

func (c *Cache) Close() error {
	return c.rdb.Close()
}
