package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Cache stores small JSON blobs with a TTL. Used for chat admin lists and
// spam-check verdicts so hot paths avoid repeated Telegram/HTTP calls.
type Cache struct {
	client Client
	ttl    time.Duration
}

func NewCache(client Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{client: client, ttl: ttl}
}

// Get unmarshals the cached value into dst. Returns false on miss.
func (c *Cache) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, key)
	if errors.Is(err, ErrNil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		// Stale or corrupt entry; drop it and treat as a miss.
		_ = c.client.Del(ctx, key)
		return false, nil
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	return c.client.Set(ctx, key, raw, c.ttl)
}

func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	return c.client.Del(ctx, keys...)
}

func AdminsKey(chatID int64) string { return fmt.Sprintf("admins:%d", chatID) }

func SpamVerdictKey(userID int64) string { return fmt.Sprintf("spam:%d", userID) }
