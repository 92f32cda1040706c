package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter is the anti-flood limiter: a fixed window counter per key.
type RateLimiter struct {
	client Client
}

func NewRateLimiter(client Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow increments the window counter and reports whether the caller is
// still under the limit.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, window); err != nil {
			return false, err
		}
	}

	return count <= int64(limit), nil
}

// CommandKey builds the per-user-per-command anti-flood key.
func CommandKey(userID int64, command string) string {
	return fmt.Sprintf("flood:%d:%s", userID, command)
}
