package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Lock is a best-effort distributed lock (SETNX with TTL). It guards
// one-shot jobs like broadcasts when multiple bot replicas run by mistake.
type Lock struct {
	client Client
	key    string
	token  string
	ttl    time.Duration
}

func NewLock(client Client, name string, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Lock{
		client: client,
		key:    fmt.Sprintf("lock:%s", name),
		token:  uuid.NewString(),
		ttl:    ttl,
	}
}

// Acquire returns true when this instance now holds the lock.
func (l *Lock) Acquire(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.token, l.ttl)
}

// Release frees the lock if this instance holds it.
func (l *Lock) Release(ctx context.Context) error {
	held, err := l.client.Get(ctx, l.key)
	if err != nil {
		return nil // expired or never held
	}
	if held != l.token {
		return nil
	}
	return l.client.Del(ctx, l.key)
}
