//go:build !integration

package redis

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mockClient struct {
	PingFunc   func(ctx context.Context) error
	SetFunc    func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	SetNXFunc  func(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	GetFunc    func(ctx context.Context, key string) (string, error)
	IncrFunc   func(ctx context.Context, key string) (int64, error)
	ExpireFunc func(ctx context.Context, key string, expiration time.Duration) error
	DelFunc    func(ctx context.Context, keys ...string) error
}

func (m *mockClient) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

func (m *mockClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, expiration)
	}
	return nil
}

func (m *mockClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	if m.SetNXFunc != nil {
		return m.SetNXFunc(ctx, key, value, expiration)
	}
	return true, nil
}

func (m *mockClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	return "", ErrNil
}

func (m *mockClient) Incr(ctx context.Context, key string) (int64, error) {
	if m.IncrFunc != nil {
		return m.IncrFunc(ctx, key)
	}
	return 1, nil
}

func (m *mockClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	if m.ExpireFunc != nil {
		return m.ExpireFunc(ctx, key, expiration)
	}
	return nil
}

func (m *mockClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc != nil {
		return m.DelFunc(ctx, keys...)
	}
	return nil
}

func (m *mockClient) Close() error { return nil }

func TestRateLimiterAllow(t *testing.T) {
	t.Run("first hit sets the window", func(t *testing.T) {
		// Arrange
		var expired bool
		client := &mockClient{
			IncrFunc: func(ctx context.Context, key string) (int64, error) { return 1, nil },
			ExpireFunc: func(ctx context.Context, key string, expiration time.Duration) error {
				expired = true
				if expiration != 10*time.Second {
					t.Errorf("expiration = %s, want 10s", expiration)
				}
				return nil
			},
		}
		rl := NewRateLimiter(client)

		// Act
		ok, err := rl.Allow(context.Background(), "flood:1:ban", 5, 10*time.Second)

		// Assert
		if err != nil {
			t.Fatalf("Allow error: %v", err)
		}
		if !ok {
			t.Error("first hit should be allowed")
		}
		if !expired {
			t.Error("expiry was not set on the first hit")
		}
	})

	t.Run("within the limit", func(t *testing.T) {
		client := &mockClient{
			IncrFunc: func(ctx context.Context, key string) (int64, error) { return 5, nil },
		}
		ok, err := NewRateLimiter(client).Allow(context.Background(), "k", 5, time.Second)
		if err != nil || !ok {
			t.Errorf("Allow = %v, %v; want true, nil at the limit", ok, err)
		}
	})

	t.Run("over the limit", func(t *testing.T) {
		client := &mockClient{
			IncrFunc: func(ctx context.Context, key string) (int64, error) { return 6, nil },
		}
		ok, err := NewRateLimiter(client).Allow(context.Background(), "k", 5, time.Second)
		if err != nil {
			t.Fatalf("Allow error: %v", err)
		}
		if ok {
			t.Error("sixth hit should be denied")
		}
	})

	t.Run("incr failure propagates", func(t *testing.T) {
		wantErr := errors.New("redis down")
		client := &mockClient{
			IncrFunc: func(ctx context.Context, key string) (int64, error) { return 0, wantErr },
		}
		_, err := NewRateLimiter(client).Allow(context.Background(), "k", 5, time.Second)
		if !errors.Is(err, wantErr) {
			t.Errorf("error = %v, want the incr failure", err)
		}
	})
}

func TestCache(t *testing.T) {
	t.Run("miss", func(t *testing.T) {
		cache := NewCache(&mockClient{}, time.Hour)

		var dst string
		ok, err := cache.Get(context.Background(), "k", &dst)
		if err != nil {
			t.Fatalf("Get error: %v", err)
		}
		if ok {
			t.Error("Get reported a hit on a missing key")
		}
	})

	t.Run("round trip", func(t *testing.T) {
		store := map[string]string{}
		client := &mockClient{
			SetFunc: func(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
				store[key] = string(value.([]byte))
				return nil
			},
			GetFunc: func(ctx context.Context, key string) (string, error) {
				v, ok := store[key]
				if !ok {
					return "", ErrNil
				}
				return v, nil
			},
		}
		cache := NewCache(client, time.Hour)

		type verdict struct {
			Banned bool   `json:"banned"`
			Source string `json:"source"`
		}
		if err := cache.Set(context.Background(), "spam:1", verdict{Banned: true, Source: "cas"}); err != nil {
			t.Fatalf("Set error: %v", err)
		}

		var got verdict
		ok, err := cache.Get(context.Background(), "spam:1", &got)
		if err != nil || !ok {
			t.Fatalf("Get = %v, %v; want hit", ok, err)
		}
		if !got.Banned || got.Source != "cas" {
			t.Errorf("cached value = %+v", got)
		}
	})

	t.Run("corrupt entry treated as miss and dropped", func(t *testing.T) {
		var deleted bool
		client := &mockClient{
			GetFunc: func(ctx context.Context, key string) (string, error) { return "{not json", nil },
			DelFunc: func(ctx context.Context, keys ...string) error {
				deleted = true
				return nil
			},
		}
		cache := NewCache(client, time.Hour)

		var dst map[string]string
		ok, err := cache.Get(context.Background(), "k", &dst)
		if err != nil || ok {
			t.Errorf("Get = %v, %v; want miss without error", ok, err)
		}
		if !deleted {
			t.Error("corrupt entry was not dropped")
		}
	})
}

func TestLock(t *testing.T) {
	t.Run("acquire and release", func(t *testing.T) {
		store := map[string]string{}
		client := &mockClient{
			SetNXFunc: func(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
				if _, held := store[key]; held {
					return false, nil
				}
				store[key] = value.(string)
				return true, nil
			},
			GetFunc: func(ctx context.Context, key string) (string, error) {
				v, ok := store[key]
				if !ok {
					return "", ErrNil
				}
				return v, nil
			},
			DelFunc: func(ctx context.Context, keys ...string) error {
				for _, k := range keys {
					delete(store, k)
				}
				return nil
			},
		}

		first := NewLock(client, "broadcast", time.Minute)
		second := NewLock(client, "broadcast", time.Minute)

		ok, err := first.Acquire(context.Background())
		if err != nil || !ok {
			t.Fatalf("first Acquire = %v, %v; want held", ok, err)
		}

		ok, err = second.Acquire(context.Background())
		if err != nil || ok {
			t.Fatalf("second Acquire = %v, %v; want denied", ok, err)
		}

		if err := first.Release(context.Background()); err != nil {
			t.Fatalf("Release error: %v", err)
		}

		ok, err = second.Acquire(context.Background())
		if err != nil || !ok {
			t.Errorf("Acquire after release = %v, %v; want held", ok, err)
		}
	})

	t.Run("release by non-holder is a no-op", func(t *testing.T) {
		var deleted bool
		client := &mockClient{
			GetFunc: func(ctx context.Context, key string) (string, error) { return "someone-else", nil },
			DelFunc: func(ctx context.Context, keys ...string) error {
				deleted = true
				return nil
			},
		}

		lock := NewLock(client, "broadcast", time.Minute)
		if err := lock.Release(context.Background()); err != nil {
			t.Fatalf("Release error: %v", err)
		}
		if deleted {
			t.Error("released a lock held by another instance")
		}
	})
}
