//go:build !integration

package spamshield

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/userbotindo/anjani/internal/config"
	"github.com/userbotindo/anjani/internal/derror"
)

func TestCASCheck(t *testing.T) {
	t.Run("banned user", func(t *testing.T) {
		// Arrange
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("user_id") != "123" {
				t.Errorf("user_id = %q, want 123", r.URL.Query().Get("user_id"))
			}
			w.Write([]byte(`{"ok":true,"result":{"offenses":4}}`))
		}))
		defer srv.Close()
		cas := NewCAS(config.SpamShieldConfig{CASURL: srv.URL})

		// Act
		v, err := cas.Check(context.Background(), 123)

		// Assert
		if err != nil {
			t.Fatalf("Check error: %v", err)
		}
		if !v.Banned || v.Source != "cas" {
			t.Errorf("verdict = %+v, want banned by cas", v)
		}
	})

	t.Run("clean user", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"ok":false}`))
		}))
		defer srv.Close()
		cas := NewCAS(config.SpamShieldConfig{CASURL: srv.URL})

		v, err := cas.Check(context.Background(), 456)
		if err != nil {
			t.Fatalf("Check error: %v", err)
		}
		if v.Banned {
			t.Errorf("verdict = %+v, want clean", v)
		}
	})

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()
		cas := NewCAS(config.SpamShieldConfig{CASURL: srv.URL})

		if _, err := cas.Check(context.Background(), 1); err == nil {
			t.Fatal("expected error on 500, got nil")
		}
	})
}

func TestSpamWatchCheck(t *testing.T) {
	newServer := func(t *testing.T, status int, body string) *httptest.Server {
		t.Helper()
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
				t.Errorf("Authorization = %q, want bearer token", got)
			}
			w.WriteHeader(status)
			w.Write([]byte(body))
		}))
	}
	cfg := func(url string) config.SpamShieldConfig {
		return config.SpamShieldConfig{SpamWatchURL: url, SpamWatchToken: "token-1"}
	}

	t.Run("banned", func(t *testing.T) {
		srv := newServer(t, http.StatusOK, `{"id":123,"reason":"spambot"}`)
		defer srv.Close()

		v, err := NewSpamWatch(cfg(srv.URL)).Check(context.Background(), 123)
		if err != nil {
			t.Fatalf("Check error: %v", err)
		}
		if !v.Banned || v.Reason != "spambot" {
			t.Errorf("verdict = %+v, want banned with reason", v)
		}
	})

	t.Run("not banned", func(t *testing.T) {
		srv := newServer(t, http.StatusNotFound, "")
		defer srv.Close()

		v, err := NewSpamWatch(cfg(srv.URL)).Check(context.Background(), 123)
		if err != nil {
			t.Fatalf("Check error: %v", err)
		}
		if v.Banned {
			t.Errorf("verdict = %+v, want clean", v)
		}
	})

	t.Run("bad token", func(t *testing.T) {
		srv := newServer(t, http.StatusUnauthorized, "")
		defer srv.Close()

		if _, err := NewSpamWatch(cfg(srv.URL)).Check(context.Background(), 123); err == nil {
			t.Fatal("expected error on 401, got nil")
		}
	})

	t.Run("rate limited", func(t *testing.T) {
		srv := newServer(t, http.StatusTooManyRequests, "")
		defer srv.Close()

		_, err := NewSpamWatch(cfg(srv.URL)).Check(context.Background(), 123)
		if !errors.Is(err, derror.ErrRateLimited) {
			t.Errorf("error = %v, want ErrRateLimited", err)
		}
	})

	t.Run("disabled without token", func(t *testing.T) {
		sw := NewSpamWatch(config.SpamShieldConfig{SpamWatchURL: "http://unused.invalid"})
		if sw.Enabled() {
			t.Error("Enabled() = true without token")
		}

		v, err := sw.Check(context.Background(), 123)
		if err != nil || v.Banned {
			t.Errorf("disabled check = %+v, %v; want clean, nil", v, err)
		}
	})
}
