//go:build !integration

package web

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheckLogin(t *testing.T) {
	am := NewAuthManager("jwt-secret", "login-secret", time.Hour)

	t.Run("correct secret", func(t *testing.T) {
		if !am.CheckLogin("login-secret") {
			t.Error("CheckLogin rejected the configured secret")
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		if am.CheckLogin("nope") {
			t.Error("CheckLogin accepted a wrong secret")
		}
	})

	t.Run("unset secret always fails", func(t *testing.T) {
		unset := NewAuthManager("jwt-secret", "", time.Hour)
		if unset.CheckLogin("") {
			t.Error("CheckLogin accepted the empty secret when none is configured")
		}
	})
}

func TestMintAndParse(t *testing.T) {
	am := NewAuthManager("jwt-secret", "login-secret", time.Hour)

	t.Run("round trip", func(t *testing.T) {
		token, err := am.Mint("admin")
		if err != nil {
			t.Fatalf("Mint error: %v", err)
		}

		subject, err := am.Parse(token)
		if err != nil {
			t.Fatalf("Parse error: %v", err)
		}
		if subject != "admin" {
			t.Errorf("subject = %q, want admin", subject)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		if _, err := am.Parse("not.a.token"); err == nil {
			t.Fatal("expected error for garbage token, got nil")
		}
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other := NewAuthManager("different-secret", "login-secret", time.Hour)
		token, err := other.Mint("admin")
		if err != nil {
			t.Fatalf("Mint error: %v", err)
		}

		if _, err := am.Parse(token); err == nil {
			t.Fatal("expected error for token signed with another key, got nil")
		}
	})

	t.Run("expired token", func(t *testing.T) {
		expired := NewAuthManager("jwt-secret", "login-secret", -time.Minute)
		token, err := expired.Mint("admin")
		if err != nil {
			t.Fatalf("Mint error: %v", err)
		}

		if _, err := am.Parse(token); err == nil {
			t.Fatal("expected error for expired token, got nil")
		}
	})
}

func TestAuthMiddleware(t *testing.T) {
	am := NewAuthManager("jwt-secret", "login-secret", time.Hour)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := am.Middleware(next)

	token, err := am.Mint("admin")
	if err != nil {
		t.Fatalf("Mint error: %v", err)
	}

	t.Run("bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", rec.Code)
		}
	})

	t.Run("session cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", rec.Code)
		}
	})

	t.Run("no credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		req.Header.Set("Authorization", "Bearer bogus")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}
