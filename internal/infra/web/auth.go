package web

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const sessionCookie = "anjani_session"

var errInvalidToken = errors.New("invalid session token")

// AuthManager mints and validates the admin API's HS256 session tokens.
type AuthManager struct {
	jwtSecret   []byte
	loginSecret string
	ttl         time.Duration
}

func NewAuthManager(jwtSecret, loginSecret string, ttl time.Duration) *AuthManager {
	return &AuthManager{
		jwtSecret:   []byte(jwtSecret),
		loginSecret: loginSecret,
		ttl:         ttl,
	}
}

// CheckLogin compares the presented secret in constant time.
func (a *AuthManager) CheckLogin(secret string) bool {
	if a.loginSecret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(a.loginSecret)) == 1
}

// Mint issues a session token.
func (a *AuthManager) Mint(subject string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.jwtSecret)
}

// Parse validates a token and returns its subject.
func (a *AuthManager) Parse(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return a.jwtSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return "", errInvalidToken
	}
	return claims.Subject, nil
}

// Middleware rejects requests without a valid bearer token or session cookie.
func (a *AuthManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimPrefix(h, "Bearer ")
		} else if c, err := r.Cookie(sessionCookie); err == nil {
			token = c.Value
		}

		if token == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if _, err := a.Parse(token); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
