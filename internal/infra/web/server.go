// Package web exposes the health, metrics and admin API endpoints.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/userbotindo/anjani/internal/config"
	"github.com/userbotindo/anjani/internal/infra/logging"
	"github.com/userbotindo/anjani/internal/infra/mongo"
)

// Pinger is anything whose liveness the health endpoint reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps carries everything the handlers read from.
type Deps struct {
	Mongo Pinger
	Redis Pinger
	Chats mongo.ChatRepository
	Users mongo.UserRepository
	// StartedAt feeds the uptime field in /api/v1/stats.
	StartedAt func() time.Time
}

// Server is the embedded HTTP server next to the bot.
type Server struct {
	srv  *http.Server
	log  *zerolog.Logger
	auth *AuthManager
	deps Deps
}

func NewServer(cfg config.WebConfig, deps Deps, base *zerolog.Logger) *Server {
	s := &Server{
		log:  logging.Component(base, "web"),
		auth: NewAuthManager(cfg.JWTSecret, cfg.LoginSecret, cfg.SessionTTL),
		deps: deps,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/api/v1/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Middleware)
		r.Get("/api/v1/stats", s.handleStats)
		r.Get("/api/v1/chats", s.handleChats)
		r.Get("/api/v1/chats/{id}", s.handleChat)
	})

	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until ctx is cancelled, then drains with a grace period.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}
