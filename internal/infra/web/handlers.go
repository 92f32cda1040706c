package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/userbotindo/anjani/internal/derror"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := http.StatusOK
	body := map[string]string{"status": "ok", "mongo": "ok", "redis": "ok"}

	if err := s.deps.Mongo.Ping(ctx); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["mongo"] = err.Error()
	}
	if err := s.deps.Redis.Ping(ctx); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["redis"] = err.Error()
	}
	writeJSON(w, status, body)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Secret string `json:"secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if !s.auth.CheckLogin(req.Secret) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	token, err := s.auth.Mint("admin")
	if err != nil {
		s.log.Error().Err(err).Msg("token mint failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	chats, err := s.deps.Chats.Count(ctx)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	users, err := s.deps.Users.Count(ctx)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"chats":          chats,
		"users":          users,
		"uptime_seconds": int64(time.Since(s.deps.StartedAt()).Seconds()),
	})
}

func (s *Server) handleChats(w http.ResponseWriter, r *http.Request) {
	limit := int64(50)
	offset := int64(0)
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			offset = n
		}
	}

	chats, err := s.deps.Chats.List(r.Context(), limit, offset)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	type chatOut struct {
		ChatID   int64  `json:"chat_id"`
		ChatName string `json:"chat_name"`
		Members  int    `json:"members"`
	}
	out := make([]chatOut, 0, len(chats))
	for _, c := range chats {
		out = append(out, chatOut{ChatID: c.ChatID, ChatName: c.ChatName, Members: len(c.Members)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "bad chat id", http.StatusBadRequest)
		return
	}

	chat, err := s.deps.Chats.Get(r.Context(), id)
	if errors.Is(err, derror.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"chat_id":   chat.ChatID,
		"chat_name": chat.ChatName,
		"members":   len(chat.Members),
	})
}
