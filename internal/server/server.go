/*
 * This file is part of AgriVoice ASR Bench (https://github.com/agrivoice/asr-bench).
 * Copyright (C) 2025 AgriVoice Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/agrivoice/asr-bench/internal/api"
	"github.com/agrivoice/asr-bench/internal/asr"
	"github.com/agrivoice/asr-bench/internal/auth"
	"github.com/agrivoice/asr-bench/internal/config"
	"github.com/agrivoice/asr-bench/internal/logging"
	"github.com/agrivoice/asr-bench/internal/messaging"
	"github.com/agrivoice/asr-bench/internal/session"
	"github.com/agrivoice/asr-bench/internal/storage"
)

// Components are the injectable collaborators of the server. Any nil field
// gets a default built from the config; tests swap in fakes.
type Components struct {
	Transcriber   asr.Transcriber
	Store         *storage.AttemptsStore
	Publisher     *messaging.Publisher
	Authenticator *auth.Authenticator
}

// Server represents the HTTP benchmarking hub
type Server struct {
	cfg      *config.Config
	mux      *http.ServeMux
	server   *http.Server
	sessions *session.Manager

	transcriber   asr.Transcriber
	authenticator *auth.Authenticator

	// Server context for graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new server with default components built from cfg
func New(cfg *config.Config) *Server {
	return NewWithComponents(cfg, Components{})
}

// NewWithComponents creates a new server, filling in any components the
// caller did not supply.
func NewWithComponents(cfg *config.Config, components Components) *Server {
	mux := http.NewServeMux()
	ctx, cancel := context.WithCancel(context.Background())

	transcriber := components.Transcriber
	if transcriber == nil {
		transcriber = asr.NewClient(cfg.ASR.URL, cfg.ASR.APIKey, cfg.ASR.Model, cfg.ASR.Timeout)
	}

	authenticator := components.Authenticator
	if authenticator == nil {
		authenticator = auth.New(cfg.Auth)
	}

	sessions := session.NewManager(transcriber, components.Store, components.Publisher)

	s := &Server{
		cfg:           cfg,
		mux:           mux,
		sessions:      sessions,
		transcriber:   transcriber,
		authenticator: authenticator,
		ctx:           ctx,
		cancel:        cancel,
	}

	s.server = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      s.mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.routes(components.Store)

	return s
}

// Handler exposes the route table for httptest servers
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the HTTP server and blocks until shutdown
func (s *Server) Start() error {
	logging.Sugar.Infow("🚀 ASR bench starting",
		"addr", s.server.Addr,
		"asr_url", s.cfg.ASR.URL,
		"asr_model", s.cfg.ASR.Model)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	logging.Sugar.Infow("🛑 Shutting down ASR bench")

	s.cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if err := s.transcriber.Close(); err != nil {
		logging.LogError(err, "Failed to close transcription client")
	}

	logging.Sugar.Infow("✅ ASR bench shut down successfully")
	return nil
}

// routes sets up HTTP routing. Everything under /api requires a login
// cookie; the auth flow and health check stay public.
func (s *Server) routes(store *storage.AttemptsStore) {
	authHandler := api.NewAuthHandler(s.authenticator, s.sessions)
	sessionHandler := api.NewSessionHandler(s.sessions)

	s.mux.HandleFunc("/health", s.handleHealth)

	s.mux.HandleFunc("/auth/login", authHandler.HandleLogin)
	s.mux.HandleFunc("/auth/callback", authHandler.HandleCallback)
	s.mux.HandleFunc("/auth/logout", authHandler.HandleLogout)

	protect := func(next http.HandlerFunc) http.HandlerFunc {
		return api.RequireAuth(s.authenticator, next)
	}

	s.mux.HandleFunc("/api/me", protect(s.handleMe))
	s.mux.HandleFunc("/api/session", protect(sessionHandler.HandleSession))
	s.mux.HandleFunc("/api/session/current", protect(sessionHandler.HandleCurrent))
	s.mux.HandleFunc("/api/session/recordings", protect(sessionHandler.HandleSubmit))
	s.mux.HandleFunc("/api/session/advance", protect(sessionHandler.HandleAdvance))
	s.mux.HandleFunc("/api/session/previous", protect(sessionHandler.HandlePrevious))
	s.mux.HandleFunc("/api/session/skip", protect(sessionHandler.HandleSkip))
	s.mux.HandleFunc("/api/session/export", protect(sessionHandler.HandleExport))

	if store != nil {
		attemptsHandler := api.NewAttemptsHandler(store)
		s.mux.HandleFunc("/api/attempts", protect(attemptsHandler.HandleAttempts))
		s.mux.HandleFunc("/api/attempts/", protect(attemptsHandler.HandleAttemptByID))
	}

	logging.Sugar.Infow("🌐 HTTP routes configured",
		"login_endpoint", "/auth/login",
		"session_endpoint", "/api/session",
		"recordings_endpoint", "/api/session/recordings",
		"attempts_enabled", store != nil)
}

// handleHealth provides system health information
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
		"asr_model": s.cfg.ASR.Model,
		"language":  s.cfg.ASR.Language,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		logging.Sugar.Errorw("Failed to write health response", "error", err)
	}
}

// handleMe returns the logged-in user's profile
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := api.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(identity.User); err != nil {
		logging.Sugar.Errorw("Failed to write profile response", "error", err)
	}
}
