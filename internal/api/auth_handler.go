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

package api

import (
	"errors"
	"net/http"

	"github.com/agrivoice/asr-bench/internal/auth"
	"github.com/agrivoice/asr-bench/internal/logging"
	"github.com/agrivoice/asr-bench/internal/session"
)

// AuthHandler drives the Google login flow and session cookies
type AuthHandler struct {
	auth     *auth.Authenticator
	sessions *session.Manager
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authenticator *auth.Authenticator, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{auth: authenticator, sessions: sessions}
}

// HandleLogin handles GET /auth/login by redirecting to Google's consent page
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, KindConflict, "method not allowed")
		return
	}

	state := h.auth.NewState()
	http.Redirect(w, r, h.auth.LoginURL(state), http.StatusFound)
}

// HandleCallback handles GET /auth/callback: code exchange, domain gate,
// session cookie.
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errMsg := query.Get("error"); errMsg != "" {
		writeError(w, http.StatusUnauthorized, KindAuth, "authentication failed: "+errMsg)
		return
	}

	state := query.Get("state")
	if state == "" || !h.auth.ConsumeState(state) {
		writeError(w, http.StatusUnauthorized, KindAuth, "invalid or expired login state")
		return
	}

	code := query.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, KindAuth, "missing authorization code")
		return
	}

	user, err := h.auth.Exchange(r.Context(), code)
	if err != nil {
		var denied *auth.ErrDomainNotAllowed
		if errors.As(err, &denied) {
			writeError(w, http.StatusForbidden, KindAuth,
				"access denied: use a Google account or Sarvam email")
			return
		}
		logging.LogError(err, "OAuth code exchange failed")
		writeError(w, http.StatusUnauthorized, KindAuth, "authentication failed, try again")
		return
	}

	token := h.auth.CreateSession(user)
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusFound)
}

// HandleLogout handles POST /auth/logout, dropping both the login and any
// unfinished test run.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, KindConflict, "method not allowed")
		return
	}

	cookie, err := r.Cookie(auth.CookieName)
	if err == nil && cookie.Value != "" {
		h.sessions.Drop(cookie.Value)
		h.auth.Destroy(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}
