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

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/agrivoice/asr-bench/internal/config"
	"github.com/agrivoice/asr-bench/internal/logging"
	"github.com/agrivoice/asr-bench/internal/security"
)

// CookieName is the browser cookie carrying the opaque session token
const CookieName = "asrbench_session"

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// state tokens are single use and short lived
const stateTTL = 10 * time.Minute

// UserInfo is the identity returned by Google for a logged-in tester
type UserInfo struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

// ErrDomainNotAllowed is returned when a Google account outside the
// allowed domains completes the OAuth flow.
type ErrDomainNotAllowed struct {
	Email string
}

func (e *ErrDomainNotAllowed) Error() string {
	return fmt.Sprintf("access denied for %s: domain not allowed", e.Email)
}

// Authenticator glues the bench to Google OAuth and keeps the logged-in
// browser sessions. The OAuth protocol itself is the library's problem;
// this only drives the flow and gates on email domain.
type Authenticator struct {
	oauth       *oauth2.Config
	userInfoURL string
	allowed     map[string]struct{}

	mu       sync.RWMutex
	sessions map[string]*UserInfo
	states   map[string]time.Time
}

// New creates an Authenticator against Google's endpoints
func New(cfg config.AuthConfig) *Authenticator {
	return NewWithEndpoint(cfg, google.Endpoint, googleUserInfoURL)
}

// NewWithEndpoint creates an Authenticator against explicit endpoints;
// tests point it at a local server.
func NewWithEndpoint(cfg config.AuthConfig, endpoint oauth2.Endpoint, userInfoURL string) *Authenticator {
	allowed := make(map[string]struct{}, len(cfg.AllowedDomains))
	for _, domain := range cfg.AllowedDomains {
		allowed[strings.ToLower(domain)] = struct{}{}
	}

	return &Authenticator{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.RedirectURL, // must match the registered URI exactly, trailing slash included
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoint,
		},
		userInfoURL: userInfoURL,
		allowed:     allowed,
		sessions:    make(map[string]*UserInfo),
		states:      make(map[string]time.Time),
	}
}

// NewState mints a single-use CSRF state token for the login redirect.
// Abandoned redirects never come back through ConsumeState, so expired
// entries are swept here.
func (a *Authenticator) NewState() string {
	state := uuid.NewString()

	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	for s, expiry := range a.states {
		if now.After(expiry) {
			delete(a.states, s)
		}
	}

	a.states[state] = now.Add(stateTTL)
	return state
}

// ConsumeState validates and invalidates a state token from the callback
func (a *Authenticator) ConsumeState(state string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	expiry, ok := a.states[state]
	if !ok {
		return false
	}
	delete(a.states, state)
	return time.Now().Before(expiry)
}

// LoginURL returns the Google consent page URL for the given state
func (a *Authenticator) LoginURL(state string) string {
	return a.oauth.AuthCodeURL(state)
}

// Exchange trades the callback code for the tester's identity and applies
// the allowed-domain gate.
func (a *Authenticator) Exchange(ctx context.Context, code string) (*UserInfo, error) {
	token, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	user, err := a.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, err
	}

	if !a.domainAllowed(user.Email) {
		logging.LogWarn("Login rejected: domain not allowed")
		return nil, &ErrDomainNotAllowed{Email: user.Email}
	}

	logging.Sugar.Infow("Tester logged in",
		"email", security.SanitizeLogInput(user.Email),
		"name", security.SanitizeLogInput(user.Name))
	return user, nil
}

func (a *Authenticator) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error) {
	client := a.oauth.Client(ctx, token)

	resp, err := client.Get(a.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("userinfo request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var user UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to parse userinfo response: %w", err)
	}

	if user.Email == "" {
		return nil, fmt.Errorf("userinfo response missing email")
	}

	return &user, nil
}

func (a *Authenticator) domainAllowed(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	_, ok := a.allowed[strings.ToLower(email[at+1:])]
	return ok
}

// CreateSession stores a logged-in identity and returns its opaque token
func (a *Authenticator) CreateSession(user *UserInfo) string {
	token := uuid.NewString()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessions[token] = user
	return token
}

// Lookup resolves a session token back to the tester's identity
func (a *Authenticator) Lookup(token string) (*UserInfo, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	user, ok := a.sessions[token]
	return user, ok
}

// Destroy removes a session on logout
func (a *Authenticator) Destroy(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.sessions, token)
}
