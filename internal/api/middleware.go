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
	"context"
	"net/http"

	"github.com/agrivoice/asr-bench/internal/auth"
)

// Identity is the authenticated caller attached to a request. The token
// doubles as the test-session key, so one login owns one run at a time.
type Identity struct {
	Token string
	User  *auth.UserInfo
}

type contextKey struct{}

var identityKey contextKey

// WithIdentity attaches an identity to the request context
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom extracts the authenticated caller, if any
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok
}

// RequireAuth rejects requests without a valid session cookie
func RequireAuth(authenticator *auth.Authenticator, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(auth.CookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusUnauthorized, KindAuth, "login required")
			return
		}

		user, ok := authenticator.Lookup(cookie.Value)
		if !ok {
			writeError(w, http.StatusUnauthorized, KindAuth, "session expired, log in again")
			return
		}

		id := &Identity{Token: cookie.Value, User: user}
		next(w, r.WithContext(WithIdentity(r.Context(), id)))
	}
}
