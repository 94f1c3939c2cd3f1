// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"net/http"

	"prompthive/internal/models"
	"prompthive/internal/session"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// IdentityKey is the context key for the caller's identity.
	IdentityKey contextKey = "identity"
)

// LoadIdentity resolves the caller's identity from the session and guest
// cookies and stores it in the request context. It does not enforce
// anything; downstream handlers read it via IdentityFromCtx.
func LoadIdentity(p *session.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), p.Current(r))))
		})
	}
}

// EnsureGuest gives callers without any identity a guest session, so
// prompt routes always have a partition to work on. Must be applied after
// LoadIdentity.
func EnsureGuest(p *session.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IdentityFromCtx(r.Context()).Kind == models.IdentityNone {
				id := p.SignInAnonymously(r.Context(), w, r)
				r = r.WithContext(WithIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth answers 401 unless the caller is a signed-in user.
// Must be applied after LoadIdentity.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IdentityFromCtx(r.Context()).IsAuthenticated() {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}

// IdentityFromCtx extracts the identity from the request context. Returns
// the empty identity if none was loaded.
func IdentityFromCtx(ctx context.Context) models.Identity {
	id, _ := ctx.Value(IdentityKey).(models.Identity)
	return id
}
