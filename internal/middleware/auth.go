// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"inkpress/internal/session"
)

type sessionCtxKey struct{}

const (
	// LoginPath is where unauthenticated admin requests are sent.
	LoginPath = "/admin/login"
	// DashboardPath is the landing page after sign-in.
	DashboardPath = "/admin/dashboard"
)

// SessionLoader resolves the session attached to a request.
// *session.Store satisfies it.
type SessionLoader interface {
	Get(ctx context.Context, r *http.Request) (*session.Data, error)
}

// WithSession returns ctx carrying data, as LoadSession leaves it.
func WithSession(ctx context.Context, data *session.Data) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, data)
}

// SessionFromCtx returns the signed-in admin, or nil for visitors.
func SessionFromCtx(ctx context.Context) *session.Data {
	data, _ := ctx.Value(sessionCtxKey{}).(*session.Data)
	return data
}

// LoadSession looks the session up once per request. A failed lookup is
// logged and the request continues signed out.
func LoadSession(store SessionLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, err := store.Get(r.Context(), r)
			switch {
			case err != nil:
				slog.Warn("session lookup failed", "error", err, "path", r.URL.Path)
			case data != nil:
				r = r.WithContext(WithSession(r.Context(), data))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth sends visitors without a session to the login page. For
// GET and HEAD the requested URI rides along in next; other methods cannot
// be replayed by a redirect, so they land on the dashboard after sign-in.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromCtx(r.Context()) != nil {
			next.ServeHTTP(w, r)
			return
		}

		target := LoginPath
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			target += "?next=" + url.QueryEscape(r.URL.RequestURI())
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
	})
}

// SafeNext accepts next only when it is a local admin URL other than the
// login page; anything else becomes the dashboard.
func SafeNext(next string) string {
	if next == "" || strings.HasPrefix(next, "//") || strings.ContainsRune(next, '\\') {
		return DashboardPath
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return DashboardPath
	}
	inAdmin := u.Path == "/admin" || strings.HasPrefix(u.Path, "/admin/")
	if !inAdmin || u.Path == LoginPath {
		return DashboardPath
	}
	return next
}
