// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"
)

const (
	// CSRFCookieName holds the per-browser token.
	CSRFCookieName = "ink_csrf"
	// CSRFHeaderName may carry the token instead of the form field.
	CSRFHeaderName = "X-CSRF-Token"
	// CSRFFormField is the hidden input every admin and comment form renders.
	CSRFFormField = "csrf_token"

	csrfTokenBytes = 32
)

type csrfCtxKey struct{}

// safeMethods never change state and skip the token check.
var safeMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// NewCSRF implements the double-submit cookie pattern: a random token is
// kept in a SameSite=Strict cookie, exposed to templates through
// CSRFTokenFromCtx, and must come back with every unsafe request.
func NewCSRF(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := csrfToken(w, r, secure)
			if err != nil {
				slog.Error("csrf token generation failed", "error", err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			r = r.WithContext(context.WithValue(r.Context(), csrfCtxKey{}, token))

			if !safeMethods[r.Method] && !tokensMatch(token, submittedToken(r)) {
				slog.Warn("csrf token mismatch", "method", r.Method, "path", r.URL.Path, "remote", clientIP(r))
				http.Error(w, "CSRF token mismatch", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// csrfToken returns the browser's token, issuing a cookie for a new one
// when the request carries none.
func csrfToken(w http.ResponseWriter, r *http.Request, secure bool) (string, error) {
	if c, err := r.Cookie(CSRFCookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}

	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
	return token, nil
}

func submittedToken(r *http.Request) string {
	if h := r.Header.Get(CSRFHeaderName); h != "" {
		return h
	}
	return r.FormValue(CSRFFormField)
}

func tokensMatch(want, got string) bool {
	return got != "" && subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}

// CSRFTokenFromCtx returns the token NewCSRF stored, or "".
func CSRFTokenFromCtx(ctx context.Context) string {
	token, _ := ctx.Value(csrfCtxKey{}).(string)
	return token
}
