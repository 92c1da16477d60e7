// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// blog. It organizes routes into public and admin groups with
// appropriate middleware stacks.
package router

import (
	"context"
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"inkpress/internal/handlers"
	"inkpress/internal/metrics"
	"inkpress/internal/middleware"
	"inkpress/web"
)

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

// Deps is everything the router wires together.
type Deps struct {
	Sessions middleware.SessionLoader
	Public   *handlers.Public
	Admin    *handlers.Admin
	Auth     *handlers.Auth

	// CommentLimiter guards comment submission, LoginLimiter the login
	// form. Either may be nil to disable limiting.
	CommentLimiter *middleware.RateLimiter
	LoginLimiter   *middleware.RateLimiter

	// Secure marks cookies Secure; off in development over plain HTTP.
	Secure bool

	// Checks run on every /health request.
	Checks map[string]HealthCheck
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.Metrics)
	r.Use(middleware.SecureHeaders(d.Secure))

	// Probes and static assets: no session, no CSRF.
	r.Get("/health", healthHandler(d.Checks))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Handle("/static/*", staticHandler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRF(d.Secure))
		r.Use(middleware.LoadSession(d.Sessions))

		// Public site.
		r.Get("/", d.Public.Home)
		r.Get("/post/{slug}", d.Public.Post)
		r.With(limit(d.CommentLimiter)).Post("/post/{slug}/comments", d.Public.SubmitComment)
		r.Get("/category/{slug}", d.Public.Category)
		r.Get("/about", d.Public.About)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.NoStore)

			// Sign-in pages, reachable without a session.
			r.Get("/login", d.Auth.LoginPage)
			r.With(limit(d.LoginLimiter)).Post("/login", d.Auth.LoginSubmit)
			r.Post("/logout", d.Auth.Logout)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)

				r.Get("/", d.Auth.AdminIndex)
				r.Get("/dashboard", d.Admin.Dashboard)

				r.Route("/posts", func(r chi.Router) {
					r.Get("/", d.Admin.PostsList)
					r.Get("/new", d.Admin.PostNew)
					r.Post("/", d.Admin.PostCreate)
					r.Get("/{id}/edit", d.Admin.PostEdit)
					r.Post("/{id}", d.Admin.PostUpdate)
					r.Post("/{id}/delete", d.Admin.PostDelete)
				})

				r.Route("/categories", func(r chi.Router) {
					r.Get("/", d.Admin.CategoriesList)
					r.Post("/", d.Admin.CategoryCreate)
					r.Post("/{id}", d.Admin.CategoryUpdate)
					r.Post("/{id}/delete", d.Admin.CategoryDelete)
				})

				r.Route("/comments", func(r chi.Router) {
					r.Get("/", d.Admin.CommentsList)
					r.Post("/{id}/approve", d.Admin.CommentApprove)
					r.Post("/{id}/reject", d.Admin.CommentReject)
					r.Post("/{id}/reply", d.Admin.CommentReply)
					r.Post("/{id}/delete", d.Admin.CommentDelete)
				})

				r.Get("/2fa/setup", d.Auth.TwoFASetupPage)
				r.Post("/2fa/setup", d.Auth.TwoFASetupSubmit)
			})
		})

		r.NotFound(d.Public.NotFound)
	})

	return r
}

func limit(rl *middleware.RateLimiter) func(http.Handler) http.Handler {
	if rl == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return rl.Middleware
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		panic("router: static assets missing: " + err.Error())
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// healthHandler returns a JSON health check response. Any failing check
// turns the response into a 503 naming the failed dependency.
func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]string{"status": "ok"}

		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				slog.Warn("health check failed", "dependency", name, "error", err)
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = "unavailable"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}
}
