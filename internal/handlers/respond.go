// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the HTTP handlers for the public site, the
// admin console and sign-in. Handlers translate form input into workflow
// calls and map workflow errors onto status codes: validation failures
// re-render the form with 422, missing rows render 404, and store
// failures are logged and render a generic 500 page.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"inkpress/internal/blog"
	"inkpress/internal/render"
)

const flashCookie = "ink_flash"

// pages wraps the renderer with the shared error pages.
type pages struct {
	renderer *render.Renderer
}

func (p pages) notFound(w http.ResponseWriter, r *http.Request, message string) {
	p.renderer.PageStatus(w, r, http.StatusNotFound, "public/not_found", &render.PageData{
		Title: "Not found",
		Data:  map[string]any{"Message": message},
	})
}

// serverError logs err with op and renders the generic failure page.
func (p pages) serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	slog.Error(op+" failed", "error", err, "method", r.Method, "path", r.URL.Path)
	p.renderer.PageStatus(w, r, http.StatusInternalServerError, "public/error", &render.PageData{
		Title: "Error",
	})
}

// fail renders 404 for ErrNotFound and 500 for anything else.
func (p pages) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, blog.ErrNotFound) {
		p.notFound(w, r, "")
		return
	}
	p.serverError(w, r, op, err)
}

// validationMessage returns the user-facing message for errors a form
// can show inline, and false for anything else.
func validationMessage(err error) (string, bool) {
	var ve *blog.ValidationError
	switch {
	case errors.As(err, &ve):
		return formatField(ve.Field) + " " + ve.Message + ".", true
	case errors.Is(err, blog.ErrSlugTaken):
		return "Another entry already uses this slug. Choose a different title or slug.", true
	}
	return "", false
}

func formatField(field string) string {
	s := strings.ReplaceAll(field, "_", " ")
	if s == "" {
		return "Input"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// urlID parses the {id} route parameter, writing 400 when it is malformed.
func urlID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// pageParam reads the 1-based ?page= parameter; junk selects page 1 and
// large numbers are clamped to blog.MaxPageNumber. Atoi saturates on
// overflow, so an out-of-range value keeps its sign.
func pageParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if (err != nil && !errors.Is(err, strconv.ErrRange)) || n < 1 {
		return 1
	}
	return min(n, blog.MaxPageNumber)
}

// setFlash stores a one-time message shown on the next admin page.
func setFlash(w http.ResponseWriter, typ, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(typ + "|" + message),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   60,
	})
}

// popFlash returns and clears the pending flash message, if any.
func popFlash(w http.ResponseWriter, r *http.Request) []render.Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1})

	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil
	}
	typ, msg, ok := strings.Cut(raw, "|")
	if !ok || msg == "" {
		return nil
	}
	return []render.Flash{{Type: typ, Message: msg}}
}

var errUserMissing = errors.New("signed-in user no longer exists")
