// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render provides HTML template rendering for the public site and
// the admin console. Templates are embedded; public pages share
// public/layout.html and admin pages share admin/base.html, except the
// standalone sign-in page.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"inkpress/internal/markdown"
	"inkpress/internal/middleware"
	"inkpress/internal/models"
	"inkpress/internal/session"
)

//go:embed templates
var templateFS embed.FS

// PageData holds all data passed to templates.
type PageData struct {
	Title     string         // Page title for <title> tag
	Section   string         // Active navigation section (e.g. "dashboard", "posts")
	SiteTitle string         // Filled from the Renderer
	Session   *session.Data  // Current admin session (nil if signed out)
	CSRFToken string         // CSRF token for forms
	Data      map[string]any // Page-specific data
	Flashes   []Flash        // One-time notification messages
}

// Flash represents a one-time notification message displayed to the user.
type Flash struct {
	Type    string // "success", "error", "info"
	Message string
}

// Renderer handles template parsing and execution.
type Renderer struct {
	siteTitle string
	templates map[string]*template.Template
	funcMap   template.FuncMap
}

// layouts maps a template directory to its shared layout file.
var layouts = map[string]string{
	"public": "layout.html",
	"admin":  "base.html",
}

// standaloneTemplates render as full HTML pages without a layout.
var standaloneTemplates = map[string]bool{
	"admin/login": true,
}

// New parses every embedded template. Page names are "<dir>/<file>"
// without the extension, e.g. "public/post" or "admin/dashboard".
func New(siteTitle string) (*Renderer, error) {
	r := &Renderer{
		siteTitle: siteTitle,
		templates: make(map[string]*template.Template),
		funcMap:   funcs(),
	}

	for dir, layout := range layouts {
		entries, err := fs.ReadDir(templateFS, "templates/"+dir)
		if err != nil {
			return nil, fmt.Errorf("read embedded templates: %w", err)
		}

		for _, e := range entries {
			if e.IsDir() || e.Name() == layout || path.Ext(e.Name()) != ".html" {
				continue
			}
			name := dir + "/" + strings.TrimSuffix(e.Name(), ".html")
			file := "templates/" + dir + "/" + e.Name()

			var tmpl *template.Template
			if standaloneTemplates[name] {
				tmpl, err = template.New(e.Name()).Funcs(r.funcMap).ParseFS(templateFS, file)
			} else {
				tmpl, err = template.New(layout).Funcs(r.funcMap).ParseFS(
					templateFS, "templates/"+dir+"/"+layout, file,
				)
			}
			if err != nil {
				return nil, fmt.Errorf("parse template %s: %w", name, err)
			}
			r.templates[name] = tmpl
		}
	}

	return r, nil
}

// Page renders a full page with status 200.
func (rn *Renderer) Page(w http.ResponseWriter, r *http.Request, name string, data *PageData) {
	rn.PageStatus(w, r, http.StatusOK, name, data)
}

// PageStatus renders a full page with the given status code. The page is
// executed into a buffer first so a template failure still yields a clean
// 500 instead of a half-written page.
func (rn *Renderer) PageStatus(w http.ResponseWriter, r *http.Request, status int, name string, data *PageData) {
	tmpl, ok := rn.templates[name]
	if !ok {
		http.Error(w, fmt.Sprintf("template %q not found", name), http.StatusInternalServerError)
		return
	}

	if data == nil {
		data = &PageData{}
	}
	data.SiteTitle = rn.siteTitle
	data.CSRFToken = middleware.CSRFTokenFromCtx(r.Context())
	if data.Session == nil {
		data.Session = middleware.SessionFromCtx(r.Context())
	}
	if data.Data == nil {
		data.Data = map[string]any{}
	}

	root := layouts[strings.SplitN(name, "/", 2)[0]]
	if standaloneTemplates[name] {
		root = path.Base(name) + ".html"
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, root, data); err != nil {
		slog.Error("template execution failed", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Has reports whether a page template with the given name was parsed.
func (rn *Renderer) Has(name string) bool {
	_, ok := rn.templates[name]
	return ok
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"activeClass": func(current, target string) string {
			if current == target {
				return "active"
			}
			return ""
		},
		// deref safely dereferences a string pointer for use in templates.
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		// uuidEq reports whether ptr is non-nil and equal to val.
		"uuidEq": func(ptr *uuid.UUID, val uuid.UUID) bool {
			return ptr != nil && *ptr == val
		},
		"date": func(t time.Time) string {
			return t.Format("2006-01-02")
		},
		"datetime": func(t time.Time) string {
			return t.Format("2006-01-02 15:04")
		},
		"markdown": markdown.Render,
		"add":      func(a, b int) int { return a + b },
		"sub":      func(a, b int) int { return a - b },
		// pageURL returns base with the page query parameter set, keeping
		// any other parameters already in base.
		"pageURL": func(base string, page int) string {
			u, err := url.Parse(base)
			if err != nil {
				return base
			}
			q := u.Query()
			if page <= 1 {
				q.Del("page")
			} else {
				q.Set("page", strconv.Itoa(page))
			}
			u.RawQuery = q.Encode()
			return u.String()
		},
		"statusClass": func(s models.CommentStatus) string {
			return "status-" + string(s)
		},
	}
}
