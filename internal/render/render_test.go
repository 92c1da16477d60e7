// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package render

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"inkpress/internal/blog"
	"inkpress/internal/middleware"
	"inkpress/internal/models"
	"inkpress/internal/session"
)

// helperSession returns a session.Data suitable for rendering admin templates.
func helperSession() *session.Data {
	return &session.Data{
		UserID:      uuid.New(),
		Email:       "test@inkpress.local",
		DisplayName: "Test User",
	}
}

// helperRequest builds a request whose context optionally carries a session.
func helperRequest(method, target string, sess *session.Data) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	if sess != nil {
		req = req.WithContext(middleware.WithSession(req.Context(), sess))
	}
	return req
}

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	rn, err := New("Test Blog")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return rn
}

func samplePost() *models.Post {
	return &models.Post{
		ID:        uuid.New(),
		Title:     "Hello World",
		Slug:      "hello-world",
		Content:   "Some **markdown** here.",
		Excerpt:   "An excerpt",
		Published: true,
		ReadTime:  1,
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Category:  &models.CategorySummary{ID: uuid.New(), Name: "Tech", Slug: "tech"},
	}
}

func TestNew(t *testing.T) {
	rn := newRenderer(t)

	for _, name := range []string{
		"public/home", "public/post", "public/category", "public/about",
		"public/not_found", "public/error",
		"admin/login", "admin/dashboard", "admin/posts_list", "admin/post_form",
		"admin/categories", "admin/comments", "admin/totp_setup",
	} {
		if !rn.Has(name) {
			t.Errorf("expected template %q to be parsed", name)
		}
	}

	for _, layout := range []string{"public/layout", "admin/base"} {
		if rn.Has(layout) {
			t.Errorf("layout %q should not be registered as a page", layout)
		}
	}
}

func TestHomeRendering(t *testing.T) {
	rn := newRenderer(t)
	w := httptest.NewRecorder()

	rn.Page(w, helperRequest(http.MethodGet, "/", nil), "public/home", &PageData{
		Section: "home",
		Data: map[string]any{
			"Posts":      []models.Post{*samplePost()},
			"Categories": []models.Category{{Name: "Tech", Slug: "tech", PostCount: 1}},
			"Search":     "",
			"Searching":  false,
			"Page":       1,
			"HasMore":    true,
		},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"<!DOCTYPE html>", "Test Blog", `href="/post/hello-world"`, "1 min read", `href="/category/tech"`, `href="/?page=2"`} {
		if !strings.Contains(body, want) {
			t.Errorf("home page missing %q", want)
		}
	}
	if strings.Contains(body, "Newer") {
		t.Error("first page should not link to newer posts")
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type: got %q", ct)
	}
}

func TestPostRenderingWithPendingComment(t *testing.T) {
	rn := newRenderer(t)
	w := httptest.NewRecorder()
	post := samplePost()
	reply := "Thanks!"

	rn.Page(w, helperRequest(http.MethodGet, "/post/hello-world", nil), "public/post", &PageData{
		Data: map[string]any{
			"Post": post,
			"Comments": []models.Comment{
				{AuthorName: "Ann", Content: "Great post", Status: models.CommentApproved, Reply: &reply},
			},
			"Submitted": &models.Comment{AuthorName: "Bob", Content: "<b>hi</b>", Status: models.CommentPending},
			"Form":      blog.CommentInput{},
			"FormError": "",
		},
	})

	body := w.Body.String()
	if !strings.Contains(body, "<strong>markdown</strong>") {
		t.Error("post content should be rendered from markdown")
	}
	if !strings.Contains(body, "awaiting moderation") {
		t.Error("submitted comment should be shown as awaiting moderation")
	}
	if strings.Contains(body, "<b>hi</b>") {
		t.Error("comment content must be escaped")
	}
	if !strings.Contains(body, "Thanks!") {
		t.Error("admin reply should be rendered")
	}
}

func TestPageStatus(t *testing.T) {
	rn := newRenderer(t)
	w := httptest.NewRecorder()

	rn.PageStatus(w, helperRequest(http.MethodGet, "/post/missing", nil), http.StatusNotFound, "public/not_found", &PageData{
		Data: map[string]any{"Message": "No post with that address."},
	})

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "No post with that address.") {
		t.Error("not found page should show the message")
	}
}

func TestAdminPageRendering(t *testing.T) {
	rn := newRenderer(t)
	sess := helperSession()
	w := httptest.NewRecorder()

	rn.Page(w, helperRequest(http.MethodGet, "/admin/dashboard", sess), "admin/dashboard", &PageData{
		Title:   "Dashboard",
		Section: "dashboard",
		Data: map[string]any{"Stats": &models.Stats{
			TotalPosts: 5, PublishedPosts: 3, TotalCategories: 2, TotalComments: 9, ApprovedComments: 4,
		}},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"<!DOCTYPE html>", "Welcome back, Test User", `<span class="value">9</span>`, "Sign out"} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
}

func TestStandaloneLogin(t *testing.T) {
	rn := newRenderer(t)
	w := httptest.NewRecorder()

	rn.Page(w, helperRequest(http.MethodGet, "/admin/login", nil), "admin/login", &PageData{
		Data: map[string]any{"Next": "/admin/posts", "Error": "Invalid email or password."},
	})

	body := w.Body.String()
	if !strings.Contains(body, "Sign In") {
		t.Error("login page should render its own heading")
	}
	if strings.Contains(body, "admin-nav") {
		t.Error("login page should not contain the admin navigation")
	}
	if !strings.Contains(body, `value="/admin/posts"`) {
		t.Error("login page should carry the next parameter")
	}
	if !strings.Contains(body, "Invalid email or password.") {
		t.Error("login page should show the error")
	}
}

func TestCommentsModerationButtons(t *testing.T) {
	rn := newRenderer(t)
	w := httptest.NewRecorder()
	pendingID, approvedID := uuid.New(), uuid.New()

	rn.Page(w, helperRequest(http.MethodGet, "/admin/comments", helperSession()), "admin/comments", &PageData{
		Section: "comments",
		Data: map[string]any{
			"Comments": []models.Comment{
				{ID: pendingID, AuthorName: "P", Status: models.CommentPending},
				{ID: approvedID, AuthorName: "A", Status: models.CommentApproved},
			},
			"Filter":  "all",
			"Filters": []string{"pending", "approved", "rejected", "all"},
			"Page":    1,
			"HasMore": false,
		},
	})

	body := w.Body.String()
	if !strings.Contains(body, "/admin/comments/"+pendingID.String()+"/approve") {
		t.Error("pending comment should offer approve")
	}
	if strings.Contains(body, "/admin/comments/"+approvedID.String()+"/approve") {
		t.Error("approved comment should not offer approve")
	}
	if !strings.Contains(body, "/admin/comments/"+approvedID.String()+"/delete") {
		t.Error("every comment should offer delete")
	}
}

func TestTOTPSetupRendersQR(t *testing.T) {
	rn := newRenderer(t)
	w := httptest.NewRecorder()

	rn.Page(w, helperRequest(http.MethodGet, "/admin/2fa/setup", helperSession()), "admin/totp_setup", &PageData{
		Section: "security",
		Data: map[string]any{
			"Enabled": false,
			"QR":      template.URL("data:image/png;base64,AAAA"),
			"Secret":  "JBSWY3DPEHPK3PXP",
			"Error":   "",
		},
	})

	body := w.Body.String()
	if !strings.Contains(body, `src="data:image/png;base64,AAAA"`) {
		t.Error("QR data URI should be rendered unmodified")
	}
	if !strings.Contains(body, "JBSWY3DPEHPK3PXP") {
		t.Error("secret should be shown for manual entry")
	}
}

func TestMissingTemplate(t *testing.T) {
	rn := newRenderer(t)
	w := httptest.NewRecorder()

	rn.Page(w, helperRequest(http.MethodGet, "/nope", nil), "public/nonexistent", &PageData{})

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "not found") {
		t.Error("error response should mention template not found")
	}
}

func TestPageDataCSRFInjection(t *testing.T) {
	rn := newRenderer(t)

	var captured *http.Request
	handler := middleware.NewCSRF(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/login", nil))

	token := middleware.CSRFTokenFromCtx(captured.Context())
	if token == "" {
		t.Fatal("CSRF token not found in context")
	}

	w := httptest.NewRecorder()
	data := &PageData{}
	rn.Page(w, captured, "admin/login", data)

	if !strings.Contains(w.Body.String(), token) {
		t.Error("rendered output should contain the CSRF token from context")
	}
	if data.CSRFToken != token {
		t.Errorf("PageData.CSRFToken: got %q, want %q", data.CSRFToken, token)
	}
}

func TestSessionInjectionFromContext(t *testing.T) {
	rn := newRenderer(t)
	w := httptest.NewRecorder()

	data := &PageData{Title: "Dashboard", Section: "dashboard"}
	rn.Page(w, helperRequest(http.MethodGet, "/admin/dashboard", helperSession()), "admin/dashboard", data)

	if data.Session == nil || data.Session.DisplayName != "Test User" {
		t.Errorf("Session should be injected from context, got %+v", data.Session)
	}
}

func TestPageURL(t *testing.T) {
	pageURL := funcs()["pageURL"].(func(string, int) string)

	tests := []struct {
		base string
		page int
		want string
	}{
		{"/", 2, "/?page=2"},
		{"/", 1, "/"},
		{"/?page=3", 1, "/"},
		{"/admin/comments?status=all", 2, "/admin/comments?page=2&status=all"},
	}
	for _, tt := range tests {
		if got := pageURL(tt.base, tt.page); got != tt.want {
			t.Errorf("pageURL(%q, %d) = %q, want %q", tt.base, tt.page, got, tt.want)
		}
	}
}
