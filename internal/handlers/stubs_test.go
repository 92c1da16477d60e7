// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"inkpress/internal/blog"
	"inkpress/internal/middleware"
	"inkpress/internal/models"
	"inkpress/internal/render"
	"inkpress/internal/session"
)

// stubReader is a canned public read flow.
type stubReader struct {
	posts       []models.Post
	hasMore     bool
	detail      *blog.PostDetail
	category    *blog.CategoryPage
	err         error
	searchCalls []string
	lastPage    blog.Page
}

func (s *stubReader) ListPosts(_ context.Context, page blog.Page, _ string) (*blog.PostPage, error) {
	s.lastPage = page
	if s.err != nil {
		return nil, s.err
	}
	return &blog.PostPage{Posts: s.posts, Page: page, HasMore: s.hasMore}, nil
}

func (s *stubReader) PostDetail(context.Context, string) (*blog.PostDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.detail == nil {
		return nil, blog.ErrNotFound
	}
	return s.detail, nil
}

func (s *stubReader) SearchPosts(_ context.Context, q string) ([]models.Post, error) {
	s.searchCalls = append(s.searchCalls, q)
	return s.posts, s.err
}

func (s *stubReader) ListCategories(context.Context) ([]models.Category, error) {
	return nil, nil
}

func (s *stubReader) CategoryPage(context.Context, string, blog.Page) (*blog.CategoryPage, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.category == nil {
		return nil, blog.ErrNotFound
	}
	return s.category, nil
}

// stubSubmitter records submissions and returns err when set.
type stubSubmitter struct {
	err   error
	calls int
}

func (s *stubSubmitter) Submit(_ context.Context, postID uuid.UUID, in blog.CommentInput) (*models.Comment, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &models.Comment{ID: uuid.New(), PostID: postID, AuthorName: in.AuthorName, Content: in.Content, Status: models.CommentPending}, nil
}

// stubAdmin is a canned admin content workflow.
type stubAdmin struct {
	post       *models.Post
	createErr  error
	updateErr  error
	deleteErr  error
	getErr     error
	created    []blog.PostInput
	patches    []blog.PostPatch
	categories []models.Category
}

func (s *stubAdmin) Stats(context.Context) (*models.Stats, error) {
	return &models.Stats{TotalPosts: 3}, nil
}

func (s *stubAdmin) ListPosts(_ context.Context, page blog.Page) (*blog.PostPage, error) {
	return &blog.PostPage{Page: page}, nil
}

func (s *stubAdmin) GetPost(context.Context, uuid.UUID) (*models.Post, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.post == nil {
		return nil, blog.ErrNotFound
	}
	return s.post, nil
}

func (s *stubAdmin) CreatePost(_ context.Context, in blog.PostInput) (*models.Post, error) {
	s.created = append(s.created, in)
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &models.Post{ID: uuid.New(), Title: in.Title}, nil
}

func (s *stubAdmin) UpdatePost(_ context.Context, _ uuid.UUID, patch blog.PostPatch) (*models.Post, error) {
	s.patches = append(s.patches, patch)
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return s.post, nil
}

func (s *stubAdmin) DeletePost(context.Context, uuid.UUID) error { return s.deleteErr }

func (s *stubAdmin) ListCategories(context.Context) ([]models.Category, error) {
	return s.categories, nil
}

func (s *stubAdmin) CreateCategory(_ context.Context, in blog.CategoryInput) (*models.Category, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &models.Category{ID: uuid.New(), Name: in.Name}, nil
}

func (s *stubAdmin) UpdateCategory(_ context.Context, id uuid.UUID, in blog.CategoryInput) (*models.Category, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return &models.Category{ID: id, Name: in.Name}, nil
}

func (s *stubAdmin) DeleteCategory(context.Context, uuid.UUID) error { return s.deleteErr }

// stubModerator is a canned comment moderation workflow.
type stubModerator struct {
	err        error
	lastFilter blog.CommentFilter
	moderated  []models.CommentStatus
	replies    []string
}

func (s *stubModerator) List(_ context.Context, filter blog.CommentFilter, page blog.Page) (*blog.CommentPage, error) {
	s.lastFilter = filter
	return &blog.CommentPage{Filter: filter, Page: page}, s.err
}

func (s *stubModerator) Moderate(_ context.Context, id uuid.UUID, target models.CommentStatus) (*models.Comment, error) {
	s.moderated = append(s.moderated, target)
	if s.err != nil {
		return nil, s.err
	}
	return &models.Comment{ID: id, Status: target}, nil
}

func (s *stubModerator) Reply(_ context.Context, id uuid.UUID, text string) (*models.Comment, error) {
	s.replies = append(s.replies, text)
	if s.err != nil {
		return nil, s.err
	}
	return &models.Comment{ID: id}, nil
}

func (s *stubModerator) Delete(context.Context, uuid.UUID) error { return s.err }

// stubUsers serves a single account.
type stubUsers struct {
	user     *models.User
	password string
	err      error
	secret   string
	enabled  bool
}

func (s *stubUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.user == nil || s.user.Email != email {
		return nil, nil
	}
	return s.user, nil
}

func (s *stubUsers) FindByID(context.Context, uuid.UUID) (*models.User, error) {
	return s.user, s.err
}

func (s *stubUsers) SetTOTPSecret(_ context.Context, _ uuid.UUID, secret string) error {
	s.secret = secret
	s.user.TOTPSecret = &secret
	s.user.TOTPEnabled = false
	return nil
}

func (s *stubUsers) EnableTOTP(context.Context, uuid.UUID) error {
	s.enabled = true
	s.user.TOTPEnabled = true
	return nil
}

func (s *stubUsers) CheckPassword(_ *models.User, password string) bool {
	return password == s.password
}

// stubSessions records created sessions.
type stubSessions struct {
	created   []*session.Data
	destroyed int
}

func (s *stubSessions) Create(_ context.Context, _ http.ResponseWriter, data *session.Data) (string, error) {
	s.created = append(s.created, data)
	return "sid", nil
}

func (s *stubSessions) Destroy(context.Context, http.ResponseWriter, *http.Request) error {
	s.destroyed++
	return nil
}

func testRenderer(t *testing.T) *render.Renderer {
	t.Helper()
	rn, err := render.New("Test Blog")
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	return rn
}

// formRequest builds a form POST.
func formRequest(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// withParams attaches chi URL parameters as the router would.
func withParams(req *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// withSession attaches a signed-in admin as LoadSession would.
func withSession(req *http.Request, data *session.Data) *http.Request {
	return req.WithContext(middleware.WithSession(req.Context(), data))
}

func cookieValue(rr *httptest.ResponseRecorder, name string) string {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func testAdminSession() *session.Data {
	return &session.Data{UserID: uuid.New(), Email: "admin@example.com", DisplayName: "Ada"}
}
