// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"inkpress/internal/blog"
	"inkpress/internal/models"
)

func publishedPost(title, slug string) models.Post {
	return models.Post{
		ID:        uuid.New(),
		Title:     title,
		Slug:      slug,
		Content:   "Body of " + title,
		Published: true,
		ReadTime:  1,
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func newPublic(t *testing.T, reader *stubReader, sub *stubSubmitter) *Public {
	t.Helper()
	if sub == nil {
		sub = &stubSubmitter{}
	}
	return NewPublic(testRenderer(t), reader, sub)
}

func TestHomeListsPosts(t *testing.T) {
	reader := &stubReader{posts: []models.Post{publishedPost("Hello World", "hello-world")}, hasMore: true}
	p := newPublic(t, reader, nil)

	rr := httptest.NewRecorder()
	p.Home(rr, httptest.NewRequest(http.MethodGet, "/?page=2", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if reader.lastPage != blog.PageNumber(2) {
		t.Errorf("page: got %+v, want %+v", reader.lastPage, blog.PageNumber(2))
	}
	body := rr.Body.String()
	if !strings.Contains(body, "/post/hello-world") {
		t.Error("home page should link to the post")
	}
	if !strings.Contains(body, "Newer") || !strings.Contains(body, "/?page=3") {
		t.Error("page 2 should link both ways")
	}
}

func TestHomeHugePageNumber(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"past int overflow of offset", "1844674407370955162", blog.MaxPageNumber},
		{"past int range", "99999999999999999999999", blog.MaxPageNumber},
		{"negative past int range", "-99999999999999999999999", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &stubReader{}
			p := newPublic(t, reader, nil)

			rr := httptest.NewRecorder()
			p.Home(rr, httptest.NewRequest(http.MethodGet, "/?page="+tt.query, nil))

			if rr.Code != http.StatusOK {
				t.Fatalf("status: got %d, want 200", rr.Code)
			}
			if reader.lastPage != blog.PageNumber(tt.want) {
				t.Errorf("page: got %+v, want %+v", reader.lastPage, blog.PageNumber(tt.want))
			}
			if reader.lastPage.Offset < 0 {
				t.Errorf("offset overflowed: %d", reader.lastPage.Offset)
			}
		})
	}
}

func TestHomeSearch(t *testing.T) {
	reader := &stubReader{posts: []models.Post{publishedPost("Learning React", "learning-react")}}
	p := newPublic(t, reader, nil)

	rr := httptest.NewRecorder()
	p.Home(rr, httptest.NewRequest(http.MethodGet, "/?search=+React+", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if len(reader.searchCalls) != 1 || reader.searchCalls[0] != "React" {
		t.Errorf("search calls: got %q, want [React]", reader.searchCalls)
	}
	if !strings.Contains(rr.Body.String(), "Search results for") {
		t.Error("search page should show the results heading")
	}
}

func TestHomeStoreFailure(t *testing.T) {
	p := newPublic(t, &stubReader{err: errors.New("connection refused")}, nil)

	rr := httptest.NewRecorder()
	p.Home(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "connection refused") {
		t.Error("store errors must not leak to visitors")
	}
}

func TestPostNotFound(t *testing.T) {
	p := newPublic(t, &stubReader{}, nil)

	rr := httptest.NewRecorder()
	p.Post(rr, withParams(httptest.NewRequest(http.MethodGet, "/post/missing", nil), "slug", "missing"))

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

func TestSubmitComment(t *testing.T) {
	post := publishedPost("Hello World", "hello-world")
	detail := &blog.PostDetail{Post: &post}

	t.Run("accepted comment is shown to the submitter", func(t *testing.T) {
		sub := &stubSubmitter{}
		p := newPublic(t, &stubReader{detail: detail}, sub)

		form := url.Values{"author_name": {"Ann"}, "author_email": {"ann@example.com"}, "content": {"Nice post"}}
		rr := httptest.NewRecorder()
		p.SubmitComment(rr, withParams(formRequest("/post/hello-world/comments", form), "slug", "hello-world"))

		if rr.Code != http.StatusOK {
			t.Fatalf("status: got %d, want 200", rr.Code)
		}
		if sub.calls != 1 {
			t.Errorf("submit calls: got %d, want 1", sub.calls)
		}
		if !strings.Contains(rr.Body.String(), "awaiting moderation") {
			t.Error("submitter should see the pending comment")
		}
	})

	t.Run("validation failure re-renders the form", func(t *testing.T) {
		sub := &stubSubmitter{err: &blog.ValidationError{Field: "author_email", Message: "is required"}}
		p := newPublic(t, &stubReader{detail: detail}, sub)

		form := url.Values{"author_name": {"Ann"}, "author_email": {""}, "content": {"Nice post"}}
		rr := httptest.NewRecorder()
		p.SubmitComment(rr, withParams(formRequest("/post/hello-world/comments", form), "slug", "hello-world"))

		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status: got %d, want 422", rr.Code)
		}
		body := rr.Body.String()
		if !strings.Contains(body, "Author email is required.") {
			t.Error("form should show the validation message")
		}
		if !strings.Contains(body, "Nice post") {
			t.Error("form should keep the submitted content")
		}
	})

	t.Run("unknown post is 404 without submitting", func(t *testing.T) {
		sub := &stubSubmitter{}
		p := newPublic(t, &stubReader{}, sub)

		rr := httptest.NewRecorder()
		p.SubmitComment(rr, withParams(formRequest("/post/missing/comments", url.Values{}), "slug", "missing"))

		if rr.Code != http.StatusNotFound {
			t.Errorf("status: got %d, want 404", rr.Code)
		}
		if sub.calls != 0 {
			t.Error("nothing should be submitted for a missing post")
		}
	})
}

func TestCategoryPage(t *testing.T) {
	t.Run("missing category is 404", func(t *testing.T) {
		p := newPublic(t, &stubReader{}, nil)

		rr := httptest.NewRecorder()
		p.Category(rr, withParams(httptest.NewRequest(http.MethodGet, "/category/nope", nil), "slug", "nope"))

		if rr.Code != http.StatusNotFound {
			t.Errorf("status: got %d, want 404", rr.Code)
		}
	})

	t.Run("renders category posts", func(t *testing.T) {
		cat := &models.Category{ID: uuid.New(), Name: "Tech", Slug: "tech"}
		reader := &stubReader{category: &blog.CategoryPage{
			Category: cat,
			Posts:    &blog.PostPage{Posts: []models.Post{publishedPost("Go Tips", "go-tips")}, HasMore: true},
		}}
		p := newPublic(t, reader, nil)

		rr := httptest.NewRecorder()
		p.Category(rr, withParams(httptest.NewRequest(http.MethodGet, "/category/tech", nil), "slug", "tech"))

		if rr.Code != http.StatusOK {
			t.Fatalf("status: got %d, want 200", rr.Code)
		}
		body := rr.Body.String()
		if !strings.Contains(body, "/post/go-tips") || !strings.Contains(body, "/category/tech?page=2") {
			t.Error("category page should list posts and link to the next page")
		}
	})
}

func TestAbout(t *testing.T) {
	p := newPublic(t, &stubReader{}, nil)

	rr := httptest.NewRecorder()
	p.About(rr, httptest.NewRequest(http.MethodGet, "/about", nil))

	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "About") {
		t.Errorf("about page: got %d", rr.Code)
	}
}
