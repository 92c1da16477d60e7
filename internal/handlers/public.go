// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"inkpress/internal/blog"
	"inkpress/internal/models"
	"inkpress/internal/render"
)

// Reader is the public read flow. *blog.Reader satisfies it.
type Reader interface {
	ListPosts(ctx context.Context, page blog.Page, categorySlug string) (*blog.PostPage, error)
	PostDetail(ctx context.Context, slug string) (*blog.PostDetail, error)
	SearchPosts(ctx context.Context, query string) ([]models.Post, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	CategoryPage(ctx context.Context, slug string, page blog.Page) (*blog.CategoryPage, error)
}

// CommentSubmitter accepts visitor comments. *blog.Comments satisfies it.
type CommentSubmitter interface {
	Submit(ctx context.Context, postID uuid.UUID, in blog.CommentInput) (*models.Comment, error)
}

// Public groups handlers for the public-facing site.
type Public struct {
	pages
	reader   Reader
	comments CommentSubmitter
}

// NewPublic creates a new Public handler group.
func NewPublic(renderer *render.Renderer, reader Reader, comments CommentSubmitter) *Public {
	return &Public{
		pages:    pages{renderer: renderer},
		reader:   reader,
		comments: comments,
	}
}

// Home renders the newest published posts, or search results when the
// search parameter is present.
func (p *Public) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := strings.TrimSpace(r.URL.Query().Get("search"))

	categories, err := p.reader.ListCategories(ctx)
	if err != nil {
		p.serverError(w, r, "list categories", err)
		return
	}

	data := map[string]any{
		"Categories": categories,
		"Search":     query,
		"Searching":  query != "",
		"Page":       1,
		"HasMore":    false,
	}

	if query != "" {
		posts, err := p.reader.SearchPosts(ctx, query)
		if err != nil {
			p.serverError(w, r, "search posts", err)
			return
		}
		data["Posts"] = posts
		p.renderer.Page(w, r, "public/home", &render.PageData{Title: "Search", Section: "home", Data: data})
		return
	}

	n := pageParam(r)
	page, err := p.reader.ListPosts(ctx, blog.PageNumber(n), "")
	if err != nil {
		p.serverError(w, r, "list posts", err)
		return
	}
	data["Posts"] = page.Posts
	data["Page"] = n
	data["HasMore"] = page.HasMore

	p.renderer.Page(w, r, "public/home", &render.PageData{Section: "home", Data: data})
}

// Post renders a published post with its approved comments.
func (p *Public) Post(w http.ResponseWriter, r *http.Request) {
	detail, err := p.reader.PostDetail(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		p.fail(w, r, "load post", err)
		return
	}
	p.renderPost(w, r, http.StatusOK, detail, postView{})
}

// postView carries the comment form state of a post page.
type postView struct {
	form      blog.CommentInput
	formError string
	submitted *models.Comment
}

func (p *Public) renderPost(w http.ResponseWriter, r *http.Request, status int, detail *blog.PostDetail, v postView) {
	p.renderer.PageStatus(w, r, status, "public/post", &render.PageData{
		Title: detail.Post.Title,
		Data: map[string]any{
			"Post":      detail.Post,
			"Comments":  detail.Comments,
			"Submitted": v.submitted,
			"Form":      v.form,
			"FormError": v.formError,
		},
	})
}

// SubmitComment accepts a visitor comment for moderation. On success the
// post is re-rendered with the new comment shown to the submitter only;
// other visitors see it once it is approved.
func (p *Public) SubmitComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	detail, err := p.reader.PostDetail(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		p.fail(w, r, "load post", err)
		return
	}

	in := blog.CommentInput{
		AuthorName:  r.FormValue("author_name"),
		AuthorEmail: r.FormValue("author_email"),
		Content:     r.FormValue("content"),
	}

	created, err := p.comments.Submit(ctx, detail.Post.ID, in)
	if err != nil {
		if msg, ok := validationMessage(err); ok {
			p.renderPost(w, r, http.StatusUnprocessableEntity, detail, postView{form: in, formError: msg})
			return
		}
		p.fail(w, r, "submit comment", err)
		return
	}

	p.renderPost(w, r, http.StatusOK, detail, postView{submitted: created})
}

// Category renders a category and one page of its published posts.
func (p *Public) Category(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	n := pageParam(r)

	cp, err := p.reader.CategoryPage(r.Context(), slug, blog.PageNumber(n))
	if err != nil {
		if errors.Is(err, blog.ErrNotFound) {
			p.notFound(w, r, "There is no category at this address.")
			return
		}
		p.serverError(w, r, "load category", err)
		return
	}

	p.renderer.Page(w, r, "public/category", &render.PageData{
		Title: cp.Category.Name,
		Data: map[string]any{
			"Category": cp.Category,
			"Posts":    cp.Posts.Posts,
			"Page":     n,
			"HasMore":  cp.Posts.HasMore,
			"BaseURL":  "/category/" + cp.Category.Slug,
		},
	})
}

// About renders the static about page.
func (p *Public) About(w http.ResponseWriter, r *http.Request) {
	p.renderer.Page(w, r, "public/about", &render.PageData{Title: "About", Section: "about"})
}

// NotFound renders the 404 page for unmatched routes.
func (p *Public) NotFound(w http.ResponseWriter, r *http.Request) {
	p.notFound(w, r, "")
}
