// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package blog

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"inkpress/internal/models"
	"inkpress/internal/slug"
	"inkpress/internal/store"
)

// Field limits for posts and categories, in characters.
const (
	MaxTitleLength         = 300
	MaxContentLength       = 100_000
	MaxExcerptLength       = 1000
	MaxCategoryName        = 100
	MaxCategoryDescription = 500
)

// PostInput is the admin form for a new post.
type PostInput struct {
	Title      string
	Content    string
	Excerpt    string
	Published  bool
	CategoryID *uuid.UUID
}

// PostPatch is a partial post update. Nil fields are left unchanged. The
// category is only touched when SetCategory is true, so a nil CategoryID
// with SetCategory clears it.
type PostPatch struct {
	Title       *string
	Content     *string
	Excerpt     *string
	Published   *bool
	CategoryID  *uuid.UUID
	SetCategory bool
}

// CategoryInput is the admin form for a category. An empty Slug is derived
// from Name.
type CategoryInput struct {
	Name        string
	Slug        string
	Description string
}

// Admin implements post and category management and the dashboard. Every
// method assumes the caller is already authenticated.
type Admin struct {
	posts      PostRepository
	categories CategoryRepository
	comments   CommentRepository
	cache      CommentCache
}

// NewAdmin creates the admin workflow. cache may be nil.
func NewAdmin(posts PostRepository, categories CategoryRepository, comments CommentRepository, cache CommentCache) *Admin {
	if cache == nil {
		cache = nopCache{}
	}
	return &Admin{posts: posts, categories: categories, comments: comments, cache: cache}
}

// CreatePost validates input, derives the slug and read time, and stores
// the post. Posts are drafts unless Published is set.
func (a *Admin) CreatePost(ctx context.Context, in PostInput) (_ *models.Post, err error) {
	ctx, span := startSpan(ctx, "Admin.CreatePost")
	defer func() { endSpan(span, err) }()

	p := &models.Post{
		Title:      strings.TrimSpace(in.Title),
		Content:    in.Content,
		Excerpt:    strings.TrimSpace(in.Excerpt),
		Published:  in.Published,
		CategoryID: in.CategoryID,
	}
	if err := a.preparePost(ctx, p, uuid.Nil); err != nil {
		return nil, err
	}

	created, err := a.posts.Create(ctx, p)
	if err != nil {
		return nil, postWriteErr("create post", err)
	}
	return created, nil
}

// UpdatePost applies a partial update. A changed title regenerates the
// slug and changed content recomputes the read time.
func (a *Admin) UpdatePost(ctx context.Context, id uuid.UUID, patch PostPatch) (_ *models.Post, err error) {
	ctx, span := startSpan(ctx, "Admin.UpdatePost", attribute.String("post_id", id.String()))
	defer func() { endSpan(span, err) }()

	p, err := a.posts.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("find post", err)
	}
	if p == nil {
		return nil, ErrNotFound
	}

	if patch.Title != nil {
		p.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Content != nil {
		p.Content = *patch.Content
	}
	if patch.Excerpt != nil {
		p.Excerpt = strings.TrimSpace(*patch.Excerpt)
	}
	if patch.Published != nil {
		p.Published = *patch.Published
	}
	if patch.SetCategory {
		p.CategoryID = patch.CategoryID
	}
	if err := a.preparePost(ctx, p, id); err != nil {
		return nil, err
	}

	updated, err := a.posts.Update(ctx, p)
	if err != nil {
		return nil, postWriteErr("update post", err)
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	return updated, nil
}

// preparePost validates p and fills its derived fields. self is the id of
// the post being updated, or uuid.Nil for a new post.
func (a *Admin) preparePost(ctx context.Context, p *models.Post, self uuid.UUID) error {
	switch {
	case p.Title == "":
		return invalid("title", "is required")
	case utf8.RuneCountInString(p.Title) > MaxTitleLength:
		return invalid("title", "is too long")
	case utf8.RuneCountInString(p.Content) > MaxContentLength:
		return invalid("content", "is too long")
	case utf8.RuneCountInString(p.Excerpt) > MaxExcerptLength:
		return invalid("excerpt", "is too long")
	}

	p.Slug = slug.Generate(p.Title)
	if p.Slug == "" {
		return invalid("title", "must contain at least one letter or digit")
	}
	p.ReadTime = ReadTime(p.Content)

	existing, err := a.posts.FindBySlug(ctx, p.Slug)
	if err != nil {
		return storeErr("check slug", err)
	}
	if existing != nil && existing.ID != self {
		return ErrSlugTaken
	}

	if p.CategoryID != nil {
		cat, err := a.categories.FindByID(ctx, *p.CategoryID)
		if err != nil {
			return storeErr("find category", err)
		}
		if cat == nil {
			return invalid("category_id", "does not exist")
		}
	}
	return nil
}

// postWriteErr maps constraint violations that slipped past the checks in
// preparePost, such as a concurrent write taking the same slug.
func postWriteErr(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrDuplicate):
		return ErrSlugTaken
	case errors.Is(err, store.ErrInUse):
		return invalid("category_id", "does not exist")
	}
	return storeErr(op, err)
}

// DeletePost removes a post and, through the foreign key, its comments.
func (a *Admin) DeletePost(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := startSpan(ctx, "Admin.DeletePost", attribute.String("post_id", id.String()))
	defer func() { endSpan(span, err) }()

	deleted, err := a.posts.Delete(ctx, id)
	if err != nil {
		return storeErr("delete post", err)
	}
	if !deleted {
		return ErrNotFound
	}
	a.cache.Invalidate(ctx, id)
	return nil
}

// ListPosts returns a newest-first page of posts in any state.
func (a *Admin) ListPosts(ctx context.Context, page Page) (_ *PostPage, err error) {
	ctx, span := startSpan(ctx, "Admin.ListPosts")
	defer func() { endSpan(span, err) }()

	page, err = page.normalize()
	if err != nil {
		return nil, err
	}
	posts, err := a.posts.ListAll(ctx, page.Size, page.Offset)
	if err != nil {
		return nil, storeErr("list posts", err)
	}
	return &PostPage{Posts: posts, Page: page, HasMore: len(posts) == page.Size}, nil
}

// GetPost returns a post in any state.
func (a *Admin) GetPost(ctx context.Context, id uuid.UUID) (_ *models.Post, err error) {
	ctx, span := startSpan(ctx, "Admin.GetPost", attribute.String("post_id", id.String()))
	defer func() { endSpan(span, err) }()

	p, err := a.posts.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("get post", err)
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

// ListCategories returns all categories with their post counts.
func (a *Admin) ListCategories(ctx context.Context) (_ []models.Category, err error) {
	ctx, span := startSpan(ctx, "Admin.ListCategories")
	defer func() { endSpan(span, err) }()

	cats, err := a.categories.List(ctx)
	if err != nil {
		return nil, storeErr("list categories", err)
	}
	return cats, nil
}

// GetCategory returns a category by id.
func (a *Admin) GetCategory(ctx context.Context, id uuid.UUID) (_ *models.Category, err error) {
	ctx, span := startSpan(ctx, "Admin.GetCategory", attribute.String("category_id", id.String()))
	defer func() { endSpan(span, err) }()

	c, err := a.categories.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("get category", err)
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

// CreateCategory validates input, normalizes the slug and stores the category.
func (a *Admin) CreateCategory(ctx context.Context, in CategoryInput) (_ *models.Category, err error) {
	ctx, span := startSpan(ctx, "Admin.CreateCategory")
	defer func() { endSpan(span, err) }()

	c, err := a.prepareCategory(ctx, in, uuid.Nil)
	if err != nil {
		return nil, err
	}
	created, err := a.categories.Create(ctx, c)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrSlugTaken
		}
		return nil, storeErr("create category", err)
	}
	return created, nil
}

// UpdateCategory replaces a category's name, slug and description.
func (a *Admin) UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryInput) (_ *models.Category, err error) {
	ctx, span := startSpan(ctx, "Admin.UpdateCategory", attribute.String("category_id", id.String()))
	defer func() { endSpan(span, err) }()

	c, err := a.prepareCategory(ctx, in, id)
	if err != nil {
		return nil, err
	}
	c.ID = id
	updated, err := a.categories.Update(ctx, c)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrSlugTaken
		}
		return nil, storeErr("update category", err)
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	return updated, nil
}

func (a *Admin) prepareCategory(ctx context.Context, in CategoryInput, self uuid.UUID) (*models.Category, error) {
	c := &models.Category{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
	}
	switch {
	case c.Name == "":
		return nil, invalid("name", "is required")
	case utf8.RuneCountInString(c.Name) > MaxCategoryName:
		return nil, invalid("name", "is too long")
	case utf8.RuneCountInString(c.Description) > MaxCategoryDescription:
		return nil, invalid("description", "is too long")
	}

	if explicit := strings.TrimSpace(in.Slug); explicit != "" {
		c.Slug = slug.Generate(explicit)
		if c.Slug == "" {
			return nil, invalid("slug", "must contain at least one letter or digit")
		}
	} else {
		c.Slug = slug.Generate(c.Name)
		if c.Slug == "" {
			return nil, invalid("name", "must contain at least one letter or digit")
		}
	}

	existing, err := a.categories.FindBySlug(ctx, c.Slug)
	if err != nil {
		return nil, storeErr("check slug", err)
	}
	if existing != nil && existing.ID != self {
		return nil, ErrSlugTaken
	}
	return c, nil
}

// DeleteCategory removes a category that no post references. Categories
// with posts are refused with ErrCategoryInUse; the foreign key backs this
// check against a post being assigned concurrently.
func (a *Admin) DeleteCategory(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := startSpan(ctx, "Admin.DeleteCategory", attribute.String("category_id", id.String()))
	defer func() { endSpan(span, err) }()

	n, err := a.categories.PostCount(ctx, id)
	if err != nil {
		return storeErr("count category posts", err)
	}
	if n > 0 {
		return ErrCategoryInUse
	}

	deleted, err := a.categories.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrInUse) {
			return ErrCategoryInUse
		}
		return storeErr("delete category", err)
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

// Stats gathers the dashboard counts. The five queries are independent
// and run concurrently; the first failure cancels the others.
func (a *Admin) Stats(ctx context.Context) (_ *models.Stats, err error) {
	ctx, span := startSpan(ctx, "Admin.Stats")
	defer func() { endSpan(span, err) }()

	var s models.Stats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		s.TotalPosts, err = a.posts.Count(gctx, false)
		return wrapCount("count posts", err)
	})
	g.Go(func() (err error) {
		s.PublishedPosts, err = a.posts.Count(gctx, true)
		return wrapCount("count published posts", err)
	})
	g.Go(func() (err error) {
		s.TotalCategories, err = a.categories.Count(gctx)
		return wrapCount("count categories", err)
	})
	g.Go(func() (err error) {
		s.TotalComments, err = a.comments.Count(gctx, "")
		return wrapCount("count comments", err)
	})
	g.Go(func() (err error) {
		s.ApprovedComments, err = a.comments.Count(gctx, models.CommentApproved)
		return wrapCount("count approved comments", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &s, nil
}

func wrapCount(op string, err error) error {
	if err != nil {
		return storeErr(op, err)
	}
	return nil
}
