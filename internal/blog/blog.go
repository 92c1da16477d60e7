// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package blog implements the blog's workflows on top of the data access
// layer: the public read flow (Reader), comment submission and moderation
// (Comments) and admin content management (Admin). Services depend on the
// small repository interfaces below so they can be exercised without a
// database.
package blog

import (
	"context"
	"math"

	"github.com/google/uuid"

	"inkpress/internal/models"
)

// PostRepository is the post persistence the workflows need.
// Lookups return (nil, nil) when no row matches.
type PostRepository interface {
	ListPublished(ctx context.Context, limit, offset int, categorySlug string) ([]models.Post, error)
	FindPublishedBySlug(ctx context.Context, slug string) (*models.Post, error)
	Search(ctx context.Context, q string) ([]models.Post, error)
	ListAll(ctx context.Context, limit, offset int) ([]models.Post, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	FindBySlug(ctx context.Context, slug string) (*models.Post, error)
	Create(ctx context.Context, p *models.Post) (*models.Post, error)
	Update(ctx context.Context, p *models.Post) (*models.Post, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	Count(ctx context.Context, publishedOnly bool) (int, error)
}

// CategoryRepository is the category persistence the workflows need.
type CategoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	Create(ctx context.Context, c *models.Category) (*models.Category, error)
	Update(ctx context.Context, c *models.Category) (*models.Category, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	Count(ctx context.Context) (int, error)
	PostCount(ctx context.Context, id uuid.UUID) (int, error)
}

// CommentRepository is the comment persistence the workflows need.
// SetStatus only applies while the comment is in state from.
type CommentRepository interface {
	ListApproved(ctx context.Context, postID uuid.UUID) ([]models.Comment, error)
	List(ctx context.Context, status models.CommentStatus, limit, offset int) ([]models.Comment, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	Create(ctx context.Context, c *models.Comment) (*models.Comment, error)
	SetStatus(ctx context.Context, id uuid.UUID, from, to models.CommentStatus) (bool, error)
	SetReply(ctx context.Context, id uuid.UUID, reply *string) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	Count(ctx context.Context, status models.CommentStatus) (int, error)
}

// CommentCache holds each post's approved-comment listing. Implementations
// swallow their own failures: a broken cache degrades to misses.
//
// Get also returns the listing's generation. Set only stores when no
// Invalidate for the post happened since that generation was read, so a
// listing read before a write is never cached after it.
type CommentCache interface {
	Get(ctx context.Context, postID uuid.UUID) (comments []models.Comment, gen int64, ok bool)
	Set(ctx context.Context, postID uuid.UUID, gen int64, comments []models.Comment)
	Invalidate(ctx context.Context, postID uuid.UUID)
}

// nopCache is used when no CommentCache is configured.
type nopCache struct{}

func (nopCache) Get(context.Context, uuid.UUID) ([]models.Comment, int64, bool) { return nil, 0, false }
func (nopCache) Set(context.Context, uuid.UUID, int64, []models.Comment) {}
func (nopCache) Invalidate(context.Context, uuid.UUID) {}

const (
	// DefaultPageSize is used when a caller asks for a page of size 0.
	DefaultPageSize = 10
	// MaxPageSize caps any requested page size.
	MaxPageSize = 50
	// MaxPageNumber is the last page whose offset fits in an int.
	MaxPageNumber = math.MaxInt / DefaultPageSize
)

// Page selects a window of a newest-first listing.
type Page struct {
	Size   int
	Offset int
}

// normalize applies the default and maximum size and rejects negative
// offsets.
func (p Page) normalize() (Page, error) {
	if p.Offset < 0 {
		return p, &ValidationError{Field: "offset", Message: "must not be negative"}
	}
	switch {
	case p.Size <= 0:
		p.Size = DefaultPageSize
	case p.Size > MaxPageSize:
		p.Size = MaxPageSize
	}
	return p, nil
}

// PageNumber converts a 1-based page number into a Page of the default
// size. Numbers below 1 select the first page; numbers past
// MaxPageNumber select the last one.
func PageNumber(n int) Page {
	n = min(max(n, 1), MaxPageNumber)
	return Page{Size: DefaultPageSize, Offset: (n - 1) * DefaultPageSize}
}

// PostPage is one page of posts. HasMore is inferred from a full page, so
// the page after an exactly-full last page is legitimately empty.
type PostPage struct {
	Posts   []models.Post
	Page    Page
	HasMore bool
}

// CommentPage is one page of the admin comment listing.
type CommentPage struct {
	Comments []models.Comment
	Filter   CommentFilter
	Page     Page
	HasMore  bool
}
