// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package blog

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"inkpress/internal/models"
)

// Reader serves the anonymous, read-only side of the blog. Only published
// posts are ever returned.
type Reader struct {
	posts      PostRepository
	categories CategoryRepository
	comments   *Comments
}

// NewReader creates a Reader. Approved comments are loaded through comments
// so they share its cache.
func NewReader(posts PostRepository, categories CategoryRepository, comments *Comments) *Reader {
	return &Reader{posts: posts, categories: categories, comments: comments}
}

// ListPosts returns a newest-first page of published posts, optionally
// restricted to one category. An empty page is a valid result.
func (r *Reader) ListPosts(ctx context.Context, page Page, categorySlug string) (_ *PostPage, err error) {
	ctx, span := startSpan(ctx, "Reader.ListPosts", attribute.String("category", categorySlug))
	defer func() { endSpan(span, err) }()

	page, err = page.normalize()
	if err != nil {
		return nil, err
	}

	posts, err := r.posts.ListPublished(ctx, page.Size, page.Offset, categorySlug)
	if err != nil {
		return nil, storeErr("list posts", err)
	}
	return &PostPage{Posts: posts, Page: page, HasMore: len(posts) == page.Size}, nil
}

// GetPost returns a published post by slug.
func (r *Reader) GetPost(ctx context.Context, slug string) (_ *models.Post, err error) {
	ctx, span := startSpan(ctx, "Reader.GetPost", attribute.String("slug", slug))
	defer func() { endSpan(span, err) }()

	post, err := r.posts.FindPublishedBySlug(ctx, slug)
	if err != nil {
		return nil, storeErr("get post", err)
	}
	if post == nil {
		return nil, ErrNotFound
	}
	return post, nil
}

// PostDetail is a published post with its approved comments.
type PostDetail struct {
	Post     *models.Post
	Comments []models.Comment
}

// PostDetail loads a published post and its approved comments. The post
// lookup must succeed before its comments can be requested.
func (r *Reader) PostDetail(ctx context.Context, slug string) (_ *PostDetail, err error) {
	ctx, span := startSpan(ctx, "Reader.PostDetail", attribute.String("slug", slug))
	defer func() { endSpan(span, err) }()

	post, err := r.GetPost(ctx, slug)
	if err != nil {
		return nil, err
	}
	comments, err := r.comments.Approved(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	return &PostDetail{Post: post, Comments: comments}, nil
}

// SearchPosts returns every published post whose title or content contains
// query, ignoring case. A blank query matches nothing and skips the store.
func (r *Reader) SearchPosts(ctx context.Context, query string) (_ []models.Post, err error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Post{}, nil
	}

	ctx, span := startSpan(ctx, "Reader.SearchPosts", attribute.String("query", query))
	defer func() { endSpan(span, err) }()

	posts, err := r.posts.Search(ctx, query)
	if err != nil {
		return nil, storeErr("search posts", err)
	}
	return posts, nil
}

// ListCategories returns all categories ordered by name.
func (r *Reader) ListCategories(ctx context.Context) (_ []models.Category, err error) {
	ctx, span := startSpan(ctx, "Reader.ListCategories")
	defer func() { endSpan(span, err) }()

	cats, err := r.categories.List(ctx)
	if err != nil {
		return nil, storeErr("list categories", err)
	}
	return cats, nil
}

// GetCategory returns a category by slug.
func (r *Reader) GetCategory(ctx context.Context, slug string) (_ *models.Category, err error) {
	ctx, span := startSpan(ctx, "Reader.GetCategory", attribute.String("slug", slug))
	defer func() { endSpan(span, err) }()

	cat, err := r.categories.FindBySlug(ctx, slug)
	if err != nil {
		return nil, storeErr("get category", err)
	}
	if cat == nil {
		return nil, ErrNotFound
	}
	return cat, nil
}

// CategoryPage is a category with one page of its published posts.
type CategoryPage struct {
	Category *models.Category
	Posts    *PostPage
}

// CategoryPage loads a category and a page of its posts. The posts query
// filters on the slug, so both reads are issued together; a missing
// category is reported as ErrNotFound whatever the posts query returned.
func (r *Reader) CategoryPage(ctx context.Context, slug string, page Page) (_ *CategoryPage, err error) {
	ctx, span := startSpan(ctx, "Reader.CategoryPage", attribute.String("slug", slug))
	defer func() { endSpan(span, err) }()

	var (
		cat   *models.Category
		posts *PostPage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cat, err = r.categories.FindBySlug(gctx, slug)
		if err != nil {
			return storeErr("get category", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		posts, err = r.ListPosts(gctx, page, slug)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, ErrNotFound
	}
	return &CategoryPage{Category: cat, Posts: posts}, nil
}
