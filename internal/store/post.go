// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"inkpress/internal/models"
)

// PostStore handles all post-related database operations.
type PostStore struct {
	db DBTX
}

// NewPostStore creates a new PostStore with the given database connection.
func NewPostStore(db DBTX) *PostStore {
	return &PostStore{db: db}
}

// postColumns selects a post with its category summary. The category
// columns are NULL for uncategorised posts.
var postColumns = []string{
	"p.id", "p.title", "p.slug", "p.content", "p.excerpt", "p.published",
	"p.read_time", "p.category_id", "p.created_at", "p.updated_at",
	"c.id", "c.name", "c.slug",
}

// selectPosts is the base query for every post read.
func selectPosts() sq.SelectBuilder {
	return psql.Select(postColumns...).
		From("posts p").
		LeftJoin("categories c ON c.id = p.category_id")
}

// newestFirst orders posts by creation time, breaking ties on id so
// repeated page fetches are stable.
func newestFirst(b sq.SelectBuilder) sq.SelectBuilder {
	return b.OrderBy("p.created_at DESC", "p.id DESC")
}

// scanPost scans a row produced by selectPosts.
func scanPost(scanner interface{ Scan(...any) error }) (*models.Post, error) {
	var (
		p       models.Post
		catID   uuid.NullUUID
		catName sql.NullString
		catSlug sql.NullString
	)
	err := scanner.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Content, &p.Excerpt, &p.Published,
		&p.ReadTime, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt,
		&catID, &catName, &catSlug,
	)
	if err != nil {
		return nil, err
	}
	if catID.Valid {
		p.Category = &models.CategorySummary{ID: catID.UUID, Name: catName.String, Slug: catSlug.String}
	}
	return &p, nil
}

// queryPosts runs a built select and scans every row.
func (s *PostStore) queryPosts(ctx context.Context, op string, b sq.SelectBuilder) ([]models.Post, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return posts, nil
}

// queryPost runs a built select expected to match at most one row.
// Returns nil if no row matches.
func (s *PostStore) queryPost(ctx context.Context, op string, b sq.SelectBuilder) (*models.Post, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}

	p, err := scanPost(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap(op, err)
	}
	return p, nil
}

// ListPublished returns a newest-first page of published posts. When
// categorySlug is non-empty only posts in that category are returned.
func (s *PostStore) ListPublished(ctx context.Context, limit, offset int, categorySlug string) ([]models.Post, error) {
	b := selectPosts().Where(sq.Eq{"p.published": true})
	if categorySlug != "" {
		b = b.Where(sq.Eq{"c.slug": categorySlug})
	}
	b = newestFirst(b).Limit(uint64(limit)).Offset(uint64(offset))
	return s.queryPosts(ctx, "list published posts", b)
}

// FindPublishedBySlug retrieves a published post. Drafts are reported
// as not found. Returns nil if not found.
func (s *PostStore) FindPublishedBySlug(ctx context.Context, slug string) (*models.Post, error) {
	b := selectPosts().Where(sq.Eq{"p.slug": slug, "p.published": true})
	return s.queryPost(ctx, "find published post by slug", b)
}

// Search returns every published post whose title or content contains
// q, case-insensitively, newest first. The result is not paginated.
func (s *PostStore) Search(ctx context.Context, q string) ([]models.Post, error) {
	pattern := containsPattern(q)
	b := selectPosts().
		Where(sq.Eq{"p.published": true}).
		Where(sq.Or{
			sq.ILike{"p.title": pattern},
			sq.ILike{"p.content": pattern},
		})
	return s.queryPosts(ctx, "search posts", newestFirst(b))
}

// ListAll returns a newest-first page of posts in any state.
func (s *PostStore) ListAll(ctx context.Context, limit, offset int) ([]models.Post, error) {
	b := newestFirst(selectPosts()).Limit(uint64(limit)).Offset(uint64(offset))
	return s.queryPosts(ctx, "list posts", b)
}

// FindByID retrieves a post in any state. Returns nil if not found.
func (s *PostStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return s.queryPost(ctx, "find post by id", selectPosts().Where(sq.Eq{"p.id": id}))
}

// FindBySlug retrieves a post in any state. Returns nil if not found.
func (s *PostStore) FindBySlug(ctx context.Context, slug string) (*models.Post, error) {
	return s.queryPost(ctx, "find post by slug", selectPosts().Where(sq.Eq{"p.slug": slug}))
}

// withCategory wraps a data-modifying statement that returns a post row
// in a CTE so the caller gets the category summary in the same round trip.
const withCategory = `
	SELECT p.id, p.title, p.slug, p.content, p.excerpt, p.published,
	       p.read_time, p.category_id, p.created_at, p.updated_at,
	       c.id, c.name, c.slug
	FROM written p
	LEFT JOIN categories c ON c.id = p.category_id`

// Create inserts a new post and returns it with its category summary.
func (s *PostStore) Create(ctx context.Context, p *models.Post) (*models.Post, error) {
	row := s.db.QueryRowContext(ctx, `
		WITH written AS (
			INSERT INTO posts (title, slug, content, excerpt, published, read_time, category_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING *
		)`+withCategory,
		p.Title, p.Slug, p.Content, p.Excerpt, p.Published, p.ReadTime, p.CategoryID,
	)
	result, err := scanPost(row)
	if err != nil {
		return nil, wrap("create post", err)
	}
	return result, nil
}

// Update overwrites every editable column of an existing post and
// refreshes updated_at. Returns nil if the post does not exist.
func (s *PostStore) Update(ctx context.Context, p *models.Post) (*models.Post, error) {
	row := s.db.QueryRowContext(ctx, `
		WITH written AS (
			UPDATE posts SET
				title = $1, slug = $2, content = $3, excerpt = $4,
				published = $5, read_time = $6, category_id = $7,
				updated_at = NOW()
			WHERE id = $8
			RETURNING *
		)`+withCategory,
		p.Title, p.Slug, p.Content, p.Excerpt, p.Published, p.ReadTime, p.CategoryID, p.ID,
	)
	result, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("update post", err)
	}
	return result, nil
}

// Delete removes a post. Its comments go with it (ON DELETE CASCADE).
// Reports whether a row was removed.
func (s *PostStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return false, wrap("delete post", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrap("delete post", err)
	}
	return n > 0, nil
}

// Count returns the number of posts, optionally only published ones.
func (s *PostStore) Count(ctx context.Context, publishedOnly bool) (int, error) {
	b := psql.Select("COUNT(*)").From("posts")
	if publishedOnly {
		b = b.Where(sq.Eq{"published": true})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("count posts: build query: %w", err)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, wrap("count posts", err)
	}
	return n, nil
}
