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

// CommentStore handles visitor comments and their moderation state.
type CommentStore struct {
	db DBTX
}

// NewCommentStore creates a new CommentStore.
func NewCommentStore(db DBTX) *CommentStore {
	return &CommentStore{db: db}
}

const commentColumns = `id, post_id, author_name, author_email, content, status, reply, created_at`

func scanComment(scanner interface{ Scan(...any) error }) (*models.Comment, error) {
	var c models.Comment
	err := scanner.Scan(
		&c.ID, &c.PostID, &c.AuthorName, &c.AuthorEmail,
		&c.Content, &c.Status, &c.Reply, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListApproved returns the publicly visible comments of a post, newest first.
func (s *CommentStore) ListApproved(ctx context.Context, postID uuid.UUID) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+commentColumns+`
		FROM comments
		WHERE post_id = $1 AND status = $2
		ORDER BY created_at DESC, id DESC
	`, postID, models.CommentApproved)
	if err != nil {
		return nil, wrap("list approved comments", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, wrap("scan comment", err)
		}
		comments = append(comments, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list approved comments", err)
	}
	return comments, nil
}

// List returns a newest-first page of comments for the admin console,
// each with a summary of its post. An empty status lists every state.
func (s *CommentStore) List(ctx context.Context, status models.CommentStatus, limit, offset int) ([]models.Comment, error) {
	b := psql.Select(
		"cm.id", "cm.post_id", "cm.author_name", "cm.author_email",
		"cm.content", "cm.status", "cm.reply", "cm.created_at",
		"p.id", "p.title", "p.slug",
	).
		From("comments cm").
		Join("posts p ON p.id = cm.post_id").
		OrderBy("cm.created_at DESC", "cm.id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))
	if status != "" {
		b = b.Where(sq.Eq{"cm.status": status})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("list comments: build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("list comments", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		var (
			c  models.Comment
			ps models.PostSummary
		)
		err := rows.Scan(
			&c.ID, &c.PostID, &c.AuthorName, &c.AuthorEmail,
			&c.Content, &c.Status, &c.Reply, &c.CreatedAt,
			&ps.ID, &ps.Title, &ps.Slug,
		)
		if err != nil {
			return nil, wrap("scan comment", err)
		}
		c.Post = &ps
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list comments", err)
	}
	return comments, nil
}

// FindByID retrieves a comment. Returns nil if not found.
func (s *CommentStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id)
	c, err := scanComment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("find comment by id", err)
	}
	return c, nil
}

// Create inserts a new comment. The status is always pending regardless
// of c.Status.
func (s *CommentStore) Create(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO comments (post_id, author_name, author_email, content, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+commentColumns,
		c.PostID, c.AuthorName, c.AuthorEmail, c.Content, models.CommentPending,
	)
	result, err := scanComment(row)
	if err != nil {
		return nil, wrap("create comment", err)
	}
	return result, nil
}

// SetStatus moves a comment from one moderation state to another. The
// update only applies while the comment is still in state from, so two
// moderators racing on the same comment cannot both succeed. Reports
// whether the row changed.
func (s *CommentStore) SetStatus(ctx context.Context, id uuid.UUID, from, to models.CommentStatus) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE comments SET status = $1 WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return false, wrap("set comment status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrap("set comment status", err)
	}
	return n > 0, nil
}

// SetReply stores the admin reply for a comment. A nil reply clears it.
// Reports whether the comment exists.
func (s *CommentStore) SetReply(ctx context.Context, id uuid.UUID, reply *string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE comments SET reply = $1 WHERE id = $2`, reply, id)
	if err != nil {
		return false, wrap("set comment reply", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrap("set comment reply", err)
	}
	return n > 0, nil
}

// Delete removes a comment. Reports whether a row was removed.
func (s *CommentStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return false, wrap("delete comment", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrap("delete comment", err)
	}
	return n > 0, nil
}

// Count returns the number of comments, optionally restricted to one
// moderation state. An empty status counts every comment.
func (s *CommentStore) Count(ctx context.Context, status models.CommentStatus) (int, error) {
	b := psql.Select("COUNT(*)").From("comments")
	if status != "" {
		b = b.Where(sq.Eq{"status": status})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("count comments: build query: %w", err)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, wrap("count comments", err)
	}
	return n, nil
}
