// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package blog

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"inkpress/internal/metrics"
	"inkpress/internal/models"
)

// Field limits for visitor comments, in characters.
const (
	MaxCommentLength = 5000
	MaxNameLength    = 100
	MaxEmailLength   = 254
)

// emailPattern accepts the basic local@domain.tld shape.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// CommentInput is a visitor's comment form.
type CommentInput struct {
	AuthorName  string
	AuthorEmail string
	Content     string
}

// Normalize trims every field and validates the result.
func (in CommentInput) Normalize() (CommentInput, error) {
	in.AuthorName = strings.TrimSpace(in.AuthorName)
	in.AuthorEmail = strings.TrimSpace(in.AuthorEmail)
	in.Content = strings.TrimSpace(in.Content)

	switch {
	case in.AuthorName == "":
		return in, invalid("author_name", "is required")
	case utf8.RuneCountInString(in.AuthorName) > MaxNameLength:
		return in, invalid("author_name", "is too long")
	case in.AuthorEmail == "":
		return in, invalid("author_email", "is required")
	case utf8.RuneCountInString(in.AuthorEmail) > MaxEmailLength:
		return in, invalid("author_email", "is too long")
	case !emailPattern.MatchString(in.AuthorEmail):
		return in, invalid("author_email", "is not a valid email address")
	case in.Content == "":
		return in, invalid("content", "is required")
	case utf8.RuneCountInString(in.Content) > MaxCommentLength:
		return in, invalid("content", "is too long")
	}
	return in, nil
}

// CommentFilter selects comments by moderation state in the admin list.
// The zero value selects every state.
type CommentFilter string

// FilterAll lists comments in every state.
const FilterAll CommentFilter = "all"

// ParseCommentFilter reads the admin ?status= parameter. An empty value
// selects pending comments.
func ParseCommentFilter(s string) (CommentFilter, error) {
	switch s {
	case "":
		return CommentFilter(models.CommentPending), nil
	case string(FilterAll):
		return FilterAll, nil
	}
	if models.CommentStatus(s).Valid() {
		return CommentFilter(s), nil
	}
	return "", invalid("status", "must be pending, approved, rejected or all")
}

// status returns the store filter for f, empty meaning every state.
func (f CommentFilter) status() models.CommentStatus {
	if f == FilterAll {
		return ""
	}
	return models.CommentStatus(f)
}

// Comments runs the comment state machine: visitors submit comments as
// pending, and an admin approves or rejects each one exactly once. Every
// change that can alter a post's public listing invalidates its cache.
type Comments struct {
	posts    PostRepository
	comments CommentRepository
	cache    CommentCache
}

// NewComments creates the comment workflow. cache may be nil.
func NewComments(posts PostRepository, comments CommentRepository, cache CommentCache) *Comments {
	if cache == nil {
		cache = nopCache{}
	}
	return &Comments{posts: posts, comments: comments, cache: cache}
}

// Submit validates a visitor comment and stores it as pending. The post
// must exist and be published. Invalid input performs no write.
func (s *Comments) Submit(ctx context.Context, postID uuid.UUID, in CommentInput) (_ *models.Comment, err error) {
	ctx, span := startSpan(ctx, "Comments.Submit", attribute.String("post_id", postID.String()))
	defer func() { endSpan(span, err) }()

	in, err = in.Normalize()
	if err != nil {
		return nil, err
	}

	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, storeErr("find post", err)
	}
	if post == nil || !post.Published {
		return nil, ErrNotFound
	}

	c, err := s.comments.Create(ctx, &models.Comment{
		PostID:      postID,
		AuthorName:  in.AuthorName,
		AuthorEmail: in.AuthorEmail,
		Content:     in.Content,
		Status:      models.CommentPending,
	})
	if err != nil {
		return nil, storeErr("create comment", err)
	}
	metrics.CommentsSubmitted.Inc()
	return c, nil
}

// Approved returns a post's approved comments, newest first, reading
// through the cache.
func (s *Comments) Approved(ctx context.Context, postID uuid.UUID) (_ []models.Comment, err error) {
	cached, gen, ok := s.cache.Get(ctx, postID)
	if ok {
		return cached, nil
	}

	ctx, span := startSpan(ctx, "Comments.Approved", attribute.String("post_id", postID.String()))
	defer func() { endSpan(span, err) }()

	comments, err := s.comments.ListApproved(ctx, postID)
	if err != nil {
		return nil, storeErr("list approved comments", err)
	}
	s.cache.Set(ctx, postID, gen, comments)
	return comments, nil
}

// Moderate moves a pending comment to approved or rejected. Comments that
// were already moderated fail with ErrInvalidTransition, including when
// another request moderates the same comment concurrently.
func (s *Comments) Moderate(ctx context.Context, id uuid.UUID, target models.CommentStatus) (_ *models.Comment, err error) {
	ctx, span := startSpan(ctx, "Comments.Moderate",
		attribute.String("comment_id", id.String()),
		attribute.String("target", string(target)),
	)
	defer func() { endSpan(span, err) }()

	if target != models.CommentApproved && target != models.CommentRejected {
		return nil, invalid("status", "must be approved or rejected")
	}

	c, err := s.comments.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("find comment", err)
	}
	if c == nil {
		return nil, ErrNotFound
	}
	if !c.IsPending() {
		return nil, ErrInvalidTransition
	}

	changed, err := s.comments.SetStatus(ctx, id, models.CommentPending, target)
	if err != nil {
		return nil, storeErr("moderate comment", err)
	}
	if !changed {
		return nil, ErrInvalidTransition
	}

	s.cache.Invalidate(ctx, c.PostID)
	metrics.CommentsModerated.WithLabelValues(string(target)).Inc()
	c.Status = target
	return c, nil
}

// Reply sets the admin reply on a comment in any state without changing
// its status. Blank text removes the reply.
func (s *Comments) Reply(ctx context.Context, id uuid.UUID, text string) (_ *models.Comment, err error) {
	ctx, span := startSpan(ctx, "Comments.Reply", attribute.String("comment_id", id.String()))
	defer func() { endSpan(span, err) }()

	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return nil, invalid("reply", "is too long")
	}

	c, err := s.comments.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("find comment", err)
	}
	if c == nil {
		return nil, ErrNotFound
	}

	var reply *string
	if text != "" {
		reply = &text
	}
	found, err := s.comments.SetReply(ctx, id, reply)
	if err != nil {
		return nil, storeErr("reply to comment", err)
	}
	if !found {
		return nil, ErrNotFound
	}

	s.cache.Invalidate(ctx, c.PostID)
	c.Reply = reply
	return c, nil
}

// Delete removes a comment in any state.
func (s *Comments) Delete(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := startSpan(ctx, "Comments.Delete", attribute.String("comment_id", id.String()))
	defer func() { endSpan(span, err) }()

	c, err := s.comments.FindByID(ctx, id)
	if err != nil {
		return storeErr("find comment", err)
	}
	if c == nil {
		return ErrNotFound
	}

	deleted, err := s.comments.Delete(ctx, id)
	if err != nil {
		return storeErr("delete comment", err)
	}
	if !deleted {
		return ErrNotFound
	}

	s.cache.Invalidate(ctx, c.PostID)
	return nil
}

// List returns a newest-first page of comments for moderation, each with
// its post summary.
func (s *Comments) List(ctx context.Context, filter CommentFilter, page Page) (_ *CommentPage, err error) {
	ctx, span := startSpan(ctx, "Comments.List", attribute.String("filter", string(filter)))
	defer func() { endSpan(span, err) }()

	page, err = page.normalize()
	if err != nil {
		return nil, err
	}

	comments, err := s.comments.List(ctx, filter.status(), page.Size, page.Offset)
	if err != nil {
		return nil, storeErr("list comments", err)
	}
	return &CommentPage{
		Comments: comments,
		Filter:   filter,
		Page:     page,
		HasMore:  len(comments) == page.Size,
	}, nil
}
