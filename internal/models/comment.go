// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// CommentStatus is the moderation state of a comment.
type CommentStatus string

const (
	CommentPending  CommentStatus = "pending"
	CommentApproved CommentStatus = "approved"
	CommentRejected CommentStatus = "rejected"
)

// Valid reports whether s is one of the known moderation states.
func (s CommentStatus) Valid() bool {
	switch s {
	case CommentPending, CommentApproved, CommentRejected:
		return true
	}
	return false
}

// Comment is a visitor reaction to a post. Only approved comments are
// shown to the public.
type Comment struct {
	ID          uuid.UUID     `json:"id"`
	PostID      uuid.UUID     `json:"post_id"`
	AuthorName  string        `json:"author_name"`
	AuthorEmail string        `json:"author_email"`
	Content     string        `json:"content"`
	Status      CommentStatus `json:"status"`
	Reply       *string       `json:"reply,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`

	// Populated only by admin listings.
	Post *PostSummary `json:"post,omitempty"`
}

// IsVisible returns true if the comment may be shown to anonymous readers.
func (c *Comment) IsVisible() bool {
	return c.Status == CommentApproved
}

// IsPending returns true while the comment awaits moderation.
func (c *Comment) IsPending() bool {
	return c.Status == CommentPending
}
