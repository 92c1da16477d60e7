// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package blog

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the requested post, category or comment does not
	// exist (or, for public reads, is not published).
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when moderating a comment that is
	// no longer pending.
	ErrInvalidTransition = errors.New("comment has already been moderated")

	// ErrSlugTaken is returned when a derived slug collides with another row.
	ErrSlugTaken = errors.New("slug is already in use")

	// ErrCategoryInUse is returned when deleting a category that posts
	// still reference.
	ErrCategoryInUse = errors.New("category still has posts")
)

// ValidationError reports bad input. No write is performed when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// StoreError wraps an unexpected failure of the data access layer.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
