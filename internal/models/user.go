// Package models defines the rows the blog stores and the small amount of
// behaviour that belongs to them.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is a blog administrator. Every user is fully privileged; there are
// no roles.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	TOTPSecret   *string   `json:"-"` // set when enrolment starts
	TOTPEnabled  bool      `json:"totp_enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RequiresCode reports whether sign-in must include a TOTP code. A stored
// secret only counts once a code has been verified against it.
func (u *User) RequiresCode() bool {
	return u.TOTPEnabled && u.TOTPSecret != nil
}

// EnrolmentPending reports whether 2FA setup was started but never
// confirmed.
func (u *User) EnrolmentPending() bool {
	return u.TOTPSecret != nil && !u.TOTPEnabled
}

// NormalizeEmail is the form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
