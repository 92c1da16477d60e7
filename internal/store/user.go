// Package store provides database access methods for all blog entities.
// Each store struct wraps a *sql.DB or *sql.Tx and exposes typed query
// methods that take the caller's context, so a cancelled request aborts
// its queries.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"inkpress/internal/models"
)

// UserStore reads and writes admin accounts.
type UserStore struct {
	db DBTX
}

// NewUserStore returns a UserStore on db.
func NewUserStore(db DBTX) *UserStore {
	return &UserStore{db: db}
}

var userColumns = []string{
	"id", "email", "password_hash", "display_name",
	"totp_secret", "totp_enabled", "created_at", "updated_at",
}

func scanUser(row sq.RowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName,
		&u.TOTPSecret, &u.TOTPEnabled, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

// queryUser runs a statement that yields at most one user row.
func (s *UserStore) queryUser(ctx context.Context, op string, b sq.Sqlizer) (*models.User, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}
	u, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap(op, err)
	}
	return u, nil
}

func (s *UserStore) findOne(ctx context.Context, op string, where sq.Eq) (*models.User, error) {
	return s.queryUser(ctx, op, psql.Select(userColumns...).From("users").Where(where))
}

// FindByEmail returns the account for email, compared case-insensitively,
// or nil.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, "find user by email", sq.Eq{"email": models.NormalizeEmail(email)})
}

// FindByID returns the account with id, or nil.
func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.findOne(ctx, "find user by id", sq.Eq{"id": id})
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Create adds an account with a bcrypt hash of password. A taken email
// yields ErrDuplicate.
func (s *UserStore) Create(ctx context.Context, email, password, displayName string) (*models.User, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	return s.queryUser(ctx, "create user", psql.Insert("users").
		Columns("email", "password_hash", "display_name").
		Values(models.NormalizeEmail(email), hash, displayName).
		Suffix("RETURNING "+strings.Join(userColumns, ", ")))
}

// update applies set to one user and reports sql.ErrNoRows when the id is
// unknown.
func (s *UserStore) update(ctx context.Context, op string, id uuid.UUID, set map[string]any, extra ...sq.Sqlizer) error {
	q := psql.Update("users").SetMap(set).Set("updated_at", sq.Expr("NOW()")).Where(sq.Eq{"id": id})
	for _, cond := range extra {
		q = q.Where(cond)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("%s: build query: %w", op, err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return wrap(op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", op, sql.ErrNoRows)
	}
	return nil
}

// SetPassword replaces the account's password hash.
func (s *UserStore) SetPassword(ctx context.Context, id uuid.UUID, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	return s.update(ctx, "set password", id, map[string]any{"password_hash": hash})
}

// SetTOTPSecret starts 2FA enrolment. Any earlier enrolment is switched
// off until EnableTOTP confirms the new secret.
func (s *UserStore) SetTOTPSecret(ctx context.Context, userID uuid.UUID, secret string) error {
	return s.update(ctx, "set totp secret", userID, map[string]any{
		"totp_secret":  secret,
		"totp_enabled": false,
	})
}

// EnableTOTP completes enrolment. It does nothing for an account without a
// stored secret.
func (s *UserStore) EnableTOTP(ctx context.Context, userID uuid.UUID) error {
	err := s.update(ctx, "enable totp", userID,
		map[string]any{"totp_enabled": true},
		sq.NotEq{"totp_secret": nil},
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}

// ClearTOTP removes 2FA from an account, for operators recovering a lost
// authenticator.
func (s *UserStore) ClearTOTP(ctx context.Context, userID uuid.UUID) error {
	return s.update(ctx, "clear totp", userID, map[string]any{
		"totp_secret":  nil,
		"totp_enabled": false,
	})
}

// CheckPassword reports whether password matches user's stored hash.
func (s *UserStore) CheckPassword(user *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}
