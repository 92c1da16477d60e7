package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultAdminEmail is the account created by Seed in development.
	DefaultAdminEmail = "admin@inkpress.local"
	// DefaultAdminPassword is the development-only password for DefaultAdminEmail.
	DefaultAdminPassword = "admin"
)

const welcomeContent = `# Welcome

This post was created by the development seed. Edit or delete it from the
admin console at ` + "`/admin`" + `.
`

// Seed populates the database with initial development data: a default
// admin account, a "General" category and a published welcome post.
// Each part is skipped when its table already has rows.
func Seed(ctx context.Context, db *sql.DB) error {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte(DefaultAdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("seed bcrypt: %w", err)
		}

		_, err = db.ExecContext(ctx, `
			INSERT INTO users (email, password_hash, display_name)
			VALUES ($1, $2, $3)
		`, DefaultAdminEmail, string(hash), "Admin")
		if err != nil {
			return fmt.Errorf("seed insert admin: %w", err)
		}

		slog.Info("database seeded with default admin user",
			"email", DefaultAdminEmail,
			"password", DefaultAdminPassword,
		)
	}

	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts").Scan(&count); err != nil {
		return fmt.Errorf("seed check posts: %w", err)
	}
	if count > 0 {
		slog.Info("database already seeded, skipping content")
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer tx.Rollback()

	var categoryID string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO categories (name, slug, description)
		VALUES ('General', 'general', 'Everything else')
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`).Scan(&categoryID)
	if err != nil {
		return fmt.Errorf("seed insert category: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO posts (title, slug, content, excerpt, published, read_time, category_id)
		VALUES ($1, $2, $3, $4, TRUE, 1, $5)
	`, "Hello World", "hello-world", welcomeContent, "The first post on this blog.", categoryID)
	if err != nil {
		return fmt.Errorf("seed insert post: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded with sample content")
	return nil
}
