// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"inkpress/internal/models"
	"inkpress/internal/store"
)

// minPasswordLength is the shortest admin password accepted.
const minPasswordLength = 8

var (
	adminEmail       string
	adminName        string
	adminPasswordEnv string
	adminReset       bool
)

// createAdminCmd adds an admin account
var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account",
	Long: `Create an admin account that can sign in to /admin. The password is
read from the environment variable named by --password-env so it never
appears in shell history.

With --reset an existing account keeps its ID, gets the new password and
has two-factor authentication removed, for recovering a lost
authenticator.

Examples:
  ADMIN_PASSWORD=... blogctl create-admin --email me@example.com --name "Jane"
  ADMIN_PASSWORD=... blogctl create-admin --email me@example.com --reset`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password := os.Getenv(adminPasswordEnv)
		email, name, err := normalizeAdmin(adminEmail, adminName, password)
		if err != nil {
			return err
		}

		db, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		users := store.NewUserStore(db)
		existing, err := users.FindByEmail(cmd.Context(), email)
		if err != nil {
			return err
		}
		if existing != nil {
			if !adminReset {
				return fmt.Errorf("an account for %s already exists (use --reset to replace its password)", email)
			}
			if err := users.SetPassword(cmd.Context(), existing.ID, password); err != nil {
				return err
			}
			if err := users.ClearTOTP(cmd.Context(), existing.ID); err != nil {
				return err
			}
			slog.Info("admin credentials reset", "email", email)
			fmt.Fprintf(cmd.OutOrStdout(), "reset admin %s (%s); two-factor removed\n", existing.Email, existing.ID)
			return nil
		}

		user, err := users.Create(cmd.Context(), email, password, name)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", user.Email, user.ID)
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Sign-in email address (required)")
	createAdminCmd.Flags().StringVar(&adminName, "name", "", "Display name (defaults to the email's local part)")
	createAdminCmd.Flags().StringVar(&adminPasswordEnv, "password-env", "ADMIN_PASSWORD", "Environment variable holding the password")
	createAdminCmd.Flags().BoolVar(&adminReset, "reset", false, "Replace the password of an existing account and remove its 2FA")
	createAdminCmd.MarkFlagRequired("email")
}

// normalizeAdmin validates the account fields and fills the default name.
func normalizeAdmin(email, name, password string) (string, string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Name != "" {
		return "", "", fmt.Errorf("invalid email address %q", email)
	}
	email = models.NormalizeEmail(addr.Address)

	if utf8.RuneCountInString(password) < minPasswordLength {
		return "", "", errors.New("password must be at least 8 characters")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	return email, name, nil
}
