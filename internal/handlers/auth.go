// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"encoding/base64"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"inkpress/internal/middleware"
	"inkpress/internal/models"
	"inkpress/internal/render"
	"inkpress/internal/session"
)

// totpIssuer names the account in authenticator apps.
const totpIssuer = "inkpress"

// Users is the account lookup used by sign-in. *store.UserStore satisfies it.
type Users interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetTOTPSecret(ctx context.Context, userID uuid.UUID, secret string) error
	EnableTOTP(ctx context.Context, userID uuid.UUID) error
	CheckPassword(user *models.User, password string) bool
}

// Sessions creates and destroys admin sessions. *session.Store satisfies it.
type Sessions interface {
	Create(ctx context.Context, w http.ResponseWriter, data *session.Data) (string, error)
	Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// Auth groups all authentication-related HTTP handlers.
type Auth struct {
	pages
	sessions Sessions
	users    Users
}

// NewAuth creates a new Auth handler group.
func NewAuth(renderer *render.Renderer, sessions Sessions, users Users) *Auth {
	return &Auth{
		pages:    pages{renderer: renderer},
		sessions: sessions,
		users:    users,
	}
}

// AdminIndex sends /admin to the dashboard (or, through RequireAuth, to
// sign-in first).
func (a *Auth) AdminIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, middleware.DashboardPath, http.StatusSeeOther)
}

// LoginPage renders the login form.
func (a *Auth) LoginPage(w http.ResponseWriter, r *http.Request) {
	next := r.URL.Query().Get("next")
	if middleware.SessionFromCtx(r.Context()) != nil {
		http.Redirect(w, r, middleware.SafeNext(next), http.StatusSeeOther)
		return
	}

	a.renderLogin(w, r, http.StatusOK, "", next, "")
}

// LoginSubmit checks the credentials (and the TOTP code when the account
// has two-factor enabled), then starts a session and returns the admin to
// the page that sent them to sign in.
func (a *Auth) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	email := models.NormalizeEmail(r.FormValue("email"))
	password := r.FormValue("password")
	code := strings.TrimSpace(r.FormValue("code"))
	next := r.FormValue("next")

	user, err := a.users.FindByEmail(r.Context(), email)
	if err != nil {
		slog.Error("login lookup failed", "error", err)
		a.renderLogin(w, r, http.StatusInternalServerError, email, next, "An unexpected error occurred.")
		return
	}

	if user == nil || !a.users.CheckPassword(user, password) {
		a.renderLogin(w, r, http.StatusUnauthorized, email, next, "Invalid email or password.")
		return
	}

	if user.RequiresCode() && !totp.Validate(code, *user.TOTPSecret) {
		a.renderLogin(w, r, http.StatusUnauthorized, email, next, "Invalid authentication code.")
		return
	}

	if _, err := a.sessions.Create(r.Context(), w, &session.Data{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}); err != nil {
		a.serverError(w, r, "create session", err)
		return
	}

	http.Redirect(w, r, middleware.SafeNext(next), http.StatusSeeOther)
}

func (a *Auth) renderLogin(w http.ResponseWriter, r *http.Request, status int, email, next, errMsg string) {
	a.renderer.PageStatus(w, r, status, "admin/login", &render.PageData{
		Title: "Sign In",
		Data: map[string]any{
			"Email": email,
			"Next":  next,
			"Error": errMsg,
		},
	})
}

// Logout destroys the session and redirects to the login page.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Error("session destroy failed", "error", err)
	}
	http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
}

// TwoFASetupPage shows the TOTP enrolment QR code. A fresh secret is
// generated on each visit until the admin confirms a code; once enabled
// the page only reports the state.
func (a *Auth) TwoFASetupPage(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	user, err := a.users.FindByID(r.Context(), sess.UserID)
	if err != nil || user == nil {
		a.serverError(w, r, "load user", errOrMissing(err))
		return
	}

	if user.TOTPEnabled {
		a.renderTOTP(w, r, http.StatusOK, nil, true, "")
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Email,
	})
	if err != nil {
		a.serverError(w, r, "generate totp secret", err)
		return
	}

	if err := a.users.SetTOTPSecret(r.Context(), user.ID, key.Secret()); err != nil {
		a.serverError(w, r, "save totp secret", err)
		return
	}

	a.renderTOTP(w, r, http.StatusOK, key, false, "")
}

// TwoFASetupSubmit confirms enrolment with a code from the app.
func (a *Auth) TwoFASetupSubmit(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	user, err := a.users.FindByID(r.Context(), sess.UserID)
	if err != nil || user == nil {
		a.serverError(w, r, "load user", errOrMissing(err))
		return
	}

	if user.TOTPSecret == nil {
		http.Redirect(w, r, "/admin/2fa/setup", http.StatusSeeOther)
		return
	}
	if user.TOTPEnabled {
		a.renderTOTP(w, r, http.StatusOK, nil, true, "")
		return
	}

	if !totp.Validate(strings.TrimSpace(r.FormValue("code")), *user.TOTPSecret) {
		key, err := otp.NewKeyFromURL(keyURL(user.Email, *user.TOTPSecret))
		if err != nil {
			a.serverError(w, r, "rebuild totp key", err)
			return
		}
		a.renderTOTP(w, r, http.StatusUnprocessableEntity, key, false, "Invalid code. Please try again.")
		return
	}

	if err := a.users.EnableTOTP(r.Context(), user.ID); err != nil {
		a.serverError(w, r, "enable totp", err)
		return
	}

	setFlash(w, "success", "Two-factor authentication enabled.")
	http.Redirect(w, r, middleware.DashboardPath, http.StatusSeeOther)
}

func (a *Auth) renderTOTP(w http.ResponseWriter, r *http.Request, status int, key *otp.Key, enabled bool, errMsg string) {
	data := map[string]any{"Enabled": enabled, "Error": errMsg, "QR": template.URL(""), "Secret": ""}

	if key != nil {
		png, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
		if err != nil {
			a.serverError(w, r, "encode qr code", err)
			return
		}
		data["QR"] = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
		data["Secret"] = key.Secret()
	}

	a.renderer.PageStatus(w, r, status, "admin/totp_setup", &render.PageData{
		Title:   "Two-Factor Authentication",
		Section: "security",
		Data:    data,
	})
}

// keyURL rebuilds the otpauth URL for a stored secret.
func keyURL(email, secret string) string {
	q := url.Values{"secret": {secret}, "issuer": {totpIssuer}}
	return "otpauth://totp/" + url.PathEscape(totpIssuer+":"+email) + "?" + q.Encode()
}

func errOrMissing(err error) error {
	if err != nil {
		return err
	}
	return errUserMissing
}
