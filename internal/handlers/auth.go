package handlers

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"prompthive/internal/middleware"
	"prompthive/internal/migration"
	"prompthive/internal/models"
	"prompthive/internal/prompts"
	"prompthive/internal/session"
)

// TwoFactorStore persists TOTP enrolment. *store.UserStore implements it.
type TwoFactorStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetTOTPSecret(ctx context.Context, userID uuid.UUID, secret string) error
	EnableTOTP(ctx context.Context, userID uuid.UUID) error
}

// Auth groups all authentication-related HTTP handlers.
type Auth struct {
	provider *session.Provider
	users    TwoFactorStore
	repo     *prompts.Repository
}

// NewAuth creates a new Auth handler group.
func NewAuth(provider *session.Provider, users TwoFactorStore, repo *prompts.Repository) *Auth {
	return &Auth{provider: provider, users: users, repo: repo}
}

// authResponse answers every request that may change the identity.
type authResponse struct {
	Identity          string            `json:"identity"`
	User              *models.User      `json:"user,omitempty"`
	TwoFactorRequired bool              `json:"twoFactorRequired,omitempty"`
	Migration         *migration.Report `json:"migration,omitempty"`
	Prompts           []models.Prompt   `json:"prompts,omitempty"`
}

type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// SignUp creates an account and signs it in. Prompts saved as a guest are
// migrated to the new account.
func (a *Auth) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, collected := migration.Track(r.Context())
	user, err := a.provider.SignUp(ctx, w, r, req.Email, req.Password, req.DisplayName)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	slog.Info("user signed up", "user_id", user.ID)
	a.writeSignedIn(ctx, w, http.StatusCreated, user, collected)
}

// SignIn checks credentials. Accounts with two-factor enabled get
// twoFactorRequired and must call Verify2FA before they are signed in.
func (a *Auth) SignIn(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, collected := migration.Track(r.Context())
	user, pending, err := a.provider.SignIn(ctx, w, r, req.Email, req.Password)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if pending {
		writeJSON(w, http.StatusOK, authResponse{
			Identity:          middleware.IdentityFromCtx(r.Context()).Kind.String(),
			TwoFactorRequired: true,
		})
		return
	}

	slog.Info("user signed in", "user_id", user.ID)
	a.writeSignedIn(ctx, w, http.StatusOK, user, collected)
}

// Anonymous starts a guest session for a caller without identity.
func (a *Auth) Anonymous(w http.ResponseWriter, r *http.Request) {
	id := a.provider.SignInAnonymously(r.Context(), w, r)
	writeJSON(w, http.StatusOK, authResponse{Identity: id.Kind.String()})
}

// SignOut ends the session.
func (a *Auth) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := a.provider.SignOut(r.Context(), w, r); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me describes the caller's identity.
func (a *Auth) Me(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	resp := authResponse{Identity: id.Kind.String()}

	if id.IsAuthenticated() {
		user, err := a.users.FindByID(r.Context(), id.UserID)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		resp.User = user
	} else if sess := a.provider.Session(r); sess != nil && !sess.TwoFADone {
		resp.TwoFactorRequired = true
	}
	writeJSON(w, http.StatusOK, resp)
}

// Setup2FA generates a TOTP secret for the signed-in user and returns it
// with a QR code. Enrolment completes when Verify2FA accepts a code.
func (a *Auth) Setup2FA(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	user, err := a.users.FindByID(r.Context(), id.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if user.TOTPEnabled {
		writeError(w, http.StatusConflict, "two-factor authentication is already enabled")
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "PromptHive",
		AccountName: user.Email,
	})
	if err != nil {
		slog.Error("totp generate failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := a.users.SetTOTPSecret(r.Context(), user.ID, key.Secret()); err != nil {
		writeDomainError(w, r, err)
		return
	}

	// QR code as base64-encoded PNG.
	qrPNG, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		slog.Error("qr code generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"secret":     key.Secret(),
		"otpauthUrl": key.URL(),
		"qrCode":     base64.StdEncoding.EncodeToString(qrPNG),
	})
}

// Verify2FA accepts a TOTP code. With a sign-in awaiting its second factor
// it completes the sign-in; for a signed-in user it finishes enrolment.
func (a *Auth) Verify2FA(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	code := strings.TrimSpace(req.Code)

	if sess := a.provider.Session(r); sess != nil && !sess.TwoFADone {
		ctx, collected := migration.Track(r.Context())
		user, err := a.provider.CompleteTwoFactor(ctx, r, code)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		slog.Info("user signed in", "user_id", user.ID, "two_factor", true)
		a.writeSignedIn(ctx, w, http.StatusOK, user, collected)
		return
	}

	id := middleware.IdentityFromCtx(r.Context())
	if !id.IsAuthenticated() {
		writeDomainError(w, r, session.ErrNoPendingSignIn)
		return
	}

	user, err := a.users.FindByID(r.Context(), id.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if user == nil || user.TOTPSecret == nil {
		writeError(w, http.StatusBadRequest, "two-factor setup has not been started")
		return
	}
	if !totp.Validate(code, *user.TOTPSecret) {
		writeDomainError(w, r, session.ErrInvalidCode)
		return
	}

	if !user.TOTPEnabled {
		if err := a.users.EnableTOTP(r.Context(), user.ID); err != nil {
			writeDomainError(w, r, err)
			return
		}
		user.TOTPEnabled = true
		slog.Info("two-factor enabled", "user_id", user.ID)
	}
	writeJSON(w, http.StatusOK, authResponse{Identity: id.Kind.String(), User: user})
}

// writeSignedIn reports a completed sign-in with the migration outcome and
// the user's reloaded prompt list.
func (a *Auth) writeSignedIn(ctx context.Context, w http.ResponseWriter, status int, user *models.User, collected func() (migration.Report, bool)) {
	id := models.UserIdentity(user.ID)
	resp := authResponse{Identity: id.Kind.String(), User: user}

	if report, ok := collected(); ok {
		resp.Migration = &report
	}

	list, err := a.repo.List(ctx, id, models.Filter{})
	if err != nil {
		slog.Warn("reload prompts after sign-in failed", "user_id", user.ID, "error", err)
	} else {
		resp.Prompts = nonNil(list)
	}
	writeJSON(w, status, resp)
}
