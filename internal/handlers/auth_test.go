package handlers

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"

	"prompthive/internal/models"
	"prompthive/internal/session"
)

func TestSignUpMigratesGuestPrompts(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser(t)

	b.do(http.MethodPost, "/api/prompts", models.Draft{Title: "One", Content: "1"})
	b.do(http.MethodPost, "/api/prompts", models.Draft{Title: "Two", Content: "2"})
	guestSID := b.cookies[session.GuestCookieName].Value

	rr := b.do(http.MethodPost, "/api/auth/signup", credentials{Email: "new@example.com", Password: "secret1"})
	expectStatus(t, rr, http.StatusCreated)
	resp := decode[authResponse](t, rr)

	if resp.Identity != "authenticated" || resp.User == nil || resp.User.DisplayName != "new" {
		t.Errorf("response = %+v", resp)
	}
	if resp.Migration == nil || resp.Migration.Migrated != 2 || resp.Migration.Failed != 0 {
		t.Errorf("migration = %+v, want 2 migrated", resp.Migration)
	}
	if len(resp.Prompts) != 2 {
		t.Errorf("reloaded %d prompts, want 2", len(resp.Prompts))
	}

	left, _ := env.Guests.Load(t.Context(), guestSID)
	if len(left) != 0 {
		t.Errorf("guest partition still holds %d prompts", len(left))
	}

	list := decode[[]models.Prompt](t, b.do(http.MethodGet, "/api/prompts", nil))
	if len(list) != 2 || list[0].GuestSessionID != "" {
		t.Errorf("user list = %+v", list)
	}
}

func TestSignUpKeepsFailedPromptsStaged(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser(t)
	b.do(http.MethodPost, "/api/prompts", models.Draft{Title: "One", Content: "1"})
	guestSID := b.cookies[session.GuestCookieName].Value

	env.Remote.fail = errors.New("insert refused")
	rr := b.do(http.MethodPost, "/api/auth/signup", credentials{Email: "f@example.com", Password: "secret1"})
	expectStatus(t, rr, http.StatusCreated)

	resp := decode[authResponse](t, rr)
	if resp.Migration == nil || resp.Migration.Failed != 1 {
		t.Errorf("migration = %+v, want 1 failed", resp.Migration)
	}
	if left, _ := env.Guests.Load(t.Context(), guestSID); len(left) != 1 {
		t.Errorf("guest partition holds %d prompts, want 1", len(left))
	}
}

func TestSignUpErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser(t)
	expectStatus(t, b.do(http.MethodPost, "/api/auth/signup", credentials{Email: "dup@example.com", Password: "secret1"}), http.StatusCreated)

	tests := []struct {
		name string
		body credentials
		want int
	}{
		{name: "bad email", body: credentials{Email: "nope", Password: "secret1"}, want: http.StatusBadRequest},
		{name: "short password", body: credentials{Email: "a@example.com", Password: "123"}, want: http.StatusBadRequest},
		{name: "duplicate", body: credentials{Email: "dup@example.com", Password: "secret1"}, want: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, env.browser(t).do(http.MethodPost, "/api/auth/signup", tt.body), tt.want)
		})
	}
}

func TestSignInAndSignOut(t *testing.T) {
	env := newTestEnv(t, nil)
	env.Users.Create(t.Context(), "u@example.com", "secret1", "U")
	b := env.browser(t)

	expectStatus(t, b.do(http.MethodPost, "/api/auth/signin", credentials{Email: "u@example.com", Password: "wrong"}), http.StatusUnauthorized)

	// A guest first, so sign-out has something to fall back to.
	expectStatus(t, b.do(http.MethodPost, "/api/auth/anonymous", nil), http.StatusOK)

	rr := b.do(http.MethodPost, "/api/auth/signin", credentials{Email: "u@example.com", Password: "secret1"})
	expectStatus(t, rr, http.StatusOK)
	if resp := decode[authResponse](t, rr); resp.Identity != "authenticated" || resp.TwoFactorRequired {
		t.Errorf("signin response = %+v", resp)
	}

	me := decode[authResponse](t, b.do(http.MethodGet, "/api/auth/me", nil))
	if me.Identity != "authenticated" || me.User == nil || me.User.Email != "u@example.com" {
		t.Errorf("me = %+v", me)
	}

	expectStatus(t, b.do(http.MethodPost, "/api/auth/signout", nil), http.StatusNoContent)
	if me := decode[authResponse](t, b.do(http.MethodGet, "/api/auth/me", nil)); me.Identity != "guest" {
		t.Errorf("after signout identity = %q, want guest", me.Identity)
	}

	expectStatus(t, b.do(http.MethodPost, "/api/auth/signout", nil), http.StatusNoContent)
	if me := decode[authResponse](t, b.do(http.MethodGet, "/api/auth/me", nil)); me.Identity != "none" {
		t.Errorf("after guest signout identity = %q, want none", me.Identity)
	}
}

func TestAnonymousKeepsExistingIdentity(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser(t)

	b.do(http.MethodPost, "/api/auth/anonymous", nil)
	first := b.cookies[session.GuestCookieName].Value
	b.do(http.MethodPost, "/api/auth/anonymous", nil)

	if got := b.cookies[session.GuestCookieName].Value; got != first {
		t.Errorf("guest session changed from %q to %q", first, got)
	}
}

func TestTwoFactorEnrolmentAndSignIn(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser(t)

	// Setup requires a signed-in user.
	expectStatus(t, b.do(http.MethodPost, "/api/auth/2fa/setup", nil), http.StatusUnauthorized)

	expectStatus(t, b.do(http.MethodPost, "/api/auth/signup", credentials{Email: "tf@example.com", Password: "secret1"}), http.StatusCreated)

	rr := b.do(http.MethodPost, "/api/auth/2fa/setup", nil)
	expectStatus(t, rr, http.StatusOK)
	setup := decode[map[string]string](t, rr)
	if setup["secret"] == "" || setup["qrCode"] == "" || setup["otpauthUrl"] == "" {
		t.Fatalf("setup response = %v", setup)
	}

	expectStatus(t, b.do(http.MethodPost, "/api/auth/2fa/verify", map[string]string{"code": "000000x"}), http.StatusUnauthorized)

	code, err := totp.GenerateCode(setup["secret"], time.Now())
	if err != nil {
		t.Fatal(err)
	}
	rr = b.do(http.MethodPost, "/api/auth/2fa/verify", map[string]string{"code": code})
	expectStatus(t, rr, http.StatusOK)
	if resp := decode[authResponse](t, rr); resp.User == nil || !resp.User.TOTPEnabled {
		t.Errorf("enrol response = %+v", resp)
	}

	// Enrolled: a second setup is refused.
	expectStatus(t, b.do(http.MethodPost, "/api/auth/2fa/setup", nil), http.StatusConflict)

	// Sign in again as a guest with a staged prompt.
	expectStatus(t, b.do(http.MethodPost, "/api/auth/signout", nil), http.StatusNoContent)
	b.do(http.MethodPost, "/api/prompts", models.Draft{Title: "Staged", Content: "s"})

	rr = b.do(http.MethodPost, "/api/auth/signin", credentials{Email: "tf@example.com", Password: "secret1"})
	expectStatus(t, rr, http.StatusOK)
	if resp := decode[authResponse](t, rr); !resp.TwoFactorRequired || resp.Identity != "guest" {
		t.Fatalf("pending signin response = %+v", resp)
	}

	me := decode[authResponse](t, b.do(http.MethodGet, "/api/auth/me", nil))
	if me.Identity != "guest" || !me.TwoFactorRequired {
		t.Errorf("me while pending = %+v", me)
	}

	code, _ = totp.GenerateCode(setup["secret"], time.Now())
	rr = b.do(http.MethodPost, "/api/auth/2fa/verify", map[string]string{"code": code})
	expectStatus(t, rr, http.StatusOK)
	resp := decode[authResponse](t, rr)
	if resp.Identity != "authenticated" || resp.Migration == nil || resp.Migration.Migrated != 1 {
		t.Errorf("verified response = %+v", resp)
	}
	if len(resp.Prompts) != 1 || resp.Prompts[0].Title != "Staged" {
		t.Errorf("reloaded prompts = %+v", resp.Prompts)
	}
}

func TestVerifyWithoutPendingSignIn(t *testing.T) {
	env := newTestEnv(t, nil)
	expectStatus(t, env.browser(t).do(http.MethodPost, "/api/auth/2fa/verify", map[string]string{"code": "123456"}), http.StatusBadRequest)
}
