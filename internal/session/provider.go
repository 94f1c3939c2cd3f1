// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"

	"prompthive/internal/guest"
	"prompthive/internal/metrics"
	"prompthive/internal/models"
)

var (
	// ErrInvalidCredentials is returned when email or password do not match.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidInput is returned for malformed sign-up data.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoPendingSignIn is returned when a TOTP code arrives without a
	// sign-in waiting for it.
	ErrNoPendingSignIn = errors.New("no sign-in awaiting two-factor verification")
	// ErrInvalidCode is returned for a wrong TOTP code.
	ErrInvalidCode = errors.New("invalid two-factor code")
)

// MinPasswordLength is the shortest password SignUp accepts.
const MinPasswordLength = 6

// Change is one identity transition, published after it happened.
type Change struct {
	From models.Identity
	To   models.Identity
}

// Listener receives identity changes. Listeners run synchronously on the
// request that caused the change, in subscription order.
type Listener func(ctx context.Context, c Change)

// Users is the account lookup the provider needs.
type Users interface {
	Create(ctx context.Context, email, password, displayName string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	CheckPassword(user *models.User, password string) bool
}

// Provider resolves the caller's identity from cookies and performs the
// sign-up, sign-in and sign-out transitions, publishing each one.
type Provider struct {
	sessions *Store
	users    Users
	secure   bool
	now      func() time.Time

	mu        sync.RWMutex
	listeners []Listener
}

// NewProvider creates a Provider. secure marks the guest cookie Secure.
func NewProvider(sessions *Store, users Users, secure bool) *Provider {
	return &Provider{
		sessions: sessions,
		users:    users,
		secure:   secure,
		now:      time.Now,
	}
}

// Subscribe registers fn for every future identity change.
func (p *Provider) Subscribe(fn Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

func (p *Provider) publish(ctx context.Context, c Change) {
	metrics.IdentityChanges.WithLabelValues(c.From.Kind.String(), c.To.Kind.String()).Inc()
	slog.Debug("identity changed", "from", c.From.String(), "to", c.To.String())

	p.mu.RLock()
	listeners := append([]Listener(nil), p.listeners...)
	p.mu.RUnlock()

	for _, fn := range listeners {
		fn(ctx, c)
	}
}

// Current returns the identity of the request. A completed session wins;
// otherwise a guest cookie makes the caller a guest. Session lookup errors
// are logged and treated as no session.
func (p *Provider) Current(r *http.Request) models.Identity {
	if sess := p.session(r); sess != nil && sess.TwoFADone {
		return models.UserIdentity(sess.UserID)
	}
	if sid := guestID(r); sid != "" {
		return models.GuestIdentity(sid)
	}
	return models.NoIdentity()
}

// Session returns the raw session data of the request, or nil.
func (p *Provider) Session(r *http.Request) *Data {
	return p.session(r)
}

func (p *Provider) session(r *http.Request) *Data {
	sess, err := p.sessions.Get(r.Context(), r)
	if err != nil {
		slog.Warn("session lookup failed", "error", err)
		return nil
	}
	return sess
}

// SignInAnonymously gives a caller without identity a fresh guest session.
// Callers that already have an identity keep it.
func (p *Provider) SignInAnonymously(ctx context.Context, w http.ResponseWriter, r *http.Request) models.Identity {
	from := p.Current(r)
	if from.Kind != models.IdentityNone {
		return from
	}

	to := models.GuestIdentity(guest.NewID(p.now()))
	setGuestCookie(w, to.GuestSessionID, p.secure)
	// Later reads within this request see the new guest.
	r.AddCookie(&http.Cookie{Name: GuestCookieName, Value: to.GuestSessionID})

	p.publish(ctx, Change{From: from, To: to})
	return to
}

// SignUp creates an account and signs it in.
func (p *Provider) SignUp(ctx context.Context, w http.ResponseWriter, r *http.Request, email, password, displayName string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email address required", ErrInvalidInput)
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = strings.SplitN(email, "@", 2)[0]
	}

	user, err := p.users.Create(ctx, email, password, displayName)
	if err != nil {
		return nil, err
	}

	if err := p.establish(ctx, w, r, user, true); err != nil {
		return nil, err
	}
	return user, nil
}

// SignIn checks credentials. When the user has two-factor enabled the
// returned pending flag is true and the caller stays a guest until
// CompleteTwoFactor succeeds.
func (p *Provider) SignIn(ctx context.Context, w http.ResponseWriter, r *http.Request, email, password string) (user *models.User, pending bool, err error) {
	user, err = p.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("sign in: %w", err)
	}
	if user == nil || !p.users.CheckPassword(user, password) {
		return nil, false, ErrInvalidCredentials
	}

	done := !user.Requires2FA()
	if err := p.establish(ctx, w, r, user, done); err != nil {
		return nil, false, err
	}
	return user, !done, nil
}

// CompleteTwoFactor validates a TOTP code for a pending sign-in and, on
// success, promotes the session to authenticated.
func (p *Provider) CompleteTwoFactor(ctx context.Context, r *http.Request, code string) (*models.User, error) {
	sess := p.session(r)
	if sess == nil || sess.TwoFADone {
		return nil, ErrNoPendingSignIn
	}

	user, err := p.users.FindByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("complete two-factor: %w", err)
	}
	if user == nil || user.TOTPSecret == nil {
		return nil, ErrNoPendingSignIn
	}
	if !totp.Validate(strings.TrimSpace(code), *user.TOTPSecret) {
		return nil, ErrInvalidCode
	}

	from := p.Current(r)
	sess.TwoFADone = true
	if err := p.sessions.Update(ctx, r, sess); err != nil {
		return nil, err
	}

	p.publish(ctx, Change{From: from, To: models.UserIdentity(user.ID)})
	return user, nil
}

// SignOut ends the caller's session. A signed-in user falls back to the
// guest session the browser still carries, if any. A guest signing out
// discards the guest session entirely.
func (p *Provider) SignOut(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from := p.Current(r)
	sess := p.session(r)

	to := models.NoIdentity()
	if sess != nil {
		if err := p.sessions.Destroy(ctx, w, r); err != nil {
			return err
		}
		if sid := guestID(r); sid != "" {
			to = models.GuestIdentity(sid)
		}
	} else if from.IsGuest() {
		clearGuestCookie(w)
	}

	if from != to {
		p.publish(ctx, Change{From: from, To: to})
	}
	return nil
}

// establish creates a session for user. A completed session publishes the
// transition; a pending one leaves the identity unchanged.
func (p *Provider) establish(ctx context.Context, w http.ResponseWriter, r *http.Request, user *models.User, done bool) error {
	from := p.Current(r)

	// Replace whatever session the browser had.
	if err := p.sessions.Destroy(ctx, w, r); err != nil {
		return err
	}

	_, err := p.sessions.Create(ctx, w, &Data{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		TwoFADone:   done,
	})
	if err != nil {
		return err
	}

	if done {
		p.publish(ctx, Change{From: from, To: models.UserIdentity(user.ID)})
	}
	return nil
}
