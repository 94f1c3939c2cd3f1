// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler tests:
// in-memory users and prompt rows, a cookie-carrying client, and a router
// with the production middleware chain.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"prompthive/internal/ai"
	"prompthive/internal/cache"
	"prompthive/internal/guest"
	"prompthive/internal/middleware"
	"prompthive/internal/migration"
	"prompthive/internal/models"
	"prompthive/internal/prompts"
	"prompthive/internal/session"
	"prompthive/internal/store"
)

// memUsers keeps accounts in memory. PasswordHash holds the plain password.
type memUsers struct {
	mu      sync.Mutex
	byEmail map[string]*models.User
}

func newMemUsers() *memUsers {
	return &memUsers{byEmail: make(map[string]*models.User)}
}

func (m *memUsers) Create(_ context.Context, email, password, displayName string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[email]; ok {
		return nil, store.ErrEmailTaken
	}
	u := &models.User{ID: uuid.New(), Email: email, PasswordHash: password, DisplayName: displayName}
	m.byEmail[email] = u
	return u, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byEmail[email], nil
}

func (m *memUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byEmail {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memUsers) CheckPassword(u *models.User, password string) bool {
	return u.PasswordHash == password
}

func (m *memUsers) SetTOTPSecret(_ context.Context, userID uuid.UUID, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byEmail {
		if u.ID == userID {
			u.TOTPSecret = &secret
			return nil
		}
	}
	return errors.New("user not found")
}

func (m *memUsers) EnableTOTP(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byEmail {
		if u.ID == userID {
			u.TOTPEnabled = true
			return nil
		}
	}
	return errors.New("user not found")
}

// memRemote is a minimal in-memory prompts.RemoteStore.
type memRemote struct {
	mu   sync.Mutex
	rows map[uuid.UUID][]*models.Prompt
	fail error
}

func newMemRemote() *memRemote {
	return &memRemote{rows: make(map[uuid.UUID][]*models.Prompt)}
}

func (m *memRemote) ListCurrent(_ context.Context, userID uuid.UUID, f models.Filter) ([]models.Prompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Prompt
	for i := len(m.rows[userID]) - 1; i >= 0; i-- {
		if p := m.rows[userID][i]; p.IsCurrent() {
			out = append(out, *p.Clone())
		}
	}
	return f.Apply(out), nil
}

func (m *memRemote) FindByID(_ context.Context, userID uuid.UUID, id string) (*models.Prompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows[userID] {
		if p.ID == id {
			return p.Clone(), nil
		}
	}
	return nil, nil
}

func (m *memRemote) Insert(_ context.Context, userID uuid.UUID, p *models.Prompt) (*models.Prompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	return m.insertLocked(userID, p), nil
}

func (m *memRemote) insertLocked(userID uuid.UUID, p *models.Prompt) *models.Prompt {
	c := p.Clone()
	c.ID = uuid.NewString()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.UpdatedAt = c.CreatedAt
	m.rows[userID] = append(m.rows[userID], c)
	return c.Clone()
}

func (m *memRemote) Revise(_ context.Context, userID uuid.UUID, snapshot, head *models.Prompt, expected int) (*models.Prompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows[userID] {
		if p.ID == head.ID && p.IsCurrent() && p.Version() == expected {
			m.insertLocked(userID, snapshot)
			*p = *head.Clone()
			return p.Clone(), nil
		}
	}
	return nil, nil
}

func (m *memRemote) Delete(_ context.Context, userID uuid.UUID, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := false
	kept := m.rows[userID][:0]
	for _, p := range m.rows[userID] {
		switch {
		case p.ID == id:
			found = true
		case p.ParentPromptID != nil && *p.ParentPromptID == id:
		default:
			kept = append(kept, p)
		}
	}
	m.rows[userID] = kept
	return found, nil
}

func (m *memRemote) IncrementUsage(_ context.Context, userID uuid.UUID, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows[userID] {
		if p.ID == id && p.IsCurrent() {
			p.UsageCount++
			return p.UsageCount, nil
		}
	}
	return 0, nil
}

func (m *memRemote) UpsertTags(context.Context, uuid.UUID, []string) error { return nil }

func (m *memRemote) History(_ context.Context, userID uuid.UUID, id string) ([]models.Prompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Prompt
	for _, p := range m.rows[userID] {
		if p.ID == id || (p.ParentPromptID != nil && *p.ParentPromptID == id) {
			out = append(out, *p.Clone())
		}
	}
	return out, nil
}

func (m *memRemote) ListTags(ctx context.Context, userID uuid.UUID) ([]models.TagCount, error) {
	list, _ := m.ListCurrent(ctx, userID, models.Filter{})
	return models.CountTags(list), nil
}

// stubAnalyzer returns a fixed analysis or error.
type stubAnalyzer struct {
	analysis *ai.Analysis
	err      error
}

func (s *stubAnalyzer) Analyze(context.Context, ai.AnalyzeRequest) (*ai.Analysis, error) {
	return s.analysis, s.err
}

// testEnv holds all dependencies for handler tests.
type testEnv struct {
	Users    *memUsers
	Remote   *memRemote
	Guests   *guest.Partition
	Provider *session.Provider
	Repo     *prompts.Repository
	Prompts  *Prompts
	Auth     *Auth
	Router   http.Handler
}

// newTestEnv wires the handlers the way cmd/prompthive does, on in-memory
// storage.
func newTestEnv(t *testing.T, analyzer Analyzer) *testEnv {
	t.Helper()

	users := newMemUsers()
	remote := newMemRemote()
	guests := guest.NewPartition(cache.NewMemoryKV())
	repo := prompts.NewRepository(remote, guests)

	provider := session.NewProvider(session.NewStore(cache.NewMemoryKV(), false), users, false)
	provider.Subscribe(migration.New(repo, guests).OnChange)

	if analyzer == nil {
		analyzer = &stubAnalyzer{err: ai.ErrAnalysis}
	}
	ph := NewPrompts(repo, analyzer)
	auth := NewAuth(provider, users, repo)

	r := chi.NewRouter()
	r.Use(middleware.CSRF)
	r.Use(middleware.LoadIdentity(provider))
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", auth.SignUp)
		r.Post("/signin", auth.SignIn)
		r.Post("/anonymous", auth.Anonymous)
		r.Post("/signout", auth.SignOut)
		r.Get("/me", auth.Me)
		r.Post("/2fa/verify", auth.Verify2FA)
		r.With(middleware.RequireAuth).Post("/2fa/setup", auth.Setup2FA)
	})
	r.Route("/api/prompts", func(r chi.Router) {
		r.Use(middleware.EnsureGuest(provider))
		r.Get("/", ph.List)
		r.Post("/", ph.Create)
		r.Post("/capture", ph.Capture)
		r.Get("/export", ph.Export)
		r.Get("/tags", ph.Tags)
		r.Get("/categories", ph.Categories)
		r.Get("/stats", ph.Stats)
		r.Patch("/{id}", ph.Update)
		r.Delete("/{id}", ph.Delete)
		r.Post("/{id}/use", ph.Use)
		r.Get("/{id}/history", ph.History)
		r.Post("/{id}/restore/{versionID}", ph.Restore)
	})

	return &testEnv{
		Users: users, Remote: remote, Guests: guests, Provider: provider,
		Repo: repo, Prompts: ph, Auth: auth, Router: r,
	}
}

// browser carries cookies between requests the way a real client would.
type browser struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func (e *testEnv) browser(t *testing.T) *browser {
	return &browser{t: t, handler: e.Router, cookies: make(map[string]*http.Cookie)}
}

// do sends a request, JSON-encoding body when it is not nil.
func (b *browser) do(method, path string, body any) *httptest.ResponseRecorder {
	b.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			b.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range b.cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	rr := httptest.NewRecorder()
	b.handler.ServeHTTP(rr, req)

	for _, c := range rr.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rr
}

// decode unmarshals a response body, failing the test on error.
func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return v
}

// expectStatus fails the test when rr has a different status code.
func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, want, rr.Body.String())
	}
}
