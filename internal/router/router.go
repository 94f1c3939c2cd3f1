// Package router sets up all HTTP routes and middleware chains for the
// PromptHive API. Prompt routes always run with an identity: callers
// without one get a guest session on first use.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"prompthive/internal/handlers"
	"prompthive/internal/middleware"
	"prompthive/internal/session"
)

// Deps are the handler groups and middleware state the router wires up.
type Deps struct {
	Provider  *session.Provider
	Auth      *handlers.Auth
	Prompts   *handlers.Prompts
	AI        *handlers.AI
	AILimiter *middleware.RateLimiter
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)

	// Health check and metrics: no identity, no CSRF.
	r.Get("/health", healthHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.CSRF)
		r.Use(middleware.LoadIdentity(d.Provider))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", d.Auth.SignUp)
			r.Post("/signin", d.Auth.SignIn)
			r.Post("/anonymous", d.Auth.Anonymous)
			r.Post("/signout", d.Auth.SignOut)
			r.Get("/me", d.Auth.Me)
			// Verify serves both a pending sign-in and enrolment.
			r.Post("/2fa/verify", d.Auth.Verify2FA)

			r.With(middleware.RequireAuth).Post("/2fa/setup", d.Auth.Setup2FA)
		})

		r.Route("/prompts", func(r chi.Router) {
			r.Use(middleware.EnsureGuest(d.Provider))

			r.Get("/", d.Prompts.List)
			r.Post("/", d.Prompts.Create)
			r.Post("/capture", d.Prompts.Capture)
			r.Get("/export", d.Prompts.Export)
			r.Get("/tags", d.Prompts.Tags)
			r.Get("/categories", d.Prompts.Categories)
			r.Get("/stats", d.Prompts.Stats)

			r.Route("/{id}", func(r chi.Router) {
				r.Patch("/", d.Prompts.Update)
				r.Delete("/", d.Prompts.Delete)
				r.Post("/use", d.Prompts.Use)
				r.Get("/history", d.Prompts.History)
				r.Post("/restore/{versionID}", d.Prompts.Restore)
			})
		})

		// LLM calls are paid per token; limit them per client.
		r.Route("/ai", func(r chi.Router) {
			r.Get("/providers", d.AI.Providers)

			r.Group(func(r chi.Router) {
				if d.AILimiter != nil {
					r.Use(d.AILimiter.Middleware)
				}
				r.Post("/enhance", d.AI.Enhance)
				r.Post("/analyze", d.AI.Analyze)
			})
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
