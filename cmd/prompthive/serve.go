package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"prompthive/internal/ai"
	"prompthive/internal/cache"
	"prompthive/internal/config"
	"prompthive/internal/database"
	"prompthive/internal/guest"
	"prompthive/internal/handlers"
	"prompthive/internal/metrics"
	"prompthive/internal/middleware"
	"prompthive/internal/migration"
	"prompthive/internal/prompts"
	"prompthive/internal/router"
	"prompthive/internal/session"
	"prompthive/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the PromptHive HTTP API.

Pending migrations are applied on start, and the development environment
is seeded with a demo account. The server stops gracefully on SIGINT or
SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			return fmt.Errorf("seed database: %w", err)
		}
	}

	// Connect to Valkey (sessions + guest partitions).
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		return fmt.Errorf("connect valkey: %w", err)
	}
	defer valkeyClient.Close()

	// In non-development environments, mark cookies as Secure (HTTPS-only).
	secureCookies := !cfg.IsDev()
	sessionStore := session.NewStore(cache.NewValkeyKV(valkeyClient, "session:", session.DefaultTTL), secureCookies)
	guests := guest.NewPartition(cache.NewValkeyKV(valkeyClient, "prompthive:", session.GuestTTL))
	metrics.RegisterGuestPartitions(prometheus.DefaultRegisterer, guests.Count)

	userStore := store.NewUserStore(db)
	repo := prompts.NewRepository(store.NewPromptStore(db), guests)

	provider := session.NewProvider(sessionStore, userStore, secureCookies)
	provider.Subscribe(migration.New(repo, guests).OnChange)

	aiRegistry := ai.NewRegistry(cfg.AIProvider, map[string]ai.ProviderConfig{
		"openai":  {APIKey: cfg.OpenAIKey, Model: cfg.OpenAIModel, BaseURL: cfg.OpenAIBaseURL},
		"claude":  {APIKey: cfg.ClaudeKey, Model: cfg.ClaudeModel, BaseURL: cfg.ClaudeBaseURL},
		"mistral": {APIKey: cfg.MistralKey, Model: cfg.MistralModel, BaseURL: cfg.MistralBaseURL},
	})
	if !aiRegistry.HasProvider(cfg.AIProvider) {
		if avail := aiRegistry.Available(); len(avail) > 0 {
			if err := aiRegistry.SetActive(avail[0]); err == nil {
				slog.Warn("active ai provider has no api key, falling back", "provider", cfg.AIProvider, "fallback", avail[0])
			}
		} else {
			slog.Warn("no ai provider has an api key, ai endpoints will fail", "provider", cfg.AIProvider)
		}
	}
	slog.Info("ai providers initialized",
		"active", aiRegistry.ActiveName(),
		"available", aiRegistry.Available(),
	)
	assistant := ai.NewAssistant(aiRegistry)

	aiLimiter := middleware.NewRateLimiter(cfg.RateLimitAI, cfg.RateLimitWindow)
	defer aiLimiter.Stop()

	r := router.New(router.Deps{
		Provider:  provider,
		Auth:      handlers.NewAuth(provider, userStore, repo),
		Prompts:   handlers.NewPrompts(repo, assistant),
		AI:        handlers.NewAI(assistant, aiRegistry),
		AILimiter: aiLimiter,
	})

	// WriteTimeout must accommodate AI endpoints that wait on LLM responses.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	// Give active requests up to 30 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
