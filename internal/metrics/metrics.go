// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PromptOperations counts repository operations by partition and outcome.
	PromptOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompthive_prompt_operations_total",
			Help: "Total number of prompt repository operations by operation, partition and result.",
		},
		[]string{"op", "partition", "result"},
	)

	// SecondaryFailures counts swallowed best-effort failures.
	SecondaryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompthive_secondary_failures_total",
			Help: "Total number of swallowed failures of best-effort operations (tag upsert, usage increment).",
		},
		[]string{"op"},
	)

	// GuestMigrations counts guest prompts moved at sign-in.
	GuestMigrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompthive_guest_migrated_prompts_total",
			Help: "Total number of guest prompts processed by migration, by result.",
		},
		[]string{"result"},
	)

	// AIRequests counts LLM calls by operation, provider and status.
	AIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompthive_ai_requests_total",
			Help: "Total number of LLM requests by operation, provider and status.",
		},
		[]string{"operation", "provider", "status"},
	)

	// AIRequestDuration observes LLM latency.
	AIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prompthive_ai_request_duration_seconds",
			Help:    "Duration of LLM requests in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"operation", "provider"},
	)

	// HTTPRequests counts served requests by method, route pattern and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompthive_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	// IdentityChanges counts session transitions.
	IdentityChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompthive_identity_changes_total",
			Help: "Total number of identity transitions by source and target kind.",
		},
		[]string{"from", "to"},
	)
)

// Result maps an error to the "result" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RegisterGuestPartitions exports the number of stored guest partitions,
// read through count on every scrape.
func RegisterGuestPartitions(reg prometheus.Registerer, count func(ctx context.Context) (int, error)) {
	promauto.With(reg).NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "prompthive_guest_partitions",
			Help: "Number of guest prompt partitions currently stored.",
		},
		func() float64 {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			n, err := count(ctx)
			if err != nil {
				slog.Warn("count guest partitions failed", "error", err)
				return 0
			}
			return float64(n)
		},
	)
}
