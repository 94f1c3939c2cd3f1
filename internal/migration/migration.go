// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package migration moves a guest's staged prompts into the signed-in
// user's remote store when the identity changes.
package migration

import (
	"context"
	"log/slog"
	"sync"

	"prompthive/internal/metrics"
	"prompthive/internal/models"
	"prompthive/internal/session"
)

// Saver inserts a prompt for an identity.
type Saver interface {
	Save(ctx context.Context, id models.Identity, d models.Draft) (*models.Prompt, error)
}

// GuestPartition is the guest staging area.
type GuestPartition interface {
	Load(ctx context.Context, sessionID string) ([]models.Prompt, error)
	Save(ctx context.Context, sessionID string, prompts []models.Prompt) error
	Clear(ctx context.Context, sessionID string) error
}

// Report summarises one migration run.
type Report struct {
	Migrated int `json:"migrated"`
	Failed   int `json:"failed"`
}

// Coordinator reacts to identity changes.
type Coordinator struct {
	prompts Saver
	guests  GuestPartition
}

// New creates a Coordinator.
func New(prompts Saver, guests GuestPartition) *Coordinator {
	return &Coordinator{prompts: prompts, guests: guests}
}

// OnChange is a session.Listener. A guest becoming a user migrates the
// guest partition; a guest signing out discards it.
func (c *Coordinator) OnChange(ctx context.Context, ch session.Change) {
	if !ch.From.IsGuest() || ch.From.GuestSessionID == "" {
		return
	}

	switch {
	case ch.To.IsAuthenticated():
		report, err := c.Migrate(ctx, ch.From.GuestSessionID, ch.To)
		if err != nil {
			slog.Error("guest migration failed", "guest_session", ch.From.GuestSessionID, "error", err)
			return
		}
		if t := trackerFrom(ctx); t != nil {
			t.add(report)
		}
	case ch.To.Kind == models.IdentityNone:
		if err := c.guests.Clear(ctx, ch.From.GuestSessionID); err != nil {
			slog.Warn("clear guest partition failed", "guest_session", ch.From.GuestSessionID, "error", err)
		}
	}
}

// Migrate inserts every prompt of the guest partition for user, one at a
// time in list order. Prompts that fail stay in the partition for the next
// transition; the rest are removed from it.
func (c *Coordinator) Migrate(ctx context.Context, guestSessionID string, user models.Identity) (Report, error) {
	staged, err := c.guests.Load(ctx, guestSessionID)
	if err != nil {
		return Report{}, err
	}
	if len(staged) == 0 {
		return Report{}, nil
	}

	var (
		report Report
		failed []models.Prompt
	)
	for _, p := range staged {
		if _, err := c.prompts.Save(ctx, user, draftFrom(p)); err != nil {
			report.Failed++
			failed = append(failed, p)
			metrics.GuestMigrations.WithLabelValues("error").Inc()
			slog.Warn("migrate guest prompt failed",
				"guest_session", guestSessionID, "user_id", user.UserID, "title", p.Title, "error", err)
			continue
		}
		report.Migrated++
		metrics.GuestMigrations.WithLabelValues("ok").Inc()
	}

	if len(failed) == 0 {
		err = c.guests.Clear(ctx, guestSessionID)
	} else {
		err = c.guests.Save(ctx, guestSessionID, failed)
	}
	if err != nil {
		return report, err
	}

	slog.Info("guest prompts migrated",
		"guest_session", guestSessionID, "user_id", user.UserID,
		"migrated", report.Migrated, "failed", report.Failed)
	return report, nil
}

// draftFrom carries a guest record over to a new remote row. The guest id,
// timestamps and usage count stay behind.
func draftFrom(p models.Prompt) models.Draft {
	d := models.Draft{
		Title:     p.Title,
		Content:   p.Content,
		Tags:      append([]string(nil), p.Tags...),
		Category:  p.Category,
		Tone:      p.Tone,
		Rating:    p.Rating,
		SourceURL: p.SourceURL,
		AIModel:   p.AIModel,
	}
	if p.Metadata != nil {
		m := *p.Metadata
		d.Metadata = &m
	}
	return d
}

type ctxKey struct{}

type tracker struct {
	mu     sync.Mutex
	report Report
	ran    bool
}

func (t *tracker) add(r Report) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.report.Migrated += r.Migrated
	t.report.Failed += r.Failed
	t.ran = true
}

func trackerFrom(ctx context.Context) *tracker {
	t, _ := ctx.Value(ctxKey{}).(*tracker)
	return t
}

// Track returns a context that collects the reports of migrations run
// under it, and a function reading the collected report. ok is false when
// no migration ran.
func Track(ctx context.Context) (context.Context, func() (report Report, ok bool)) {
	t := &tracker{}
	return context.WithValue(ctx, ctxKey{}, t), func() (Report, bool) {
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.report, t.ran
	}
}
