// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package prompts is the versioned prompt repository. It routes every
// operation to the guest partition or the remote store according to the
// caller's identity, and archives the previous state of a remote prompt
// before each edit.
package prompts

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"prompthive/internal/guest"
	"prompthive/internal/metrics"
	"prompthive/internal/models"
)

// RemoteStore is the persistence used for signed-in users.
// *store.PromptStore implements it.
type RemoteStore interface {
	ListCurrent(ctx context.Context, userID uuid.UUID, f models.Filter) ([]models.Prompt, error)
	FindByID(ctx context.Context, userID uuid.UUID, id string) (*models.Prompt, error)
	Insert(ctx context.Context, userID uuid.UUID, p *models.Prompt) (*models.Prompt, error)
	Revise(ctx context.Context, userID uuid.UUID, snapshot, head *models.Prompt, expected int) (*models.Prompt, error)
	Delete(ctx context.Context, userID uuid.UUID, id string) (bool, error)
	IncrementUsage(ctx context.Context, userID uuid.UUID, id string) (int, error)
	UpsertTags(ctx context.Context, userID uuid.UUID, tags []string) error
	History(ctx context.Context, userID uuid.UUID, id string) ([]models.Prompt, error)
	ListTags(ctx context.Context, userID uuid.UUID) ([]models.TagCount, error)
}

// GuestStore is the per-session guest partition. *guest.Partition
// implements it.
type GuestStore interface {
	Load(ctx context.Context, sessionID string) ([]models.Prompt, error)
	Save(ctx context.Context, sessionID string, prompts []models.Prompt) error
	Clear(ctx context.Context, sessionID string) error
}

// Repository is the single entry point for prompt reads and writes.
type Repository struct {
	remote RemoteStore
	guests GuestStore
	now    func() time.Time
	newID  func(time.Time) string
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithGuestIDs replaces the guest prompt id generator.
func WithGuestIDs(newID func(time.Time) string) Option {
	return func(r *Repository) { r.newID = newID }
}

// NewRepository creates a Repository over the two partitions.
func NewRepository(remote RemoteStore, guests GuestStore, opts ...Option) *Repository {
	r := &Repository{
		remote: remote,
		guests: guests,
		now:    time.Now,
		newID:  guest.NewID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func partitionLabel(id models.Identity) string {
	switch id.Partition() {
	case models.PartitionGuest:
		return "guest"
	case models.PartitionRemote:
		return "remote"
	default:
		return "none"
	}
}

func observe(op string, id models.Identity, err error) {
	metrics.PromptOperations.WithLabelValues(op, partitionLabel(id), metrics.Result(err)).Inc()
}

// List returns the caller's current prompts that pass f.
func (r *Repository) List(ctx context.Context, id models.Identity, f models.Filter) (out []models.Prompt, err error) {
	defer func() { observe("list", id, err) }()

	switch id.Partition() {
	case models.PartitionGuest:
		all, err := r.guests.Load(ctx, id.GuestSessionID)
		if err != nil {
			return nil, storageErr("list guest prompts", err)
		}
		return f.Apply(all), nil
	case models.PartitionRemote:
		prompts, err := r.remote.ListCurrent(ctx, id.UserID, f)
		if err != nil {
			return nil, storageErr("list prompts", err)
		}
		return prompts, nil
	default:
		return nil, ErrNoIdentity
	}
}

// Save validates d and stores a new prompt at version 1.
func (r *Repository) Save(ctx context.Context, id models.Identity, d models.Draft) (out *models.Prompt, err error) {
	defer func() { observe("save", id, err) }()

	p, err := r.promptFromDraft(d)
	if err != nil {
		return nil, err
	}

	switch id.Partition() {
	case models.PartitionGuest:
		return r.saveGuest(ctx, id.GuestSessionID, p)
	case models.PartitionRemote:
		return r.saveRemote(ctx, id.UserID, p)
	default:
		return nil, ErrNoIdentity
	}
}

func (r *Repository) promptFromDraft(d models.Draft) (*models.Prompt, error) {
	title := strings.TrimSpace(d.Title)
	content := strings.TrimSpace(d.Content)
	if title == "" {
		return nil, validationErr("title is required")
	}
	if content == "" {
		return nil, validationErr("content is required")
	}
	if err := validateRating(d.Rating); err != nil {
		return nil, err
	}

	p := &models.Prompt{
		Title:            title,
		Content:          content,
		Tags:             models.NormalizeTags(d.Tags),
		Category:         trimmed(d.Category),
		Tone:             trimmed(d.Tone),
		Rating:           d.Rating,
		IsLongPrompt:     models.IsLong(content),
		SourceURL:        trimmed(d.SourceURL),
		AIModel:          trimmed(d.AIModel),
		VersionNumber:    1,
		IsCurrentVersion: models.Bool(true),
	}
	if d.Metadata != nil {
		m := *d.Metadata
		p.Metadata = &m
		if p.SourceURL == nil && m.SourceURL != "" {
			p.SourceURL = models.String(m.SourceURL)
		}
		if m.SourceURL != "" && !p.HasTag(models.URLTag) {
			p.Tags = append(p.Tags, models.URLTag)
		}
	}
	return p, nil
}

func (r *Repository) saveGuest(ctx context.Context, sessionID string, p *models.Prompt) (*models.Prompt, error) {
	existing, err := r.guests.Load(ctx, sessionID)
	if err != nil {
		return nil, storageErr("load guest prompts", err)
	}

	now := r.now()
	p.ID = r.newID(now)
	p.CreatedAt = now
	p.UpdatedAt = now
	p.GuestSessionID = sessionID

	// Newest first, matching the remote default order.
	all := append([]models.Prompt{*p}, existing...)
	if err := r.guests.Save(ctx, sessionID, all); err != nil {
		return nil, storageErr("save guest prompts", err)
	}
	return p, nil
}

func (r *Repository) saveRemote(ctx context.Context, userID uuid.UUID, p *models.Prompt) (*models.Prompt, error) {
	created, err := r.remote.Insert(ctx, userID, p)
	if err != nil {
		return nil, storageErr("insert prompt", err)
	}

	if len(created.Tags) > 0 {
		if err := r.remote.UpsertTags(ctx, userID, created.Tags); err != nil {
			metrics.SecondaryFailures.WithLabelValues("upsert_tags").Inc()
			slog.Warn("upsert tag vocabulary failed", "user_id", userID, "error", err)
		}
	}
	return created, nil
}

// Update applies changes to the prompt. Remote prompts are archived first:
// the previous state becomes a read-only snapshot and the head moves to the
// next version. Guest prompts are rewritten in place.
func (r *Repository) Update(ctx context.Context, id models.Identity, promptID string, changes models.Changes) (out *models.Prompt, err error) {
	defer func() { observe("update", id, err) }()

	if err := validateChanges(changes); err != nil {
		return nil, err
	}

	switch id.Partition() {
	case models.PartitionGuest:
		return r.updateGuest(ctx, id.GuestSessionID, promptID, changes)
	case models.PartitionRemote:
		return r.updateRemote(ctx, id.UserID, promptID, changes)
	default:
		return nil, ErrNoIdentity
	}
}

func validateChanges(c models.Changes) error {
	if c.Title != nil && strings.TrimSpace(*c.Title) == "" {
		return validationErr("title cannot be empty")
	}
	if c.Content != nil && strings.TrimSpace(*c.Content) == "" {
		return validationErr("content cannot be empty")
	}
	return validateRating(c.Rating)
}

func validateRating(rating *int) error {
	if rating != nil && (*rating < 1 || *rating > 5) {
		return validationErr("rating must be between 1 and 5")
	}
	return nil
}

func (r *Repository) updateGuest(ctx context.Context, sessionID, promptID string, changes models.Changes) (*models.Prompt, error) {
	all, err := r.guests.Load(ctx, sessionID)
	if err != nil {
		return nil, storageErr("load guest prompts", err)
	}

	i := indexOf(all, promptID)
	if i < 0 {
		return nil, ErrNotFound
	}

	p := &all[i]
	changes.Apply(p)
	now := advance(p.UpdatedAt, r.now())
	p.UpdatedAt = now
	p.EditedAt = &now

	if err := r.guests.Save(ctx, sessionID, all); err != nil {
		return nil, storageErr("save guest prompts", err)
	}
	return p.Clone(), nil
}

func (r *Repository) updateRemote(ctx context.Context, userID uuid.UUID, promptID string, changes models.Changes) (*models.Prompt, error) {
	head, err := r.remote.FindByID(ctx, userID, promptID)
	if err != nil {
		return nil, storageErr("find prompt", err)
	}
	if head == nil || !head.IsCurrent() {
		return nil, ErrNotFound
	}

	snapshot := head.Clone()
	snapshot.ID = ""
	snapshot.ParentPromptID = models.String(head.ID)
	snapshot.IsCurrentVersion = models.Bool(false)
	snapshot.VersionNumber = head.Version()
	prevUpdated := head.UpdatedAt
	snapshot.EditedAt = &prevUpdated

	now := advance(head.UpdatedAt, r.now())
	next := head.Clone()
	changes.Apply(next)
	next.VersionNumber = head.Version() + 1
	next.UpdatedAt = now
	next.EditedAt = &now
	if next.Metadata == nil {
		next.Metadata = &models.Metadata{}
	}
	next.Metadata.LastEditedAt = &now
	next.Metadata.EditCount++

	updated, err := r.remote.Revise(ctx, userID, snapshot, next, head.Version())
	if err != nil {
		return nil, storageErr("revise prompt", err)
	}
	if updated == nil {
		// Either the prompt went away or another edit moved the head on.
		latest, err := r.remote.FindByID(ctx, userID, promptID)
		if err != nil {
			return nil, storageErr("find prompt", err)
		}
		if latest != nil && latest.IsCurrent() {
			return nil, ErrConflict
		}
		return nil, ErrNotFound
	}
	return updated, nil
}

// Delete removes a prompt. For remote prompts the archived history goes
// with it.
func (r *Repository) Delete(ctx context.Context, id models.Identity, promptID string) (err error) {
	defer func() { observe("delete", id, err) }()

	switch id.Partition() {
	case models.PartitionGuest:
		all, err := r.guests.Load(ctx, id.GuestSessionID)
		if err != nil {
			return storageErr("load guest prompts", err)
		}
		i := indexOf(all, promptID)
		if i < 0 {
			return ErrNotFound
		}
		all = append(all[:i], all[i+1:]...)
		if err := r.guests.Save(ctx, id.GuestSessionID, all); err != nil {
			return storageErr("save guest prompts", err)
		}
		return nil
	case models.PartitionRemote:
		ok, err := r.remote.Delete(ctx, id.UserID, promptID)
		if err != nil {
			return storageErr("delete prompt", err)
		}
		if !ok {
			return ErrNotFound
		}
		return nil
	default:
		return ErrNoIdentity
	}
}

// IncrementUsage records one use of the prompt. Remote counting is best
// effort: store failures are logged and dropped.
func (r *Repository) IncrementUsage(ctx context.Context, id models.Identity, promptID string) (err error) {
	defer func() { observe("use", id, err) }()

	switch id.Partition() {
	case models.PartitionGuest:
		all, err := r.guests.Load(ctx, id.GuestSessionID)
		if err != nil {
			return storageErr("load guest prompts", err)
		}
		i := indexOf(all, promptID)
		if i < 0 {
			return ErrNotFound
		}
		all[i].UsageCount++
		all[i].UpdatedAt = advance(all[i].UpdatedAt, r.now())
		if err := r.guests.Save(ctx, id.GuestSessionID, all); err != nil {
			return storageErr("save guest prompts", err)
		}
		return nil
	case models.PartitionRemote:
		n, err := r.remote.IncrementUsage(ctx, id.UserID, promptID)
		if err != nil {
			metrics.SecondaryFailures.WithLabelValues("increment_usage").Inc()
			slog.Warn("increment usage failed", "prompt_id", promptID, "error", err)
			return nil
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	default:
		return ErrNoIdentity
	}
}

// History returns the head of the lineage followed by its archived
// snapshots, most recent version first. Guest prompts have no history
// beyond their current state.
func (r *Repository) History(ctx context.Context, id models.Identity, promptID string) (out []models.Prompt, err error) {
	defer func() { observe("history", id, err) }()

	switch id.Partition() {
	case models.PartitionGuest:
		all, err := r.guests.Load(ctx, id.GuestSessionID)
		if err != nil {
			return nil, storageErr("load guest prompts", err)
		}
		i := indexOf(all, promptID)
		if i < 0 {
			return nil, ErrNotFound
		}
		return []models.Prompt{all[i]}, nil
	case models.PartitionRemote:
		versions, err := r.remote.History(ctx, id.UserID, promptID)
		if err != nil {
			return nil, storageErr("list prompt history", err)
		}
		if len(versions) == 0 {
			return nil, ErrNotFound
		}
		orderHistory(versions)
		return versions, nil
	default:
		return nil, ErrNoIdentity
	}
}

// orderHistory puts the head first and archived rows by version, newest
// first.
func orderHistory(versions []models.Prompt) {
	sort.SliceStable(versions, func(i, j int) bool {
		a, b := &versions[i], &versions[j]
		if a.IsCurrent() != b.IsCurrent() {
			return a.IsCurrent()
		}
		return a.Version() > b.Version()
	})
}

// Restore copies an archived version's content back onto the head. The
// restore is an ordinary edit, so the state it replaces is archived too.
func (r *Repository) Restore(ctx context.Context, id models.Identity, promptID, versionID string) (*models.Prompt, error) {
	versions, err := r.History(ctx, id, promptID)
	if err != nil {
		return nil, err
	}

	var from *models.Prompt
	for i := range versions {
		if versions[i].ID == versionID && !versions[i].IsCurrent() {
			from = &versions[i]
			break
		}
	}
	if from == nil {
		return nil, ErrNotFound
	}

	tags := append([]string{}, from.Tags...)
	changes := models.Changes{
		Title:    models.String(from.Title),
		Content:  models.String(from.Content),
		Tags:     &tags,
		Category: models.String(deref(from.Category)),
		Tone:     models.String(deref(from.Tone)),
		Rating:   from.Rating,
	}
	return r.Update(ctx, id, promptID, changes)
}

// Tags returns the caller's tag vocabulary, most used first. Signed-in
// users get the stored vocabulary; guests get counts over their prompts.
func (r *Repository) Tags(ctx context.Context, id models.Identity) ([]models.TagCount, error) {
	if id.Partition() == models.PartitionRemote {
		tags, err := r.remote.ListTags(ctx, id.UserID)
		if err != nil {
			return nil, storageErr("list tags", err)
		}
		return tags, nil
	}

	prompts, err := r.List(ctx, id, models.Filter{})
	if err != nil {
		return nil, err
	}
	return models.CountTags(prompts), nil
}

// Categories returns the distinct categories of the caller's prompts.
func (r *Repository) Categories(ctx context.Context, id models.Identity) ([]string, error) {
	prompts, err := r.List(ctx, id, models.Filter{})
	if err != nil {
		return nil, err
	}
	return models.UniqueCategories(prompts), nil
}

// Stats summarizes the caller's prompts.
func (r *Repository) Stats(ctx context.Context, id models.Identity) (models.Stats, error) {
	prompts, err := r.List(ctx, id, models.Filter{})
	if err != nil {
		return models.Stats{}, err
	}
	return models.ComputeStats(prompts, r.now()), nil
}

func indexOf(prompts []models.Prompt, id string) int {
	for i := range prompts {
		if prompts[i].ID == id {
			return i
		}
	}
	return -1
}

// advance returns now, or prev plus a microsecond when the clock has not
// moved past prev. Timestamps of a record never go backwards or repeat.
func advance(prev, now time.Time) time.Time {
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Microsecond)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
