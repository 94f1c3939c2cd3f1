package prompts

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"prompthive/internal/models"
)

// fakeRemote is an in-memory RemoteStore with the same row semantics as the
// PostgreSQL store: user scoping, head-only listing, cascading delete.
type fakeRemote struct {
	mu    sync.Mutex
	rows  map[uuid.UUID][]*models.Prompt
	tags  map[uuid.UUID]map[string]int
	now   func() time.Time
	calls int

	failInsert, failRevise, failUpsert, failIncrement, failList error
}

func newFakeRemote(now func() time.Time) *fakeRemote {
	return &fakeRemote{
		rows: make(map[uuid.UUID][]*models.Prompt),
		tags: make(map[uuid.UUID]map[string]int),
		now:  now,
	}
}

func (f *fakeRemote) ListCurrent(_ context.Context, userID uuid.UUID, filter models.Filter) ([]models.Prompt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failList != nil {
		return nil, f.failList
	}

	var all []models.Prompt
	rows := f.rows[userID]
	// Newest first, like ORDER BY created_at DESC.
	for i := len(rows) - 1; i >= 0; i-- {
		all = append(all, *rows[i].Clone())
	}
	return filter.Apply(all), nil
}

func (f *fakeRemote) FindByID(_ context.Context, userID uuid.UUID, id string) (*models.Prompt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for _, p := range f.rows[userID] {
		if p.ID == id {
			return p.Clone(), nil
		}
	}
	return nil, nil
}

func (f *fakeRemote) insertLocked(userID uuid.UUID, p *models.Prompt) *models.Prompt {
	c := p.Clone()
	c.ID = uuid.NewString()
	now := f.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	f.rows[userID] = append(f.rows[userID], c)
	return c.Clone()
}

func (f *fakeRemote) Insert(_ context.Context, userID uuid.UUID, p *models.Prompt) (*models.Prompt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failInsert != nil {
		return nil, f.failInsert
	}
	return f.insertLocked(userID, p), nil
}

func (f *fakeRemote) Revise(_ context.Context, userID uuid.UUID, snapshot, head *models.Prompt, expected int) (*models.Prompt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failRevise != nil {
		return nil, f.failRevise
	}

	for _, p := range f.rows[userID] {
		if p.ID == head.ID && p.IsCurrent() && p.Version() == expected {
			f.insertLocked(userID, snapshot)
			*p = *head.Clone()
			return p.Clone(), nil
		}
	}
	return nil, nil
}

func (f *fakeRemote) Delete(_ context.Context, userID uuid.UUID, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	found := false
	kept := f.rows[userID][:0]
	for _, p := range f.rows[userID] {
		switch {
		case p.ID == id && p.IsCurrent():
			found = true
		case p.ParentPromptID != nil && *p.ParentPromptID == id:
			// cascade
		default:
			kept = append(kept, p)
		}
	}
	if !found {
		return false, nil
	}
	f.rows[userID] = kept
	return true, nil
}

func (f *fakeRemote) IncrementUsage(_ context.Context, userID uuid.UUID, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failIncrement != nil {
		return 0, f.failIncrement
	}
	for _, p := range f.rows[userID] {
		if p.ID == id && p.IsCurrent() {
			p.UsageCount++
			p.UpdatedAt = advance(p.UpdatedAt, f.now())
			return p.UsageCount, nil
		}
	}
	return 0, nil
}

func (f *fakeRemote) UpsertTags(_ context.Context, userID uuid.UUID, tags []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failUpsert != nil {
		return f.failUpsert
	}
	if f.tags[userID] == nil {
		f.tags[userID] = make(map[string]int)
	}
	for _, t := range tags {
		f.tags[userID][t]++
	}
	return nil
}

func (f *fakeRemote) History(_ context.Context, userID uuid.UUID, id string) ([]models.Prompt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	// Deliberately unordered; the repository orders history itself.
	var out []models.Prompt
	for _, p := range f.rows[userID] {
		if p.ID == id || (p.ParentPromptID != nil && *p.ParentPromptID == id) {
			out = append(out, *p.Clone())
		}
	}
	return out, nil
}

func (f *fakeRemote) ListTags(_ context.Context, userID uuid.UUID) ([]models.TagCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	var out []models.TagCount
	for tag, n := range f.tags[userID] {
		out = append(out, models.TagCount{Tag: tag, Count: n})
	}
	return out, nil
}

func (f *fakeRemote) rowCount(userID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows[userID])
}

// countingGuests wraps a GuestStore and counts calls.
type countingGuests struct {
	GuestStore
	calls int
	fail  error
}

func (c *countingGuests) Load(ctx context.Context, sid string) ([]models.Prompt, error) {
	c.calls++
	if c.fail != nil {
		return nil, c.fail
	}
	return c.GuestStore.Load(ctx, sid)
}

func (c *countingGuests) Save(ctx context.Context, sid string, ps []models.Prompt) error {
	c.calls++
	if c.fail != nil {
		return c.fail
	}
	return c.GuestStore.Save(ctx, sid, ps)
}

func (c *countingGuests) Clear(ctx context.Context, sid string) error {
	c.calls++
	return c.GuestStore.Clear(ctx, sid)
}

var errBoom = errors.New("boom")

// tickingClock returns a clock that advances one second per call.
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}
