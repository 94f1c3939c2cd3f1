// Package guest stores the prompts of unauthenticated visitors. Each guest
// session owns one partition: a JSON array of prompt records kept under a
// single key and rewritten in full on every save.
package guest

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"prompthive/internal/cache"
	"prompthive/internal/models"
)

const (
	// IDPrefix marks guest session ids and guest prompt ids.
	IDPrefix = "guest_"

	// keyPrefix namespaces guest partitions in the KV store.
	keyPrefix = "guest_prompts:"

	suffixLen = 9
	alphabet  = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// NewID returns a fresh guest identifier of the form
// guest_<unix-ms>_<9 base36 chars>.
func NewID(now time.Time) string {
	var b strings.Builder
	b.WriteString(IDPrefix)
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	b.WriteByte('_')
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < suffixLen; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand does not fail on supported platforms.
			panic(fmt.Sprintf("guest id: %v", err))
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String()
}

// IsID reports whether id was issued by NewID.
func IsID(id string) bool {
	return strings.HasPrefix(id, IDPrefix)
}

// Partition persists guest prompt sets in a KV store.
type Partition struct {
	kv cache.KV
}

// NewPartition wraps kv.
func NewPartition(kv cache.KV) *Partition {
	return &Partition{kv: kv}
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

// Load returns the prompts stored for sessionID. Records belonging to other
// sessions are ignored. A missing partition is empty.
func (p *Partition) Load(ctx context.Context, sessionID string) ([]models.Prompt, error) {
	data, ok, err := p.kv.Get(ctx, key(sessionID))
	if err != nil {
		return nil, fmt.Errorf("load guest prompts: %w", err)
	}
	if !ok || len(data) == 0 {
		return []models.Prompt{}, nil
	}

	var stored []models.Prompt
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decode guest prompts: %w", err)
	}

	out := make([]models.Prompt, 0, len(stored))
	for _, pr := range stored {
		if pr.GuestSessionID == sessionID {
			out = append(out, pr)
		}
	}
	return out, nil
}

// Save replaces the whole partition of sessionID with prompts. Every
// record is tagged with the session id before it is written.
func (p *Partition) Save(ctx context.Context, sessionID string, prompts []models.Prompt) error {
	tagged := make([]models.Prompt, len(prompts))
	for i := range prompts {
		tagged[i] = prompts[i]
		tagged[i].GuestSessionID = sessionID
	}

	data, err := json.Marshal(tagged)
	if err != nil {
		return fmt.Errorf("encode guest prompts: %w", err)
	}
	if err := p.kv.Set(ctx, key(sessionID), data); err != nil {
		return fmt.Errorf("save guest prompts: %w", err)
	}
	return nil
}

// Clear drops the partition of sessionID.
func (p *Partition) Clear(ctx context.Context, sessionID string) error {
	if err := p.kv.Delete(ctx, key(sessionID)); err != nil {
		return fmt.Errorf("clear guest prompts: %w", err)
	}
	return nil
}

// Count returns the number of stored guest partitions.
func (p *Partition) Count(ctx context.Context) (int, error) {
	return p.kv.Count(ctx)
}
