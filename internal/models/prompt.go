// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

// LongPromptThreshold is the content length (in characters) above which a
// prompt is flagged as long. The flag is a display and storage hint only.
const LongPromptThreshold = 2000

// URLTag is appended automatically to prompts captured from a web page.
const URLTag = "URL"

// Metadata holds provenance information for captured prompts and the edit
// bookkeeping maintained by the repository.
type Metadata struct {
	SourceURL        string     `json:"sourceUrl,omitempty"`
	SourceDomain     string     `json:"sourceDomain,omitempty"`
	CapturedAt       *time.Time `json:"capturedAt,omitempty"`
	SelectionContext string     `json:"selectionContext,omitempty"`
	LastEditedAt     *time.Time `json:"lastEditedAt,omitempty"`
	EditCount        int        `json:"editCount,omitempty"`
}

// Prompt is a saved prompt. The same type represents the head of a lineage
// and its archived snapshots; IsCurrentVersion tells them apart.
type Prompt struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Tags         []string  `json:"tags"`
	Category     *string   `json:"category,omitempty"`
	Tone         *string   `json:"tone,omitempty"`
	UsageCount   int       `json:"usageCount"`
	Rating       *int      `json:"rating,omitempty"`
	IsLongPrompt bool      `json:"isLongPrompt"`
	SourceURL    *string   `json:"sourceUrl,omitempty"`
	AIModel      *string   `json:"aiModel,omitempty"`
	Metadata     *Metadata `json:"metadata,omitempty"`

	VersionNumber    int     `json:"versionNumber"`
	ParentPromptID   *string `json:"parentPromptId,omitempty"`
	IsCurrentVersion *bool   `json:"isCurrentVersion,omitempty"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	EditedAt  *time.Time `json:"editedAt,omitempty"`

	// GuestSessionID tags records stored in a guest partition.
	GuestSessionID string `json:"guestSessionId,omitempty"`
}

// IsCurrent reports whether the row is the head of its lineage. Rows without
// versioning metadata (legacy and guest records) count as current.
func (p *Prompt) IsCurrent() bool {
	return p.IsCurrentVersion == nil || *p.IsCurrentVersion
}

// Version returns the version number, treating a missing value as 1.
func (p *Prompt) Version() int {
	if p.VersionNumber < 1 {
		return 1
	}
	return p.VersionNumber
}

// HasTag reports whether the prompt carries the exact tag.
func (p *Prompt) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can mutate it freely.
func (p *Prompt) Clone() *Prompt {
	c := *p
	c.Tags = append([]string(nil), p.Tags...)
	if p.Metadata != nil {
		m := *p.Metadata
		c.Metadata = &m
	}
	return &c
}

// IsLong reports whether content exceeds LongPromptThreshold characters.
func IsLong(content string) bool {
	return utf8.RuneCountInString(content) > LongPromptThreshold
}

// Draft is the input for creating a prompt.
type Draft struct {
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	Category  *string   `json:"category,omitempty"`
	Tone      *string   `json:"tone,omitempty"`
	Rating    *int      `json:"rating,omitempty"`
	SourceURL *string   `json:"sourceUrl,omitempty"`
	AIModel   *string   `json:"aiModel,omitempty"`
	Metadata  *Metadata `json:"metadata,omitempty"`
}

// Changes is a partial update. Nil fields are left untouched.
type Changes struct {
	Title    *string   `json:"title,omitempty"`
	Content  *string   `json:"content,omitempty"`
	Tags     *[]string `json:"tags,omitempty"`
	Category *string   `json:"category,omitempty"`
	Tone     *string   `json:"tone,omitempty"`
	Rating   *int      `json:"rating,omitempty"`
}

// Apply copies the set fields onto p.
func (c *Changes) Apply(p *Prompt) {
	if c.Title != nil {
		p.Title = strings.TrimSpace(*c.Title)
	}
	if c.Content != nil {
		p.Content = strings.TrimSpace(*c.Content)
		p.IsLongPrompt = IsLong(p.Content)
	}
	if c.Tags != nil {
		p.Tags = NormalizeTags(*c.Tags)
	}
	if c.Category != nil {
		p.Category = emptyToNil(*c.Category)
	}
	if c.Tone != nil {
		p.Tone = emptyToNil(*c.Tone)
	}
	if c.Rating != nil {
		r := *c.Rating
		p.Rating = &r
	}
}

// NormalizeTags trims tags and drops blanks and duplicates, keeping the
// first occurrence order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func emptyToNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

// String returns a pointer to s.
func String(s string) *string { return &s }

// Int returns a pointer to n.
func Int(n int) *int { return &n }
