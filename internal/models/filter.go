// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"sort"
	"strings"
)

// SortKey selects the ordering of a prompt listing.
type SortKey string

const (
	SortDefault      SortKey = ""
	SortNewest       SortKey = "newest"
	SortOldest       SortKey = "oldest"
	SortUsage        SortKey = "usage"
	SortAlphabetical SortKey = "alphabetical"
)

// ParseSortKey maps a query value to a SortKey. Unknown values fall back to
// the default ordering.
func ParseSortKey(s string) SortKey {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortNewest, SortOldest, SortUsage, SortAlphabetical:
		return k
	default:
		return SortDefault
	}
}

// Filter restricts and orders a prompt listing.
type Filter struct {
	// Search is matched case-insensitively as a substring of the title,
	// the content, or any tag.
	Search string
	// Tags keeps prompts carrying at least one of the listed tags.
	Tags []string
	// Category keeps prompts whose category equals this value.
	Category string
	Sort     SortKey
}

// Matches reports whether p passes the filter. Ordering is not considered.
func (f Filter) Matches(p *Prompt) bool {
	if s := strings.ToLower(f.Search); s != "" {
		if !strings.Contains(strings.ToLower(p.Title), s) &&
			!strings.Contains(strings.ToLower(p.Content), s) &&
			!anyTagContains(p.Tags, s) {
			return false
		}
	}

	if len(f.Tags) > 0 {
		found := false
		for _, t := range f.Tags {
			if p.HasTag(t) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.Category != "" && (p.Category == nil || *p.Category != f.Category) {
		return false
	}

	return true
}

func anyTagContains(tags []string, lower string) bool {
	for _, t := range tags {
		if strings.Contains(strings.ToLower(t), lower) {
			return true
		}
	}
	return false
}

// Apply returns a new slice holding the current rows of prompts that match
// the filter, in the filter's order. The input is not modified.
func (f Filter) Apply(prompts []Prompt) []Prompt {
	out := make([]Prompt, 0, len(prompts))
	for i := range prompts {
		if prompts[i].IsCurrent() && f.Matches(&prompts[i]) {
			out = append(out, prompts[i])
		}
	}
	SortPrompts(out, f.Sort)
	return out
}

// SortPrompts orders prompts in place. The sort is stable so the default key
// keeps the incoming order.
func SortPrompts(prompts []Prompt, key SortKey) {
	var less func(a, b *Prompt) bool
	switch key {
	case SortNewest:
		less = func(a, b *Prompt) bool { return a.CreatedAt.After(b.CreatedAt) }
	case SortOldest:
		less = func(a, b *Prompt) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortUsage:
		less = func(a, b *Prompt) bool { return a.UsageCount > b.UsageCount }
	case SortAlphabetical:
		less = func(a, b *Prompt) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	default:
		return
	}
	sort.SliceStable(prompts, func(i, j int) bool { return less(&prompts[i], &prompts[j]) })
}
