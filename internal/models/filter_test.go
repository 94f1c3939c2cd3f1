package models

import (
	"testing"
	"time"
)

func samplePrompts() []Prompt {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return []Prompt{
		{ID: "1", Title: "Blog Post Introduction", Content: "Write an engaging introduction", Tags: []string{"blog", "writing"}, Category: String("Content Creation"), UsageCount: 12, CreatedAt: base.Add(3 * time.Hour)},
		{ID: "2", Title: "Code Review Assistant", Content: "Review the following code", Tags: []string{"code", "Review"}, Category: String("Development"), UsageCount: 8, CreatedAt: base.Add(1 * time.Hour)},
		{ID: "3", Title: "email response", Content: "Help me write a professional email", Tags: []string{"email"}, Category: String("Business"), UsageCount: 15, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "4", Title: "Old version", Content: "archived", Tags: []string{"blog"}, IsCurrentVersion: Bool(false), ParentPromptID: String("1"), CreatedAt: base},
	}
}

func ids(ps []Prompt) string {
	s := ""
	for _, p := range ps {
		s += p.ID
	}
	return s
}

func TestFilterApply(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   string
	}{
		{name: "empty filter keeps current rows in order", filter: Filter{}, want: "123"},
		{name: "search title case-insensitive", filter: Filter{Search: "CODE"}, want: "2"},
		{name: "search content", filter: Filter{Search: "professional"}, want: "3"},
		{name: "search tag substring", filter: Filter{Search: "revi"}, want: "2"},
		{name: "search matches nothing", filter: Filter{Search: "zzz"}, want: ""},
		{name: "tag intersection any", filter: Filter{Tags: []string{"email", "blog"}}, want: "13"},
		{name: "tag match is exact", filter: Filter{Tags: []string{"review"}}, want: ""},
		{name: "category equality", filter: Filter{Category: "Development"}, want: "2"},
		{name: "sort newest", filter: Filter{Sort: SortNewest}, want: "132"},
		{name: "sort oldest", filter: Filter{Sort: SortOldest}, want: "231"},
		{name: "sort usage", filter: Filter{Sort: SortUsage}, want: "312"},
		{name: "sort alphabetical ignores case", filter: Filter{Sort: SortAlphabetical}, want: "123"},
		{name: "archived rows never listed", filter: Filter{Search: "archived"}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Apply(samplePrompts())
			if ids(got) != tt.want {
				t.Errorf("Apply(%+v) = %q, want %q", tt.filter, ids(got), tt.want)
			}
		})
	}
}

func TestFilterApplyDoesNotMutateInput(t *testing.T) {
	in := samplePrompts()
	_ = Filter{Sort: SortUsage}.Apply(in)
	if ids(in) != "1234" {
		t.Errorf("input reordered: %q", ids(in))
	}
}

// TestFilterSearchProperty checks that a prompt is returned exactly when the
// search string occurs in its title, content or one of its tags.
func TestFilterSearchProperty(t *testing.T) {
	terms := []string{"o", "e", "blog", "REVIEW", "write", "x", "email", " "}
	for _, term := range terms {
		got := Filter{Search: term}.Apply(samplePrompts())
		in := make(map[string]bool)
		for _, p := range got {
			in[p.ID] = true
		}
		for _, p := range samplePrompts() {
			if !p.IsCurrent() {
				continue
			}
			want := Filter{Search: term}.Matches(&p)
			if in[p.ID] != want {
				t.Errorf("term %q prompt %s: listed=%v, matches=%v", term, p.ID, in[p.ID], want)
			}
		}
	}
}

func TestParseSortKey(t *testing.T) {
	tests := map[string]SortKey{
		"newest":       SortNewest,
		"OLDEST":       SortOldest,
		" usage ":      SortUsage,
		"alphabetical": SortAlphabetical,
		"default":      SortDefault,
		"":             SortDefault,
		"bogus":        SortDefault,
	}
	for in, want := range tests {
		if got := ParseSortKey(in); got != want {
			t.Errorf("ParseSortKey(%q) = %q, want %q", in, got, want)
		}
	}
}
