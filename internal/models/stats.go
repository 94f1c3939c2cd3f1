// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"sort"
	"time"
)

// RecentActivityWindow is how far back "recent activity" looks.
const RecentActivityWindow = 7 * 24 * time.Hour

// Stats summarizes a user's active prompt set for the dashboard.
type Stats struct {
	TotalPrompts   int      `json:"totalPrompts"`
	TotalUsage     int      `json:"totalUsage"`
	MostUsedTags   []string `json:"mostUsedTags"`
	RecentActivity int      `json:"recentActivity"`
	ReuseRate      int      `json:"promptReuseRate"` // percent of prompts used more than once
}

// ComputeStats derives Stats from prompts as of now.
func ComputeStats(prompts []Prompt, now time.Time) Stats {
	st := Stats{TotalPrompts: len(prompts), MostUsedTags: []string{}}

	reused := 0
	for i := range prompts {
		p := &prompts[i]
		st.TotalUsage += p.UsageCount
		if now.Sub(p.UpdatedAt) <= RecentActivityWindow {
			st.RecentActivity++
		}
		if p.UsageCount > 1 {
			reused++
		}
	}

	for i, tc := range CountTags(prompts) {
		if i == 5 {
			break
		}
		st.MostUsedTags = append(st.MostUsedTags, tc.Tag)
	}

	denom := len(prompts)
	if denom < 1 {
		denom = 1
	}
	st.ReuseRate = (reused*100 + denom/2) / denom
	return st
}

// TagCount is a tag and the number of prompts (or saves, for the remote
// vocabulary) that carry it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// CountTags tallies tags across prompts, most frequent first. Ties keep
// first-seen order.
func CountTags(prompts []Prompt) []TagCount {
	out := []TagCount{}
	index := make(map[string]int)
	for i := range prompts {
		for _, t := range prompts[i].Tags {
			if j, ok := index[t]; ok {
				out[j].Count++
				continue
			}
			index[t] = len(out)
			out = append(out, TagCount{Tag: t, Count: 1})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// UniqueTags returns every tag across prompts in first-seen order.
func UniqueTags(prompts []Prompt) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for i := range prompts {
		for _, t := range prompts[i].Tags {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// UniqueCategories returns every non-empty category in first-seen order.
func UniqueCategories(prompts []Prompt) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for i := range prompts {
		c := prompts[i].Category
		if c == nil || *c == "" {
			continue
		}
		if _, ok := seen[*c]; ok {
			continue
		}
		seen[*c] = struct{}{}
		out = append(out, *c)
	}
	return out
}
