// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"prompthive/internal/metrics"
)

var (
	// ErrEmptyInput is returned when there is nothing to send to the model.
	ErrEmptyInput = errors.New("input is required")
	// ErrEnhancement wraps every failure of Enhance.
	ErrEnhancement = errors.New("prompt enhancement failed")
	// ErrAnalysis wraps every failure of Analyze.
	ErrAnalysis = errors.New("prompt analysis failed")
)

const (
	maxAnalyzeInput = 3000
	maxTitleLength  = 60
	maxTags         = 8
	defaultCategory = "General"
)

// Categories is the closed set Analyze picks from.
var Categories = []string{
	"General", "ChatGPT", "Claude", "Development", "Writing", "Analysis",
	"Creative", "Business", "Research", "Education", "Marketing", "Design",
}

const enhanceSystemPrompt = `You are an expert prompt engineer. Your task is to enhance and improve the given prompt to make it more effective, specific, and clear. Add relevant context, structure, and instructions that will help get better results from AI models. Keep the core intent but make it more powerful and detailed. Return only the enhanced prompt without any additional explanation or commentary.`

var analyzeSystemPrompt = `You are an expert at analyzing prompts and generating metadata. Your task is to analyze the given text and generate:

1. A concise, descriptive title (max 60 characters)
2. Relevant tags (3-8 tags, focusing on key concepts, technologies, domains)
3. An appropriate category

Categories to choose from: ` + strings.Join(Categories, ", ") + `

Return your response as valid JSON with this exact structure:
{
  "title": "string",
  "tags": ["tag1", "tag2", "tag3"],
  "category": "string"
}

Focus on the main concepts, technologies, and purpose of the text. Make the title actionable and descriptive. Ensure the output is ONLY JSON with no extra commentary.`

var analysisSchema = jsonschema.MustCompileString("analysis.json", `{
  "type": "object",
  "required": ["title", "tags", "category"],
  "properties": {
    "title":    {"type": "string", "minLength": 1},
    "tags":     {"type": "array", "items": {"type": "string"}},
    "category": {"type": "string", "minLength": 1}
  }
}`)

// Generator is the part of Registry the assistant uses.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, opts Options) (string, error)
	ActiveName() string
}

// Assistant implements the two LLM-backed prompt operations.
type Assistant struct {
	gen Generator
}

// NewAssistant creates an Assistant on top of gen.
func NewAssistant(gen Generator) *Assistant {
	return &Assistant{gen: gen}
}

// AnalyzeRequest is a captured text to derive metadata for.
type AnalyzeRequest struct {
	Content      string `json:"content"`
	SourceURL    string `json:"sourceUrl"`
	SourceDomain string `json:"sourceDomain"`
}

// Analysis is the metadata suggested for a prompt.
type Analysis struct {
	Title    string   `json:"title"`
	Tags     []string `json:"tags"`
	Category string   `json:"category"`
}

// Enhance rewrites prompt into a more effective one.
func (a *Assistant) Enhance(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt is required", ErrEmptyInput)
	}

	out, err := a.generate(ctx, "enhance", enhanceSystemPrompt,
		"Please enhance this prompt to make it more effective and detailed:\n\n"+prompt,
		Options{Temperature: 0.7, MaxTokens: 1000})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEnhancement, err)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%w: empty response", ErrEnhancement)
	}
	return out, nil
}

// Analyze asks the model for a title, tags and category.
func (a *Assistant) Analyze(ctx context.Context, req AnalyzeRequest) (*Analysis, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: content is required", ErrEmptyInput)
	}

	user := fmt.Sprintf("Analyze this text and generate appropriate metadata:\nSource: %s\nDomain: %s\n\nContent:\n%s",
		orUnknown(req.SourceURL), orUnknown(req.SourceDomain), truncate(req.Content, maxAnalyzeInput))

	out, err := a.generate(ctx, "analyze", analyzeSystemPrompt, user, Options{Temperature: 0.3, MaxTokens: 300})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysis, err)
	}

	analysis, err := parseAnalysis(out)
	if err != nil {
		slog.Warn("unusable analysis response", "error", err, "response", truncate(out, 500))
		return nil, fmt.Errorf("%w: %v", ErrAnalysis, err)
	}

	analysis.Tags = withDomainTag(analysis.Tags, req.SourceDomain)
	if len(analysis.Tags) > maxTags {
		analysis.Tags = analysis.Tags[:maxTags]
	}
	return analysis, nil
}

func (a *Assistant) generate(ctx context.Context, op, system, user string, opts Options) (string, error) {
	provider := a.gen.ActiveName()
	start := time.Now()

	out, err := a.gen.Generate(ctx, system, user, opts)

	metrics.AIRequestDuration.WithLabelValues(op, provider).Observe(time.Since(start).Seconds())
	metrics.AIRequests.WithLabelValues(op, provider, metrics.Result(err)).Inc()
	if err != nil {
		slog.Error("ai request failed", "operation", op, "provider", provider, "error", err)
	}
	return out, err
}

// parseAnalysis decodes a model reply, tolerating a surrounding code fence.
func parseAnalysis(raw string) (*Analysis, error) {
	cleaned := stripFences(raw)
	if cleaned == "" {
		return nil, errors.New("empty response")
	}

	var doc any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := analysisSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}

	var a Analysis
	if err := json.Unmarshal([]byte(cleaned), &a); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	a.Title = truncate(strings.TrimSpace(a.Title), maxTitleLength)
	a.Category = canonicalCategory(a.Category)

	tags := make([]string, 0, len(a.Tags))
	for _, t := range a.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	a.Tags = tags
	return &a, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
		s = s[4:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func canonicalCategory(c string) string {
	c = strings.TrimSpace(c)
	for _, known := range Categories {
		if strings.EqualFold(c, known) {
			return known
		}
	}
	return defaultCategory
}

// domainLabel returns the first label of a host name, skipping "www".
func domainLabel(domain string) string {
	domain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "www.")
	label, _, _ := strings.Cut(domain, ".")
	return label
}

func withDomainTag(tags []string, domain string) []string {
	label := domainLabel(domain)
	if label == "" {
		return tags
	}
	for _, t := range tags {
		if strings.EqualFold(t, label) || strings.EqualFold(t, domain) {
			return tags
		}
	}
	return append(tags, label)
}

// FallbackAnalysis derives metadata locally when the model is unavailable:
// the first line as title, the source domain as tag, category General.
func FallbackAnalysis(req AnalyzeRequest) Analysis {
	title := "Captured prompt"
	for _, line := range strings.Split(req.Content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			title = truncate(line, maxTitleLength)
			break
		}
	}

	tags := []string{}
	if label := domainLabel(req.SourceDomain); label != "" {
		tags = append(tags, label)
	}

	return Analysis{Title: title, Tags: tags, Category: defaultCategory}
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
