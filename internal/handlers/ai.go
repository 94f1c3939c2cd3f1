// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"

	"prompthive/internal/ai"
)

// ProviderLister reports the configured LLM providers. *ai.Registry
// implements it.
type ProviderLister interface {
	ActiveName() string
	Available() []string
}

// AI groups the LLM proxy endpoints.
type AI struct {
	assistant *ai.Assistant
	providers ProviderLister
}

// NewAI creates a new AI handler group.
func NewAI(assistant *ai.Assistant, providers ProviderLister) *AI {
	return &AI{assistant: assistant, providers: providers}
}

// Enhance rewrites a prompt. Body {prompt}; reply {enhancedPrompt}.
func (h *AI) Enhance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := h.assistant.Enhance(r.Context(), req.Prompt)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"enhancedPrompt": out})
}

// Analyze suggests a title, tags and category.
// Body {content, sourceUrl, sourceDomain}; reply {title, tags, category}.
func (h *AI) Analyze(w http.ResponseWriter, r *http.Request) {
	var req ai.AnalyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	analysis, err := h.assistant.Analyze(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// Providers lists the configured providers and the active one.
func (h *AI) Providers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"active":    h.providers.ActiveName(),
		"available": nonNil(h.providers.Available()),
	})
}
