// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"prompthive/internal/ai"
	"prompthive/internal/export"
	"prompthive/internal/middleware"
	"prompthive/internal/models"
	"prompthive/internal/prompts"
)

// Analyzer suggests metadata for captured text. *ai.Assistant implements it.
type Analyzer interface {
	Analyze(ctx context.Context, req ai.AnalyzeRequest) (*ai.Analysis, error)
}

// Prompts groups the prompt library endpoints. Every handler works on the
// partition of the identity loaded by the middleware.
type Prompts struct {
	repo     *prompts.Repository
	analyzer Analyzer
	now      func() time.Time
}

// NewPrompts creates a new Prompts handler group.
func NewPrompts(repo *prompts.Repository, analyzer Analyzer) *Prompts {
	return &Prompts{repo: repo, analyzer: analyzer, now: time.Now}
}

// List returns the caller's current prompts.
// Query: search, tags (comma separated), category, sort.
func (h *Prompts) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.Filter{
		Search:   strings.TrimSpace(q.Get("search")),
		Tags:     splitTags(q.Get("tags")),
		Category: strings.TrimSpace(q.Get("category")),
		Sort:     models.ParseSortKey(q.Get("sort")),
	}

	list, err := h.repo.List(r.Context(), middleware.IdentityFromCtx(r.Context()), f)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

// Create saves a new prompt.
func (h *Prompts) Create(w http.ResponseWriter, r *http.Request) {
	var d models.Draft
	if !decodeJSONLimit(w, r, &d, maxPromptBodyBytes) {
		return
	}
	if msg := validateDraft(&d); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	p, err := h.repo.Save(r.Context(), middleware.IdentityFromCtx(r.Context()), d)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// captureRequest is the payload of a text selection sent by the browser
// extension.
type captureRequest struct {
	Content          string `json:"content"`
	SourceURL        string `json:"sourceUrl"`
	SourceDomain     string `json:"sourceDomain"`
	SelectionContext string `json:"selectionContext"`
}

// Capture saves a selection captured on a web page. Title, tags and
// category come from Analyze, or from FallbackAnalysis when the model is
// unavailable.
func (h *Prompts) Capture(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	if !decodeJSONLimit(w, r, &req, maxPromptBodyBytes) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	areq := ai.AnalyzeRequest{Content: req.Content, SourceURL: req.SourceURL, SourceDomain: req.SourceDomain}
	var analysis ai.Analysis
	if a, err := h.analyzer.Analyze(r.Context(), areq); err != nil {
		slog.Warn("capture analysis failed, using fallback", "error", err)
		analysis = ai.FallbackAnalysis(areq)
	} else {
		analysis = *a
	}

	capturedAt := h.now().UTC()

	d := models.Draft{
		Title:    analysis.Title,
		Content:  req.Content,
		Tags:     analysis.Tags,
		Category: models.String(analysis.Category),
		Metadata: &models.Metadata{
			SourceURL:        req.SourceURL,
			SourceDomain:     req.SourceDomain,
			CapturedAt:       &capturedAt,
			SelectionContext: req.SelectionContext,
		},
	}
	if msg := validateDraft(&d); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	p, err := h.repo.Save(r.Context(), middleware.IdentityFromCtx(r.Context()), d)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// Export downloads every current prompt as CSV (default) or JSON.
func (h *Prompts) Export(w http.ResponseWriter, r *http.Request) {
	format := export.CSV
	if v := r.URL.Query().Get("format"); v != "" {
		f, err := export.ParseFormat(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		format = f
	}

	list, err := h.repo.List(r.Context(), middleware.IdentityFromCtx(r.Context()), models.Filter{})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, format.Filename(h.now())))
	if err := export.Write(w, format, list); err != nil {
		// Headers are gone by now; the client sees a truncated file.
		slog.Error("export write failed", "format", format, "error", err)
	}
}

// Tags returns the tag vocabulary with usage counts.
func (h *Prompts) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.repo.Tags(r.Context(), middleware.IdentityFromCtx(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tags))
}

// Categories returns the distinct categories in use.
func (h *Prompts) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.repo.Categories(r.Context(), middleware.IdentityFromCtx(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(cats))
}

// Stats returns the library summary.
func (h *Prompts) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.repo.Stats(r.Context(), middleware.IdentityFromCtx(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Update applies a partial edit. Remote prompts archive their previous
// state first.
func (h *Prompts) Update(w http.ResponseWriter, r *http.Request) {
	var c models.Changes
	if !decodeJSONLimit(w, r, &c, maxPromptBodyBytes) {
		return
	}
	if msg := validateChanges(&c); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	p, err := h.repo.Update(r.Context(), middleware.IdentityFromCtx(r.Context()), chi.URLParam(r, "id"), c)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Delete removes a prompt together with its archived versions.
func (h *Prompts) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(r.Context(), middleware.IdentityFromCtx(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Use records that a prompt was copied or inserted.
func (h *Prompts) Use(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.IncrementUsage(r.Context(), middleware.IdentityFromCtx(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// History lists the head and the archived versions of a prompt.
func (h *Prompts) History(w http.ResponseWriter, r *http.Request) {
	versions, err := h.repo.History(r.Context(), middleware.IdentityFromCtx(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

// Restore brings an archived version's content back as a new version.
func (h *Prompts) Restore(w http.ResponseWriter, r *http.Request) {
	p, err := h.repo.Restore(r.Context(), middleware.IdentityFromCtx(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "versionID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// splitTags parses a comma separated tag list.
func splitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return models.NormalizeTags(strings.Split(s, ","))
}

// nonNil makes empty results encode as [] instead of null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
