// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"prompthive/internal/models"
)

// promptColumns lists all columns for prompts SELECTs, in scan order.
var promptColumns = []string{
	"id", "user_id", "title", "content", "tags", "category", "tone",
	"usage_count", "rating", "is_long_prompt", "source_url", "ai_model",
	"metadata", "version_number", "parent_prompt_id", "is_current_version",
	"created_at", "updated_at", "edited_at",
}

// promptRow mirrors a prompts row exactly, nullable columns included. It is
// the only place that knows the table shape; everything above it works with
// models.Prompt.
type promptRow struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	Title            string
	Content          string
	Tags             []string
	Category         sql.NullString
	Tone             sql.NullString
	UsageCount       sql.NullInt64
	Rating           sql.NullInt64
	IsLongPrompt     bool
	SourceURL        sql.NullString
	AIModel          sql.NullString
	Metadata         []byte
	VersionNumber    sql.NullInt64
	ParentPromptID   uuid.NullUUID
	IsCurrentVersion sql.NullBool
	CreatedAt        time.Time
	UpdatedAt        time.Time
	EditedAt         sql.NullTime
}

// scanTargets returns destinations matching promptColumns. The tags array
// is decoded through a pgtype.Map, which is not safe for concurrent use, so
// each row gets its own.
func (r *promptRow) scanTargets() []any {
	return []any{
		&r.ID, &r.UserID, &r.Title, &r.Content, pgtype.NewMap().SQLScanner(&r.Tags),
		&r.Category, &r.Tone, &r.UsageCount, &r.Rating, &r.IsLongPrompt,
		&r.SourceURL, &r.AIModel, &r.Metadata, &r.VersionNumber,
		&r.ParentPromptID, &r.IsCurrentVersion, &r.CreatedAt, &r.UpdatedAt,
		&r.EditedAt,
	}
}

// scanPrompt reads one row from a *sql.Row or *sql.Rows.
func scanPrompt(scanner interface{ Scan(...any) error }) (*models.Prompt, error) {
	var r promptRow
	if err := scanner.Scan(r.scanTargets()...); err != nil {
		return nil, err
	}
	return r.toModel()
}

// toModel converts the row to the domain type. Columns that older rows
// leave NULL get their defaults: version 1, current, no tags, zero usage.
func (r *promptRow) toModel() (*models.Prompt, error) {
	p := &models.Prompt{
		ID:           r.ID.String(),
		Title:        r.Title,
		Content:      r.Content,
		Tags:         r.Tags,
		Category:     nullString(r.Category),
		Tone:         nullString(r.Tone),
		IsLongPrompt: r.IsLongPrompt,
		SourceURL:    nullString(r.SourceURL),
		AIModel:      nullString(r.AIModel),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if r.UsageCount.Valid {
		p.UsageCount = int(r.UsageCount.Int64)
	}
	if r.Rating.Valid {
		v := int(r.Rating.Int64)
		p.Rating = &v
	}

	p.VersionNumber = 1
	if r.VersionNumber.Valid && r.VersionNumber.Int64 > 0 {
		p.VersionNumber = int(r.VersionNumber.Int64)
	}
	current := true
	if r.IsCurrentVersion.Valid {
		current = r.IsCurrentVersion.Bool
	}
	p.IsCurrentVersion = &current
	if r.ParentPromptID.Valid {
		s := r.ParentPromptID.UUID.String()
		p.ParentPromptID = &s
	}
	if r.EditedAt.Valid {
		t := r.EditedAt.Time
		p.EditedAt = &t
	}

	if len(r.Metadata) > 0 && string(r.Metadata) != "null" {
		var m models.Metadata
		if err := json.Unmarshal(r.Metadata, &m); err != nil {
			return nil, fmt.Errorf("decode metadata of prompt %s: %w", r.ID, err)
		}
		p.Metadata = &m
	}
	return p, nil
}

// rowFromModel is the inverse of toModel. An empty or non-UUID p.ID leaves
// r.ID nil so the database assigns one.
func rowFromModel(userID uuid.UUID, p *models.Prompt) (*promptRow, error) {
	r := &promptRow{
		UserID:       userID,
		Title:        p.Title,
		Content:      p.Content,
		Tags:         p.Tags,
		Category:     toNullString(p.Category),
		Tone:         toNullString(p.Tone),
		UsageCount:   sql.NullInt64{Int64: int64(p.UsageCount), Valid: true},
		IsLongPrompt: p.IsLongPrompt,
		SourceURL:    toNullString(p.SourceURL),
		AIModel:      toNullString(p.AIModel),
		VersionNumber: sql.NullInt64{
			Int64: int64(p.Version()),
			Valid: true,
		},
		IsCurrentVersion: sql.NullBool{Bool: p.IsCurrent(), Valid: true},
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if id, err := uuid.Parse(p.ID); err == nil {
		r.ID = id
	}
	if p.Rating != nil {
		r.Rating = sql.NullInt64{Int64: int64(*p.Rating), Valid: true}
	}
	if p.ParentPromptID != nil {
		parent, err := uuid.Parse(*p.ParentPromptID)
		if err != nil {
			return nil, fmt.Errorf("parent prompt id %q: %w", *p.ParentPromptID, err)
		}
		r.ParentPromptID = uuid.NullUUID{UUID: parent, Valid: true}
	}
	if p.EditedAt != nil {
		r.EditedAt = sql.NullTime{Time: *p.EditedAt, Valid: true}
	}
	if p.Metadata != nil {
		b, err := json.Marshal(p.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
		r.Metadata = b
	}
	return r, nil
}

// metadataArg returns the jsonb parameter, NULL when there is no metadata.
func (r *promptRow) metadataArg() any {
	if r.Metadata == nil {
		return nil
	}
	return string(r.Metadata)
}

// timeArg returns t, or NULL for the zero time so the column default applies.
func timeArg(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
