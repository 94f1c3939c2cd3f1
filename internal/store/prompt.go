// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"prompthive/internal/models"
)

// currentOnly matches head rows. Rows written before versioning have a NULL
// flag and count as current.
const currentOnly = "COALESCE(is_current_version, TRUE)"

// PromptStore handles all prompt-related database operations for
// authenticated users. Every query is scoped to the owning user.
type PromptStore struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// NewPromptStore creates a new PromptStore with the given database connection.
func NewPromptStore(db *sql.DB) *PromptStore {
	return &PromptStore{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar).RunWith(db),
	}
}

// ListCurrent returns the user's head rows that pass f, ordered by f.Sort
// (newest first when unset).
func (s *PromptStore) ListCurrent(ctx context.Context, userID uuid.UUID, f models.Filter) ([]models.Prompt, error) {
	q := s.sb.Select(promptColumns...).
		From("prompts").
		Where(sq.Eq{"user_id": userID}).
		Where(currentOnly)

	if f.Search != "" {
		like := "%" + escapeLike(f.Search) + "%"
		q = q.Where(sq.Or{
			sq.ILike{"title": like},
			sq.ILike{"content": like},
			sq.Expr("EXISTS (SELECT 1 FROM unnest(tags) AS t WHERE t ILIKE ?)", like),
		})
	}
	if len(f.Tags) > 0 {
		q = q.Where("tags && ?", f.Tags)
	}
	if f.Category != "" {
		q = q.Where(sq.Eq{"category": f.Category})
	}
	q = q.OrderBy(orderFor(f.Sort)...)

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	defer rows.Close()

	prompts := []models.Prompt{}
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		prompts = append(prompts, *p)
	}
	return prompts, rows.Err()
}

func orderFor(key models.SortKey) []string {
	switch key {
	case models.SortOldest:
		return []string{"created_at ASC", "id"}
	case models.SortUsage:
		return []string{"COALESCE(usage_count, 0) DESC", "created_at DESC", "id"}
	case models.SortAlphabetical:
		return []string{"lower(title) ASC", "created_at DESC", "id"}
	default:
		return []string{"created_at DESC", "id"}
	}
}

// escapeLike escapes the LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// FindByID retrieves any row of the user's (head or snapshot) by id.
// Returns nil if not found.
func (s *PromptStore) FindByID(ctx context.Context, userID uuid.UUID, id string) (*models.Prompt, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, nil
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+strings.Join(promptColumns, ", ")+`
		FROM prompts WHERE id = $1 AND user_id = $2
	`, pid, userID)
	p, err := scanPrompt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find prompt by id: %w", err)
	}
	return p, nil
}

const insertPrompt = `
	INSERT INTO prompts (
		user_id, title, content, tags, category, tone, usage_count, rating,
		is_long_prompt, source_url, ai_model, metadata, version_number,
		parent_prompt_id, is_current_version, created_at, updated_at, edited_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		COALESCE($16, now()), COALESCE($17, now()), $18
	)
	RETURNING `

func insertArgs(r *promptRow) []any {
	return []any{
		r.UserID, r.Title, r.Content, r.Tags, r.Category, r.Tone, r.UsageCount,
		r.Rating, r.IsLongPrompt, r.SourceURL, r.AIModel, r.metadataArg(),
		r.VersionNumber, r.ParentPromptID, r.IsCurrentVersion,
		timeArg(r.CreatedAt), timeArg(r.UpdatedAt), r.EditedAt,
	}
}

// Insert stores p for the user and returns the stored row with its new id.
// Zero timestamps fall back to the database clock.
func (s *PromptStore) Insert(ctx context.Context, userID uuid.UUID, p *models.Prompt) (*models.Prompt, error) {
	r, err := rowFromModel(userID, p)
	if err != nil {
		return nil, fmt.Errorf("create prompt: %w", err)
	}

	row := s.db.QueryRowContext(ctx, insertPrompt+strings.Join(promptColumns, ", "), insertArgs(r)...)
	created, err := scanPrompt(row)
	if err != nil {
		return nil, fmt.Errorf("create prompt: %w", err)
	}
	return created, nil
}

// Revise archives snapshot and rewrites the head in a single transaction.
// The head is only rewritten while it is still current and at version
// expected. Returns nil otherwise, in which case nothing is written.
func (s *PromptStore) Revise(ctx context.Context, userID uuid.UUID, snapshot, head *models.Prompt, expected int) (*models.Prompt, error) {
	snap, err := rowFromModel(userID, snapshot)
	if err != nil {
		return nil, fmt.Errorf("revise prompt: %w", err)
	}
	h, err := rowFromModel(userID, head)
	if err != nil {
		return nil, fmt.Errorf("revise prompt: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("revise prompt begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, insertPrompt+"id", insertArgs(snap)...); err != nil {
		return nil, fmt.Errorf("archive prompt version: %w", err)
	}

	row := tx.QueryRowContext(ctx, `
		UPDATE prompts SET
			title = $3, content = $4, tags = $5, category = $6, tone = $7,
			rating = $8, is_long_prompt = $9, metadata = $10,
			version_number = $11, updated_at = COALESCE($12, now()), edited_at = $13
		WHERE id = $1 AND user_id = $2 AND `+currentOnly+`
			AND COALESCE(version_number, 1) = $14
		RETURNING `+strings.Join(promptColumns, ", "),
		h.ID, userID, h.Title, h.Content, h.Tags, h.Category, h.Tone,
		h.Rating, h.IsLongPrompt, h.metadataArg(),
		h.VersionNumber, timeArg(h.UpdatedAt), h.EditedAt, expected,
	)
	updated, err := scanPrompt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update prompt head: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("revise prompt commit: %w", err)
	}
	return updated, nil
}

// Delete removes a head row. Its archived snapshots go with it through the
// parent_prompt_id cascade. Reports whether a row was deleted.
func (s *PromptStore) Delete(ctx context.Context, userID uuid.UUID, id string) (bool, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return false, nil
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM prompts WHERE id = $1 AND user_id = $2 AND `+currentOnly,
		pid, userID)
	if err != nil {
		return false, fmt.Errorf("delete prompt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete prompt: %w", err)
	}
	return n > 0, nil
}

// IncrementUsage bumps the usage counter server-side and returns the new
// count. Returns 0 if the prompt does not exist.
func (s *PromptStore) IncrementUsage(ctx context.Context, userID uuid.UUID, id string) (int, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return 0, nil
	}

	var count sql.NullInt64
	if err := s.db.QueryRowContext(ctx,
		"SELECT increment_prompt_usage($1, $2)", pid, userID,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("increment usage: %w", err)
	}
	return int(count.Int64), nil
}

// UpsertTags records tags in the user's tag vocabulary.
func (s *PromptStore) UpsertTags(ctx context.Context, userID uuid.UUID, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, "SELECT upsert_user_tags($1, $2)", userID, tags); err != nil {
		return fmt.Errorf("upsert tags: %w", err)
	}
	return nil
}

// History returns the head row followed by its archived snapshots, newest
// version first.
func (s *PromptStore) History(ctx context.Context, userID uuid.UUID, id string) ([]models.Prompt, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return []models.Prompt{}, nil
	}

	rows, err := s.sb.Select(promptColumns...).
		From("prompts").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.Or{sq.Eq{"id": pid}, sq.Eq{"parent_prompt_id": pid}}).
		OrderBy(currentOnly+" DESC", "COALESCE(version_number, 1) DESC", "created_at DESC").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list prompt history: %w", err)
	}
	defer rows.Close()

	versions := []models.Prompt{}
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prompt version: %w", err)
		}
		versions = append(versions, *p)
	}
	return versions, rows.Err()
}

// ListTags returns the user's tag vocabulary, most used first.
func (s *PromptStore) ListTags(ctx context.Context, userID uuid.UUID) ([]models.TagCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tag, usage_count FROM user_tags
		WHERE user_id = $1
		ORDER BY usage_count DESC, tag ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	tags := []models.TagCount{}
	for rows.Next() {
		var tc models.TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tc)
	}
	return tags, rows.Err()
}
