// Package export writes prompt sets as CSV or JSON downloads.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"prompthive/internal/models"
)

// Format is an export file format.
type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
)

// ParseFormat accepts "csv" or "json", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CSV, JSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == CSV {
		return "text/csv; charset=utf-8"
	}
	return "application/json; charset=utf-8"
}

// Filename returns the download name for an export taken at now.
func (f Format) Filename(now time.Time) string {
	return fmt.Sprintf("prompts-export-%s.%s", now.UTC().Format("2006-01-02"), f)
}

// Header is the CSV column row.
var Header = []string{
	"Title", "Content", "Category", "Tags", "Created At", "Updated At",
	"Usage Count", "Rating", "Source URL", "AI Model",
}

// Write encodes prompts to w in format f.
func Write(w io.Writer, f Format, prompts []models.Prompt) error {
	switch f {
	case CSV:
		return WriteCSV(w, prompts)
	case JSON:
		return WriteJSON(w, prompts)
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

// WriteCSV writes one row per prompt under Header. Tags are joined with
// "; " and timestamps use RFC 3339 in UTC.
func WriteCSV(w io.Writer, prompts []models.Prompt) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, p := range prompts {
		rating := ""
		if p.Rating != nil {
			rating = strconv.Itoa(*p.Rating)
		}
		row := []string{
			p.Title,
			p.Content,
			deref(p.Category),
			strings.Join(p.Tags, "; "),
			p.CreatedAt.UTC().Format(time.RFC3339Nano),
			p.UpdatedAt.UTC().Format(time.RFC3339Nano),
			strconv.Itoa(p.UsageCount),
			rating,
			deref(p.SourceURL),
			deref(p.AIModel),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the prompts as an indented JSON array.
func WriteJSON(w io.Writer, prompts []models.Prompt) error {
	if prompts == nil {
		prompts = []models.Prompt{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(prompts); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
