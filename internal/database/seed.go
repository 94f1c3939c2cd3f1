package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// DemoEmail and DemoPassword identify the account created by Seed.
const (
	DemoEmail    = "demo@prompthive.local"
	DemoPassword = "demo"
)

type seedPrompt struct {
	title, content, category string
	tags                     []string
	usage                    int
}

var seedPrompts = []seedPrompt{
	{
		title:    "Blog Post Introduction",
		content:  "Write an engaging introduction for a blog post about [TOPIC]. The introduction should hook the reader and clearly state what they will learn.",
		category: "Content Creation",
		tags:     []string{"blog", "writing", "introduction"},
		usage:    12,
	},
	{
		title:    "Code Review Assistant",
		content:  "Review the following code and suggest improvements for readability, performance and correctness:\n\n[CODE]",
		category: "Development",
		tags:     []string{"code", "review"},
		usage:    8,
	},
	{
		title:    "Email Response Template",
		content:  "Help me write a professional email response to [SITUATION]. Keep the tone friendly but concise.",
		category: "Business",
		tags:     []string{"email", "communication"},
		usage:    15,
	},
}

// Seed populates the database with initial development data.
// It creates a demo user with a handful of prompts if no users exist.
func Seed(db *sql.DB) error {
	// Check if any users exist already.
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer tx.Rollback()

	var userID string
	err = tx.QueryRow(`
		INSERT INTO users (email, password_hash, display_name)
		VALUES ($1, $2, $3)
		RETURNING id
	`, DemoEmail, string(hash), "Demo").Scan(&userID)
	if err != nil {
		return fmt.Errorf("seed insert user: %w", err)
	}

	for _, p := range seedPrompts {
		_, err := tx.Exec(`
			INSERT INTO prompts (user_id, title, content, tags, category, usage_count)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, userID, p.title, p.content, p.tags, p.category, p.usage)
		if err != nil {
			return fmt.Errorf("seed insert prompt %q: %w", p.title, err)
		}
		if _, err := tx.Exec("SELECT upsert_user_tags($1, $2)", userID, p.tags); err != nil {
			return fmt.Errorf("seed tags: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded with demo user",
		"email", DemoEmail,
		"password", DemoPassword,
		"prompts", len(seedPrompts),
	)
	return nil
}
