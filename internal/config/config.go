// Package config handles application configuration loading from environment
// variables and an optional YAML file. It provides a centralized Config
// struct used across the application.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all application configuration values.
// Priority: environment > YAML file > env-default tags.
type Config struct {
	// Server settings
	Host string `yaml:"host" env:"APP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"APP_PORT" env-default:"8080"`
	Env  string `yaml:"env"  env:"APP_ENV"  env-default:"development"` // "development", "production", "testing"

	// PostgreSQL connection
	DBHost     string `yaml:"postgres_host"     env:"POSTGRES_HOST"     env-default:"localhost"`
	DBPort     string `yaml:"postgres_port"     env:"POSTGRES_PORT"     env-default:"5432"`
	DBUser     string `yaml:"postgres_user"     env:"POSTGRES_USER"     env-default:"prompthive"`
	DBPassword string `yaml:"postgres_password" env:"POSTGRES_PASSWORD" env-default:"changeme"`
	DBName     string `yaml:"postgres_db"       env:"POSTGRES_DB"       env-default:"prompthive"`

	// Valkey (sessions and guest partitions)
	ValkeyHost     string `yaml:"valkey_host"     env:"VALKEY_HOST"     env-default:"localhost"`
	ValkeyPort     string `yaml:"valkey_port"     env:"VALKEY_PORT"     env-default:"6379"`
	ValkeyPassword string `yaml:"valkey_password" env:"VALKEY_PASSWORD"`

	// AI provider settings
	AIProvider     string `yaml:"ai_provider"      env:"AI_PROVIDER"      env-default:"openai"` // "openai", "claude", "mistral"
	OpenAIKey      string `yaml:"openai_api_key"   env:"OPENAI_API_KEY"`
	OpenAIModel    string `yaml:"openai_model"     env:"OPENAI_MODEL"     env-default:"gpt-4o-mini"`
	OpenAIBaseURL  string `yaml:"openai_base_url"  env:"OPENAI_BASE_URL"  env-default:"https://api.openai.com/v1"`
	ClaudeKey      string `yaml:"claude_api_key"   env:"CLAUDE_API_KEY"`
	ClaudeModel    string `yaml:"claude_model"     env:"CLAUDE_MODEL"     env-default:"claude-sonnet-4-6"`
	ClaudeBaseURL  string `yaml:"claude_base_url"  env:"CLAUDE_BASE_URL"  env-default:"https://api.anthropic.com"`
	MistralKey     string `yaml:"mistral_api_key"  env:"MISTRAL_API_KEY"`
	MistralModel   string `yaml:"mistral_model"    env:"MISTRAL_MODEL"    env-default:"mistral-small-latest"`
	MistralBaseURL string `yaml:"mistral_base_url" env:"MISTRAL_BASE_URL" env-default:"https://api.mistral.ai/v1"`

	// Rate limiting for the AI endpoints (per client IP).
	RateLimitAI     int           `yaml:"rate_limit_ai"     env:"RATE_LIMIT_AI"     env-default:"20"`
	RateLimitWindow time.Duration `yaml:"rate_limit_window" env:"RATE_LIMIT_WINDOW" env-default:"1m"`
}

// Load reads configuration. When CONFIG_PATH points at a YAML file it is
// read first and the environment overrides it; otherwise only the
// environment and defaults are used. Returns an error if critical values are
// missing in production mode.
func Load() (*Config, error) {
	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks values that defaults cannot fix.
func (c *Config) Validate() error {
	if c.Env == "production" && c.DBPassword == "changeme" {
		return errors.New("POSTGRES_PASSWORD must be set in production")
	}
	if c.RateLimitAI < 1 {
		return errors.New("RATE_LIMIT_AI must be positive")
	}
	if c.RateLimitWindow <= 0 {
		return errors.New("RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}
