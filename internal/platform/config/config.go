// Package config loads application configuration from environment variables.
// All variables use the BUDDY_ prefix. A .env file in the working directory
// is read first, so local runs need no exported shell state.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Terminal TerminalConfig
	Admin    AdminConfig
	AI       AIConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL runs the
// terminal on in-memory stores, demo-grade only.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Redis connection settings. An empty URL keeps terminal
// credentials in memory, demo-grade only.
type CacheConfig struct {
	URL string
}

// TerminalConfig identifies this deployment.
type TerminalConfig struct {
	ID string
}

// AdminConfig holds the master administrator credential.
type AdminConfig struct {
	Password string
}

// AIConfig holds tutor gateway settings. The API key itself is not
// configured here; it is entered during terminal activation and stored by
// the auth gate.
type AIConfig struct {
	Model   string
	BaseURL string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// defaultAdminPassword is the factory credential from the deployment
// handbook; operators override it with BUDDY_ADMIN_PASSWORD.
const defaultAdminPassword = "Skidmin2025"

// Load reads configuration from a .env file (if present) and environment
// variables with the BUDDY_ prefix.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("BUDDY_SERVER_PORT", 8080),
			Host: envStr("BUDDY_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      envStr("BUDDY_DATABASE_URL", ""),
			MaxConns: envInt("BUDDY_DATABASE_MAX_CONNS", 25),
			MinConns: envInt("BUDDY_DATABASE_MIN_CONNS", 5),
		},
		Cache: CacheConfig{
			URL: envStr("BUDDY_CACHE_URL", ""),
		},
		Terminal: TerminalConfig{
			ID: envStr("BUDDY_TERMINAL_ID", "terminal-1"),
		},
		Admin: AdminConfig{
			Password: envStr("BUDDY_ADMIN_PASSWORD", defaultAdminPassword),
		},
		AI: AIConfig{
			Model:   envStr("BUDDY_AI_MODEL", "gemini-2.5-flash"),
			BaseURL: envStr("BUDDY_AI_BASE_URL", ""),
		},
		Log: LogConfig{
			Level:  envStr("BUDDY_LOG_LEVEL", "info"),
			Format: envStr("BUDDY_LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// Validate checks that required configuration is present and coherent.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("BUDDY_SERVER_PORT must be 1-65535, got %d", c.Server.Port)
	}
	if c.Terminal.ID == "" {
		return fmt.Errorf("BUDDY_TERMINAL_ID must not be empty")
	}
	if c.Admin.Password == "" {
		return fmt.Errorf("BUDDY_ADMIN_PASSWORD must not be empty")
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("BUDDY_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
