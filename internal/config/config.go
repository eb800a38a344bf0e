// Package config loads the shared agents environment file into an explicit
// Config value that is assembled once at process start and threaded through
// constructors. Core packages never read the process environment themselves.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is the shared credentials file used by all the tools.
const DefaultEnvFile = "AGENTS.env"

// Config carries every credential and default the tools consume.
type Config struct {
	// ClickUp task-management API.
	ClickUpToken         string
	ClickUpDefaultTeamID string

	// Google OAuth for the mail sender (refresh-token flow, no interactive
	// authorization).
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRefreshToken string

	// Telegram notification sink. Both must be set for alerts to fire.
	TelegramBotToken string
	TelegramChatID   string

	// OutboxDir is where the scheduled-send queue lives.
	OutboxDir string
}

// Load reads the env file at path. An empty path falls back to
// $AGENTS_ENV_PATH, then ~/AGENTS.env. A missing file is not an error: every
// field simply stays empty and commands fail later with a precise message
// about what is missing.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("AGENTS_ENV_PATH")
	}
	home, _ := os.UserHomeDir()
	if path == "" {
		path = filepath.Join(home, DefaultEnvFile)
	}

	vars := map[string]string{}
	if _, err := os.Stat(path); err == nil {
		vars, err = godotenv.Read(path)
		if err != nil {
			return nil, err
		}
	}

	// Process environment wins over the file, so one-off overrides work
	// without editing shared credentials.
	get := func(keys ...string) string {
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				return v
			}
		}
		for _, k := range keys {
			if v := vars[k]; v != "" {
				return v
			}
		}
		return ""
	}

	cfg := &Config{
		ClickUpToken:         get("CLICKUP_API_TOKEN", "CLICKUP_TOKEN"),
		ClickUpDefaultTeamID: get("CLICKUP_DEFAULT_TEAM_ID"),
		GoogleClientID:       get("GOOGLE_OAUTH_CLIENT_ID"),
		GoogleClientSecret:   get("GOOGLE_OAUTH_CLIENT_SECRET"),
		GoogleRefreshToken:   get("GOOGLE_OAUTH_REFRESH_TOKEN"),
		TelegramBotToken:     get("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:       get("TELEGRAM_CHAT_ID"),
		OutboxDir:            get("GMAIL_OUTBOX_DIR"),
	}
	if cfg.OutboxDir == "" {
		cfg.OutboxDir = filepath.Join(home, ".felix", "gmail_outbox")
	}
	return cfg, nil
}
