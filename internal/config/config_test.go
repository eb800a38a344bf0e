package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "AGENTS.env")
	content := `# shared credentials
export CLICKUP_API_TOKEN="pk_test_123"
CLICKUP_DEFAULT_TEAM_ID=9001
TELEGRAM_BOT_TOKEN=bot-token
TELEGRAM_CHAT_ID=42
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "pk_test_123", cfg.ClickUpToken)
	assert.Equal(t, "9001", cfg.ClickUpDefaultTeamID)
	assert.Equal(t, "bot-token", cfg.TelegramBotToken)
	assert.Equal(t, "42", cfg.TelegramChatID)
	assert.NotEmpty(t, cfg.OutboxDir, "outbox dir gets a default")
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.env"))
	require.NoError(t, err)
	assert.Empty(t, cfg.ClickUpToken)
}

func TestLoadProcessEnvWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "AGENTS.env")
	require.NoError(t, os.WriteFile(path, []byte("CLICKUP_API_TOKEN=from-file\n"), 0o600))
	t.Setenv("CLICKUP_API_TOKEN", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.ClickUpToken)
}

func TestLoadTokenFallbackKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "AGENTS.env")
	require.NoError(t, os.WriteFile(path, []byte("CLICKUP_TOKEN=legacy-key\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "legacy-key", cfg.ClickUpToken)
}
