// Package notify delivers best-effort operator alerts. Alert channels must
// never fail an operation: every error is swallowed and logged.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fdtorres1/felix-tools/internal/logging"
)

// maxMessageLen keeps alerts under Telegram's 4096-char message limit with
// headroom for multi-byte runes.
const maxMessageLen = 3900

// Telegram posts alerts to a Telegram chat through the bot API.
type Telegram struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   *slog.Logger
}

// NewTelegram returns a Telegram notifier. Returns nil when the bot token or
// chat id is unset; a nil *Telegram is safe to use and does nothing.
func NewTelegram(botToken, chatID string, logger *slog.Logger) *Telegram {
	if botToken == "" || chatID == "" {
		return nil
	}
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  "https://api.telegram.org",
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

// Notify sends msg to the configured chat, truncating oversized messages.
// Failures are logged and swallowed.
func (t *Telegram) Notify(msg string) {
	if t == nil {
		return
	}
	if len(msg) > maxMessageLen {
		msg = msg[:maxMessageLen]
	}
	body, err := json.Marshal(map[string]string{
		"chat_id": t.chatID,
		"text":    msg,
	})
	if err != nil {
		return
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	resp, err := t.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.logger.Warn("telegram notification failed",
			logging.Service("telegram"), logging.Err(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.logger.Warn("telegram notification rejected",
			logging.Service("telegram"), "status_code", resp.StatusCode)
	}
}
