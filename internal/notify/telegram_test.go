package notify

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func TestNewTelegramRequiresCredentials(t *testing.T) {
	if n := NewTelegram("", "42", testLogger()); n != nil {
		t.Error("expected nil notifier without bot token")
	}
	if n := NewTelegram("token", "", testLogger()); n != nil {
		t.Error("expected nil notifier without chat id")
	}
}

func TestNilNotifierIsSafe(t *testing.T) {
	var n *Telegram
	n.Notify("should not panic")
}

func TestNotifyPostsMessage(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewTelegram("bot-token", "42", testLogger())
	n.baseURL = srv.URL
	n.Notify("queue item failed")

	if gotPath != "/botbot-token/sendMessage" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotBody["chat_id"] != "42" || gotBody["text"] != "queue item failed" {
		t.Errorf("request body = %v", gotBody)
	}
}

func TestNotifyTruncatesAndSwallowsFailures(t *testing.T) {
	var gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &body)
		gotText = body["text"]
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewTelegram("bot-token", "42", testLogger())
	n.baseURL = srv.URL

	// Must not panic or return anything on a failing channel.
	n.Notify(strings.Repeat("x", 5000))

	if len(gotText) != maxMessageLen {
		t.Errorf("message length = %d, want %d", len(gotText), maxMessageLen)
	}
}
