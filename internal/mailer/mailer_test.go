package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/fdtorres1/felix-tools/internal/outbox"
)

func TestPayloadValidate(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		wantErr bool
	}{
		{
			name:    "text message",
			payload: Payload{To: "a@example.com", Subject: "hi", Text: "body"},
		},
		{
			name:    "html message",
			payload: Payload{To: "a@example.com", Subject: "hi", HTML: "<p>body</p>"},
		},
		{
			name:    "missing recipient",
			payload: Payload{Subject: "hi", Text: "body"},
			wantErr: true,
		},
		{
			name:    "missing subject",
			payload: Payload{To: "a@example.com", Text: "body"},
			wantErr: true,
		},
		{
			name:    "missing body",
			payload: Payload{To: "a@example.com", Subject: "hi"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildMessage(t *testing.T) {
	t.Run("text only", func(t *testing.T) {
		msg := string(BuildMessage(Payload{
			To: "a@example.com", Subject: "status", Text: "all good",
		}))
		assert.Contains(t, msg, "To: a@example.com\r\n")
		assert.Contains(t, msg, "Subject: status\r\n")
		assert.Contains(t, msg, "Content-Type: text/plain")
		assert.Contains(t, msg, "all good")
		assert.NotContains(t, msg, "From:", "empty sender produces no From header")
	})

	t.Run("both bodies are multipart alternative", func(t *testing.T) {
		msg := string(BuildMessage(Payload{
			To: "a@example.com", Cc: "b@example.com", Subject: "s",
			Text: "plain", HTML: "<b>rich</b>", Sender: "me@example.com",
		}))
		assert.Contains(t, msg, "From: me@example.com\r\n")
		assert.Contains(t, msg, "Cc: b@example.com\r\n")
		assert.Contains(t, msg, "multipart/alternative")
		assert.Contains(t, msg, "plain")
		assert.Contains(t, msg, "<b>rich</b>")
		assert.True(t, strings.Count(msg, "--felix-boundary-4af9") >= 3,
			"multipart message needs opening, separating and closing boundaries")
	})

	t.Run("non-ascii subject is encoded", func(t *testing.T) {
		msg := string(BuildMessage(Payload{
			To: "a@example.com", Subject: "café réunion", Text: "x",
		}))
		assert.Contains(t, msg, "=?utf-8?")
	})
}

func newTestSender(t *testing.T, handler http.Handler) *Sender {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := gmail.NewService(context.Background(),
		option.WithEndpoint(srv.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	return NewSender(svc, slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

func TestSendWrapsRemoteStatus(t *testing.T) {
	s := newTestSender(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"rate limited"}}`))
	}))

	payload, err := json.Marshal(Payload{To: "a@example.com", Subject: "s", Text: "x"})
	require.NoError(t, err)

	err = s.Send(context.Background(), payload)
	var se *outbox.SendError
	require.True(t, errors.As(err, &se), "send error = %v", err)
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
}

func TestSendSucceeds(t *testing.T) {
	var gotPath string
	s := newTestSender(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"m1"}`))
	}))

	payload, err := json.Marshal(Payload{To: "a@example.com", Subject: "s", Text: "x"})
	require.NoError(t, err)

	require.NoError(t, s.Send(context.Background(), payload))
	assert.Contains(t, gotPath, "/messages/send")
}

func TestSendUndecodablePayloadIsPermanent(t *testing.T) {
	s := newTestSender(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be made for an undecodable payload")
	}))

	err := s.Send(context.Background(), []byte("{not json"))
	var se *outbox.SendError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 400, se.StatusCode)
}
