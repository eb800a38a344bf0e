package mailer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/fdtorres1/felix-tools/internal/logging"
	"github.com/fdtorres1/felix-tools/internal/outbox"
)

// Credentials is the refresh-token OAuth material from the agents env file.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// NewService builds a Gmail service from stored credentials. No browser flow:
// the refresh token must already exist.
func NewService(ctx context.Context, creds Credentials) (*gmail.Service, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" || creds.RefreshToken == "" {
		return nil, errors.New("Gmail credentials are not configured; set GOOGLE_OAUTH_CLIENT_ID, GOOGLE_OAUTH_CLIENT_SECRET and GOOGLE_OAUTH_REFRESH_TOKEN in the agents env file")
	}
	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailSendScope},
	}
	ts := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})

	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return svc, nil
}

// Sender delivers queued payloads through the Gmail API. It implements
// outbox.Sender.
type Sender struct {
	svc    *gmail.Service
	logger *slog.Logger
}

// NewSender wraps a Gmail service as an outbox sender.
func NewSender(svc *gmail.Service, logger *slog.Logger) *Sender {
	return &Sender{svc: svc, logger: logging.WithService(logger, "gmail")}
}

// Send decodes the queued payload, renders it and sends it as the
// authenticated user. Remote failures carry their HTTP status in an
// *outbox.SendError.
func (s *Sender) Send(ctx context.Context, payload []byte) error {
	var p Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		// An undecodable payload can never send; report it as a
		// permanent client-side failure.
		return &outbox.SendError{StatusCode: 400, Err: fmt.Errorf("undecodable payload: %w", err)}
	}

	raw := base64.URLEncoding.EncodeToString(BuildMessage(p))
	_, err := s.svc.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return &outbox.SendError{StatusCode: gerr.Code, Err: err}
		}
		return err
	}
	s.logger.Info("message sent", logging.Operation("queue.send"), "to", p.To)
	return nil
}
