package mailer

import (
	"errors"
	"fmt"
	"mime"
	"strings"
)

// Payload is the action-specific data stored opaquely in a queue item.
type Payload struct {
	To      string `json:"to"`
	Cc      string `json:"cc,omitempty"`
	Bcc     string `json:"bcc,omitempty"`
	Subject string `json:"subject"`
	Text    string `json:"text,omitempty"`
	HTML    string `json:"html,omitempty"`
	Sender  string `json:"sender,omitempty"`
}

// Validate checks the payload is sendable before it is accepted into the
// queue; dispatch-time validation failures would otherwise burn retry
// attempts on a message that can never send.
func (p Payload) Validate() error {
	if strings.TrimSpace(p.To) == "" {
		return errors.New("recipient (to) is required")
	}
	if strings.TrimSpace(p.Subject) == "" {
		return errors.New("subject is required")
	}
	if p.Text == "" && p.HTML == "" {
		return errors.New("provide text and/or html body")
	}
	return nil
}

// BuildMessage renders the payload as an RFC 2822 message: a single-part
// message for text-only or HTML-only payloads, multipart/alternative when
// both bodies are present.
func BuildMessage(p Payload) []byte {
	var b strings.Builder

	writeHeader := func(key, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\r\n", key, value)
		}
	}
	writeHeader("From", p.Sender)
	writeHeader("To", p.To)
	writeHeader("Cc", p.Cc)
	writeHeader("Bcc", p.Bcc)
	writeHeader("Subject", mime.QEncoding.Encode("utf-8", p.Subject))
	writeHeader("MIME-Version", "1.0")

	switch {
	case p.Text != "" && p.HTML != "":
		const boundary = "felix-boundary-4af9"
		writeHeader("Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", boundary))
		b.WriteString("\r\n")
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
		b.WriteString(p.Text)
		fmt.Fprintf(&b, "\r\n--%s\r\n", boundary)
		b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
		b.WriteString(p.HTML)
		fmt.Fprintf(&b, "\r\n--%s--\r\n", boundary)
	case p.HTML != "":
		writeHeader("Content-Type", "text/html; charset=\"utf-8\"")
		b.WriteString("\r\n")
		b.WriteString(p.HTML)
	default:
		writeHeader("Content-Type", "text/plain; charset=\"utf-8\"")
		b.WriteString("\r\n")
		b.WriteString(p.Text)
	}

	return []byte(b.String())
}
