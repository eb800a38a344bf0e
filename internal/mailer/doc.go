// Package mailer sends the outbox queue's scheduled messages through the
// Gmail API.
//
// Credentials come from the shared agents env file as an OAuth client id,
// secret and refresh token; there is no interactive authorization flow. The
// sender implements outbox.Sender, wrapping Gmail API failures in
// outbox.SendError so the dispatcher can classify them as transient or
// permanent.
package mailer
