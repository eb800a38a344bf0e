package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/fdtorres1/felix-tools/internal/config"
	"github.com/fdtorres1/felix-tools/internal/mailer"
	"github.com/fdtorres1/felix-tools/internal/notify"
	"github.com/fdtorres1/felix-tools/internal/outbox"
)

func newQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Durable Gmail outbox for scheduled sends",
		Long: `Queue emails for later delivery. Items live as JSON lines under the
outbox directory (GMAIL_OUTBOX_DIR, default ~/.felix/gmail_outbox); a cron
entry running "felix queue dispatch" drains whatever is due.

Delivery is at-least-once: a crash between sending and bookkeeping can
repeat a send on the next run.`,
	}

	cmd.AddCommand(newQueueAddCmd())
	cmd.AddCommand(newQueueListCmd())
	cmd.AddCommand(newQueueHistoryCmd())
	cmd.AddCommand(newQueueDispatchCmd())
	cmd.AddCommand(newQueueUpdateCmd())
	cmd.AddCommand(newQueueCancelCmd())
	return cmd
}

func openQueue(logger *slog.Logger) (*outbox.Queue, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	q, err := outbox.Open(cfg.OutboxDir, logger)
	if err != nil {
		return nil, nil, err
	}
	return q, cfg, nil
}

func newQueueAddCmd() *cobra.Command {
	var (
		payload mailer.Payload
		sendAt  string
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Queue an email for a future send time",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := payload.Validate(); err != nil {
				return err
			}
			at, err := parseISOTime(sendAt)
			if err != nil {
				return err
			}
			if at.IsZero() {
				return fmt.Errorf("--send-at is required")
			}

			raw, err := json.Marshal(payload)
			if err != nil {
				return err
			}

			if dryRun {
				return printJSON(map[string]any{
					"dry_run": true,
					"send_at": at.Unix(),
					"payload": json.RawMessage(raw),
				})
			}

			q, _, err := openQueue(newLogger())
			if err != nil {
				return err
			}
			item, err := q.Add(raw, at)
			if err != nil {
				return err
			}
			return printJSON(item)
		},
	}

	cmd.Flags().StringVar(&payload.To, "to", "", "Recipient address(es), comma separated")
	cmd.Flags().StringVar(&payload.Cc, "cc", "", "Cc address(es)")
	cmd.Flags().StringVar(&payload.Bcc, "bcc", "", "Bcc address(es)")
	cmd.Flags().StringVar(&payload.Subject, "subject", "", "Subject line")
	cmd.Flags().StringVar(&payload.Text, "text", "", "Plain-text body")
	cmd.Flags().StringVar(&payload.HTML, "html", "", "HTML body")
	cmd.Flags().StringVar(&payload.Sender, "sender", "", "From header (default: authenticated account)")
	cmd.Flags().StringVar(&sendAt, "send-at", "", "Send time (ISO 8601, naive times are UTC)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate and show the item without queueing it")
	cmd.MarkFlagRequired("to")
	cmd.MarkFlagRequired("subject")
	cmd.MarkFlagRequired("send-at")
	return cmd
}

func newQueueListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show pending items ordered by send time",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, _, err := openQueue(newLogger())
			if err != nil {
				return err
			}
			items, err := q.Pending(limit)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"pending": items})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Show at most this many items (0 = all)")
	return cmd
}

func newQueueHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the most recent sent and failed items",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, _, err := openQueue(newLogger())
			if err != nil {
				return err
			}
			records, err := q.History(limit)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"history": records})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Show at most this many records (0 = all)")
	return cmd
}

func newQueueDispatchCmd() *cobra.Command {
	var (
		max    int
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Send every due item; intended to run from cron",
		Long: `Drain due items through the Gmail API. Concurrent runs are excluded by a
lock file in the outbox directory; a run that finds the lock held exits
quietly without touching the queue.

Transient delivery failures (rate limits, 5xx, network errors) reschedule
the item with exponential backoff; other client errors, or a fifth failed
attempt, move it to history as failed and ping the Telegram alert chat if
one is configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			q, cfg, err := openQueue(logger)
			if err != nil {
				return err
			}

			var sender outbox.Sender
			if !dryRun {
				svc, err := mailer.NewService(cmd.Context(), mailer.Credentials{
					ClientID:     cfg.GoogleClientID,
					ClientSecret: cfg.GoogleClientSecret,
					RefreshToken: cfg.GoogleRefreshToken,
				})
				if err != nil {
					return err
				}
				sender = mailer.NewSender(svc, logger)
			}

			result, err := q.Dispatch(cmd.Context(), sender,
				notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, logger),
				max, dryRun)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}

	cmd.Flags().IntVar(&max, "max", 0, "Attempt at most this many items per run (0 = unbounded)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what is due without sending or locking")
	return cmd
}

func newQueueUpdateCmd() *cobra.Command {
	var (
		payload mailer.Payload
		sendAt  string
	)

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Edit a pending item's content or send time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, _, err := openQueue(newLogger())
			if err != nil {
				return err
			}

			var u outbox.Update
			if sendAt != "" {
				at, err := parseISOTime(sendAt)
				if err != nil {
					return err
				}
				u.SendAt = &at
			}

			// Overlay changed payload flags onto the stored payload so an
			// update to one field keeps the rest intact.
			if payloadFlagsChanged(cmd) {
				items, err := q.Pending(0)
				if err != nil {
					return err
				}
				var current mailer.Payload
				found := false
				for _, it := range items {
					if it.ID == args[0] {
						if err := json.Unmarshal(it.Payload, &current); err != nil {
							return fmt.Errorf("stored payload for %s is unreadable: %w", args[0], err)
						}
						found = true
						break
					}
				}
				if !found {
					return &outbox.NotFoundError{ID: args[0]}
				}
				overlayPayload(cmd, &current, payload)
				if err := current.Validate(); err != nil {
					return err
				}
				raw, err := json.Marshal(current)
				if err != nil {
					return err
				}
				u.Payload = raw
			}

			if u.Payload == nil && u.SendAt == nil {
				return fmt.Errorf("nothing to update: pass --send-at or a payload flag")
			}

			item, err := q.Apply(args[0], u)
			if err != nil {
				return err
			}
			return printJSON(item)
		},
	}

	cmd.Flags().StringVar(&payload.To, "to", "", "Replace the recipient address(es)")
	cmd.Flags().StringVar(&payload.Cc, "cc", "", "Replace the Cc address(es)")
	cmd.Flags().StringVar(&payload.Bcc, "bcc", "", "Replace the Bcc address(es)")
	cmd.Flags().StringVar(&payload.Subject, "subject", "", "Replace the subject line")
	cmd.Flags().StringVar(&payload.Text, "text", "", "Replace the plain-text body")
	cmd.Flags().StringVar(&payload.HTML, "html", "", "Replace the HTML body")
	cmd.Flags().StringVar(&payload.Sender, "sender", "", "Replace the From header")
	cmd.Flags().StringVar(&sendAt, "send-at", "", "Reschedule to this time (ISO 8601)")
	return cmd
}

var payloadFlagNames = []string{"to", "cc", "bcc", "subject", "text", "html", "sender"}

func payloadFlagsChanged(cmd *cobra.Command) bool {
	for _, name := range payloadFlagNames {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

func overlayPayload(cmd *cobra.Command, dst *mailer.Payload, src mailer.Payload) {
	if cmd.Flags().Changed("to") {
		dst.To = src.To
	}
	if cmd.Flags().Changed("cc") {
		dst.Cc = src.Cc
	}
	if cmd.Flags().Changed("bcc") {
		dst.Bcc = src.Bcc
	}
	if cmd.Flags().Changed("subject") {
		dst.Subject = src.Subject
	}
	if cmd.Flags().Changed("text") {
		dst.Text = src.Text
	}
	if cmd.Flags().Changed("html") {
		dst.HTML = src.HTML
	}
	if cmd.Flags().Changed("sender") {
		dst.Sender = src.Sender
	}
}

func newQueueCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Remove a pending item without sending it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, _, err := openQueue(newLogger())
			if err != nil {
				return err
			}
			removed, err := q.Cancel(args[0])
			if err != nil {
				return err
			}
			if !removed {
				return &outbox.NotFoundError{ID: args[0]}
			}
			return printJSON(map[string]any{"cancelled": args[0]})
		},
	}
}
