package outbox

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fdtorres1/felix-tools/internal/logging"
)

const (
	// maxAttempts is the attempt cap after which a transient failure is
	// demoted to a permanent one.
	maxAttempts = 5

	// backoff parameters: 60 * 2^(attempts-1) seconds, capped at one hour.
	backoffBaseSeconds = 60
	backoffCapSeconds  = 3600
)

// Sender delivers one payload. Implementations should wrap remote failures in
// *SendError so dispatch can classify them.
type Sender interface {
	Send(ctx context.Context, payload []byte) error
}

// Notifier receives best-effort alerts about permanently failed items.
// Failures of the notification channel itself are swallowed.
type Notifier interface {
	Notify(msg string)
}

// SendError carries the HTTP status of a failed delivery attempt.
type SendError struct {
	StatusCode int
	Err        error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send failed with status %d: %v", e.StatusCode, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// transient reports whether err should be retried: rate limits and
// server-side errors are, other client-side errors are not. Errors without a
// status code (network timeouts, torn connections) are treated as transient.
func transient(err error) bool {
	var se *SendError
	if !errors.As(err, &se) {
		return true
	}
	if se.StatusCode == 429 {
		return true
	}
	return se.StatusCode >= 500 || se.StatusCode < 400
}

// DispatchResult summarizes one dispatch run.
type DispatchResult struct {
	// Skipped is set when another dispatcher held the lock; nothing was
	// read or written.
	Skipped bool `json:"skipped,omitempty"`

	DryRun     bool `json:"dry_run,omitempty"`
	Dispatched int  `json:"dispatched"`
	Failed     int  `json:"failed"`
	Remaining  int  `json:"remaining"`

	// DueCount and Due preview the currently-due items on a dry run; Due is
	// capped at max entries.
	DueCount int    `json:"due_count,omitempty"`
	Due      []Item `json:"due,omitempty"`
}

// Dispatch drains due items, delivering each through sender. It is the only
// lock-guarded operation: if another dispatch holds the lock this run is a
// silent no-op success. At most max items are attempted (max <= 0 means
// unbounded); items beyond the cap stay pending untouched.
//
// Per-item outcomes:
//   - success: a sent record is appended to history and the item is dropped.
//   - transient failure below the attempt cap: attempts and last_error are
//     updated and the item is rescheduled with exponential backoff from now.
//   - permanent failure, or cap reached: a failed record is appended to
//     history, the item is dropped, and notifier is pinged best-effort.
//
// The pending store is rewritten once at the end of the run. A crash before
// that rewrite re-processes already-sent items next run; see the package
// comment for the at-least-once tradeoff.
func (q *Queue) Dispatch(ctx context.Context, sender Sender, notifier Notifier, max int, dryRun bool) (DispatchResult, error) {
	if dryRun {
		items, err := readItems(q.queuePath)
		if err != nil {
			return DispatchResult{}, err
		}
		now := q.now().Unix()
		result := DispatchResult{DryRun: true}
		for _, it := range items {
			if it.SendAt <= now {
				if max <= 0 || len(result.Due) < max {
					result.Due = append(result.Due, it)
				}
				result.DueCount++
			} else {
				result.Remaining++
			}
		}
		return result, nil
	}

	if !q.acquireLock() {
		q.logger.Debug("dispatch already in progress, skipping",
			logging.Operation("dispatch"))
		return DispatchResult{Skipped: true}, nil
	}
	defer q.releaseLock()

	items, err := readItems(q.queuePath)
	if err != nil {
		return DispatchResult{}, err
	}

	now := q.now().Unix()
	var result DispatchResult
	var remaining []Item
	processed := 0

	for _, item := range items {
		if max > 0 && processed >= max {
			remaining = append(remaining, item)
			continue
		}
		if item.SendAt > now {
			remaining = append(remaining, item)
			continue
		}
		processed++

		sendErr := sender.Send(ctx, item.Payload)
		if sendErr == nil {
			if err := appendLine(q.historyPath, Record{
				ID:          item.ID,
				Status:      StatusSent,
				Attempts:    item.Attempts + 1,
				CompletedAt: q.now().Unix(),
				Payload:     item.Payload,
			}); err != nil {
				return result, err
			}
			result.Dispatched++
			q.logger.Info("dispatched scheduled item",
				logging.Operation("dispatch"), "id", item.ID)
			continue
		}

		item.Attempts++
		item.LastError = sendErr.Error()

		if transient(sendErr) && item.Attempts < maxAttempts {
			delay := backoffBaseSeconds * (1 << (item.Attempts - 1))
			if delay > backoffCapSeconds {
				delay = backoffCapSeconds
			}
			item.SendAt = now + int64(delay)
			remaining = append(remaining, item)
			q.logger.Warn("delivery failed, rescheduled with backoff",
				logging.Operation("dispatch"), "id", item.ID,
				"attempts", item.Attempts, "backoff_seconds", delay,
				logging.Err(sendErr))
			continue
		}

		if err := appendLine(q.historyPath, Record{
			ID:          item.ID,
			Status:      StatusFailed,
			Attempts:    item.Attempts,
			CompletedAt: q.now().Unix(),
			Error:       sendErr.Error(),
			Payload:     item.Payload,
		}); err != nil {
			return result, err
		}
		result.Failed++
		q.logger.Error("delivery failed permanently",
			logging.Operation("dispatch"), "id", item.ID,
			"attempts", item.Attempts, logging.Err(sendErr))
		if notifier != nil {
			notifier.Notify(fmt.Sprintf("scheduled send failed\nid: %s\nerror: %v", item.ID, sendErr))
		}
	}

	if err := writeItems(q.queuePath, remaining); err != nil {
		return result, err
	}
	result.Remaining = len(remaining)
	return result, nil
}

// acquireLock creates the lock marker if absent. Existence of the marker is
// the whole protocol.
func (q *Queue) acquireLock() bool {
	f, err := os.OpenFile(q.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

func (q *Queue) releaseLock() {
	if err := os.Remove(q.lockPath); err != nil && !os.IsNotExist(err) {
		q.logger.Warn("failed to remove dispatch lock", logging.Err(err))
	}
}
