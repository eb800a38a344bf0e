package outbox

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	queueFile   = "queue.jsonl"
	historyFile = "history.jsonl"
	lockFile    = ".dispatch.lock"

	// graceWindow is how far in the past a send time may lie and still be
	// accepted by Add. Covers clock skew and slow interactive typing.
	graceWindow = 30 * time.Second
)

// Item is one persisted unit of deferred work in the pending store.
type Item struct {
	ID        string          `json:"id"`
	CreatedAt int64           `json:"created_at"`
	SendAt    int64           `json:"send_at"`
	Attempts  int             `json:"attempts"`
	LastError string          `json:"last_error,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// Record is one terminal outcome appended to history. Once written it is
// never mutated or removed.
type Record struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"` // StatusSent or StatusFailed
	Attempts    int             `json:"attempts"`
	CompletedAt int64           `json:"completed_at"`
	Error       string          `json:"error,omitempty"`
	Payload     json.RawMessage `json:"payload"`
}

// Terminal statuses recorded in history.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// NotFoundError indicates an id absent from the pending store.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no pending item with id %s", e.ID)
}

// Queue provides access to one outbox directory. Every operation re-reads
// state from disk; there is no in-memory singleton.
type Queue struct {
	queuePath   string
	historyPath string
	lockPath    string
	logger      *slog.Logger
	now         func() time.Time
}

// Open ensures the outbox directory and its store files exist and returns a
// Queue over them.
func Open(dir string, logger *slog.Logger) (*Queue, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create outbox directory: %w", err)
	}
	q := &Queue{
		queuePath:   filepath.Join(dir, queueFile),
		historyPath: filepath.Join(dir, historyFile),
		lockPath:    filepath.Join(dir, lockFile),
		logger:      logger,
		now:         time.Now,
	}
	for _, p := range []string{q.queuePath, q.historyPath} {
		f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", filepath.Base(p), err)
		}
		f.Close()
	}
	return q, nil
}

// Add validates sendAt, assigns a fresh id and appends the item to the
// pending store. No lock is taken; the single-line append is the atomicity
// boundary for concurrent adds.
func (q *Queue) Add(payload json.RawMessage, sendAt time.Time) (Item, error) {
	now := q.now()
	if sendAt.Before(now.Add(-graceWindow)) {
		return Item{}, fmt.Errorf("send time %s is in the past; use a future time",
			sendAt.UTC().Format(time.RFC3339))
	}
	item := Item{
		ID:        uuid.NewString(),
		CreatedAt: now.Unix(),
		SendAt:    sendAt.Unix(),
		Payload:   payload,
	}
	if err := appendLine(q.queuePath, item); err != nil {
		return Item{}, err
	}
	return item, nil
}

// Pending returns queued items ordered by send time ascending, up to limit
// (limit <= 0 means all). Read-only, no lock.
func (q *Queue) Pending(limit int) ([]Item, error) {
	items, err := readItems(q.queuePath)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].SendAt < items[j].SendAt })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// History returns the most recent terminal records, up to limit
// (limit <= 0 means all).
func (q *Queue) History(limit int) ([]Record, error) {
	records, err := readRecords(q.historyPath)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	return records, nil
}

// Update describes field-level changes to a pending item. Nil fields are
// left unchanged.
type Update struct {
	// Payload replaces the stored payload when non-nil.
	Payload json.RawMessage

	// SendAt reschedules the item when non-nil.
	SendAt *time.Time
}

// Apply locates the item by id, applies u and rewrites the pending store.
// It returns a NotFoundError when the id is absent. No lock is taken, so a
// concurrently-running dispatch's final rewrite can silently lose this
// change; see the package comment.
func (q *Queue) Apply(id string, u Update) (Item, error) {
	items, err := readItems(q.queuePath)
	if err != nil {
		return Item{}, err
	}
	idx := -1
	for i := range items {
		if items[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Item{}, &NotFoundError{ID: id}
	}
	if u.Payload != nil {
		items[idx].Payload = u.Payload
	}
	if u.SendAt != nil {
		items[idx].SendAt = u.SendAt.Unix()
	}
	if err := writeItems(q.queuePath, items); err != nil {
		return Item{}, err
	}
	return items[idx], nil
}

// Cancel removes a pending item by id. It reports whether anything was
// removed; history is never touched.
func (q *Queue) Cancel(id string) (bool, error) {
	items, err := readItems(q.queuePath)
	if err != nil {
		return false, err
	}
	kept := items[:0]
	for _, it := range items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	if len(kept) == len(items) {
		return false, nil
	}
	if err := writeItems(q.queuePath, kept); err != nil {
		return false, err
	}
	return true, nil
}

func appendLine(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append to %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readItems(path string) ([]Item, error) {
	var items []Item
	err := readLines(path, func(line []byte) {
		var it Item
		if json.Unmarshal(line, &it) == nil {
			items = append(items, it)
		}
	})
	return items, err
}

func readRecords(path string) ([]Record, error) {
	var records []Record
	err := readLines(path, func(line []byte) {
		var r Record
		if json.Unmarshal(line, &r) == nil {
			records = append(records, r)
		}
	})
	return records, err
}

// readLines feeds each non-empty line to fn. Unparseable lines are skipped by
// the callers rather than failing the whole read; a torn concurrent append
// must not wedge the queue.
func readLines(path string, fn func(line []byte)) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		fn(line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeItems(path string, items []Item) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filepath.Base(tmp), err)
	}
	w := bufio.NewWriter(f)
	for _, it := range items {
		data, err := json.Marshal(it)
		if err != nil {
			f.Close()
			return fmt.Errorf("failed to encode item %s: %w", it.ID, err)
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(tmp), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", filepath.Base(tmp), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
