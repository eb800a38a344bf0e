// Package outbox is a file-backed, at-least-once delivery queue for
// time-scheduled sends.
//
// State lives in three files under one directory: a JSONL pending store
// (queue.jsonl), an append-only JSONL history of terminal outcomes
// (history.jsonl), and a zero-byte lock marker (.dispatch.lock) whose mere
// existence means a dispatch run is in progress.
//
// Any process may read or write the files; coordination is only the lock, and
// only dispatch takes it. Add appends a single line and relies on the append
// being atomic at line granularity. Update and Cancel rewrite the pending
// store without locking, which leaves a narrow accepted race against a
// concurrent dispatch's final rewrite: an update or cancel issued between a
// dispatch's read and its rewrite can be silently lost.
//
// Delivery is at-least-once, not exactly-once: a crash after a send but
// before the final rewrite of the pending store re-processes the item on the
// next run. Duplicate sends are an accepted tradeoff of the whole-file-rewrite
// design; a write-ahead marker per item would be needed to close the window.
package outbox
