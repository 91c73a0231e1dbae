// Package ledger is the durable record of which (alert, recipient)
// pairs have already been notified.
//
// It is the single source of truth for delivery dedup and the only
// mutable state shared across pipeline runs. Entries are appended after
// a confirmed send and never rewritten; re-running the dispatcher over
// the same alert set is therefore idempotent.
package ledger
