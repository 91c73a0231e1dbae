package ledger

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	logx "torfbot/pkg/logx"
)

// ErrUnavailable means the ledger cannot be opened or read. The
// dispatcher fails closed on it: without dedup state, sending risks
// duplicates.
var ErrUnavailable = errors.New("delivery ledger unavailable")

const StatusSent = "sent"

// Record is one append-only ledger entry: a confirmed delivery of one
// alert to one recipient. For a given (alert_id, user_id) pair at most
// one sent record ever exists; that is the dedup guarantee.
type Record struct {
	AlertID int64  `json:"alert_id"`
	UserID  int64  `json:"user_id"`
	Region  string `json:"region"`
	Title   string `json:"title"`
	Date    string `json:"date"` // YYYY-MM-DD
	Status  string `json:"status"`
}

// Store is the persistence API the dispatcher depends on. The ledger is
// cumulative across runs; nothing here ever resets it.
type Store interface {
	WasSent(ctx context.Context, alertID, userID int64) (bool, error)
	RecordSent(ctx context.Context, r Record) error
	Close() error
}

// Config configures the ledger backend.
//
// Driver values:
//   - "file": append-only jsonl journal + periodic snapshot
//   - "sqlite": SQLite database file
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Open initializes the configured store. Unlike optional caches, a
// ledger that cannot open is an error: the caller must abort the run.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown ledger driver: " + cfg.Driver)
	}
}

func pairKey(alertID, userID int64) string {
	return strconv.FormatInt(alertID, 10) + "|" + strconv.FormatInt(userID, 10)
}
