package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	logx "torfbot/pkg/logx"
)

func testRecord(alertID, userID int64) Record {
	return Record{
		AlertID: alertID,
		UserID:  userID,
		Region:  "Московская область",
		Title:   "Радовицкий Мох (id 77)",
		Date:    "2026-09-01",
		Status:  StatusSent,
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "redis", Path: "x"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestOpenEmptyPath(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func runStoreContract(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("record then query", func(t *testing.T) {
		st := open(t)
		defer st.Close()

		sent, err := st.WasSent(ctx, 77, 100)
		if err != nil {
			t.Fatalf("WasSent: %v", err)
		}
		if sent {
			t.Fatal("fresh ledger claims a prior send")
		}
		if err := st.RecordSent(ctx, testRecord(77, 100)); err != nil {
			t.Fatalf("RecordSent: %v", err)
		}
		sent, err = st.WasSent(ctx, 77, 100)
		if err != nil || !sent {
			t.Fatalf("WasSent after record = (%v, %v), want (true, nil)", sent, err)
		}

		// Other pairs stay unaffected.
		for _, pair := range [][2]int64{{77, 101}, {78, 100}} {
			sent, err := st.WasSent(ctx, pair[0], pair[1])
			if err != nil || sent {
				t.Fatalf("WasSent(%d,%d) = (%v, %v), want (false, nil)", pair[0], pair[1], sent, err)
			}
		}
	})

	t.Run("duplicate record is a no-op", func(t *testing.T) {
		st := open(t)
		defer st.Close()

		if err := st.RecordSent(ctx, testRecord(1, 2)); err != nil {
			t.Fatalf("first RecordSent: %v", err)
		}
		if err := st.RecordSent(ctx, testRecord(1, 2)); err != nil {
			t.Fatalf("second RecordSent: %v", err)
		}
		sent, err := st.WasSent(ctx, 1, 2)
		if err != nil || !sent {
			t.Fatalf("WasSent = (%v, %v), want (true, nil)", sent, err)
		}
	})
}

func TestFileStore(t *testing.T) {
	t.Parallel()
	runStoreContract(t, func(t *testing.T) Store {
		st, err := Open(Config{Driver: "file", Path: filepath.Join(t.TempDir(), "sent_log")}, logx.Nop())
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		return st
	})
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()
	runStoreContract(t, func(t *testing.T) Store {
		st, err := Open(Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "ledger.db")}, logx.Nop())
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		return st
	})
}

// Corruption in the middle of the journal must not take the readable
// records around it down with it; only the broken lines are lost.
func TestFileStoreCorruptJournalLines(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	journal := filepath.Join(dir, "sent_log.journal.jsonl")
	lines := `{"alert_id":77,"user_id":100,"region":"Московская область","title":"Радовицкий Мох (id 77)","date":"2026-09-01","status":"sent"}
{"alert_id":77,"user_
{"alert_id":77,"user_id":300,"region":"Московская область","title":"Радовицкий Мох (id 77)","date":"2026-09-01","status":"sent"}
`
	if err := os.WriteFile(journal, []byte(lines), 0o600); err != nil {
		t.Fatal(err)
	}

	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "sent_log")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	for _, userID := range []int64{100, 300} {
		sent, err := st.WasSent(ctx, 77, userID)
		if err != nil || !sent {
			t.Errorf("WasSent(77, %d) = (%v, %v), want (true, nil)", userID, sent, err)
		}
	}
	// Whatever pair the torn line held is genuinely lost.
	sent, err := st.WasSent(ctx, 77, 200)
	if err != nil || sent {
		t.Errorf("WasSent(77, 200) = (%v, %v), want (false, nil)", sent, err)
	}
}

// The ledger must be cumulative across process restarts: reopening the
// same files sees every prior record.
func TestPersistenceAcrossReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for _, driver := range []string{"file", "sqlite"} {
		driver := driver
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "ledger")

			st, err := Open(Config{Driver: driver, Path: path}, logx.Nop())
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if err := st.RecordSent(ctx, testRecord(77, 100)); err != nil {
				t.Fatalf("RecordSent: %v", err)
			}
			if err := st.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			st, err = Open(Config{Driver: driver, Path: path}, logx.Nop())
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			defer st.Close()
			sent, err := st.WasSent(ctx, 77, 100)
			if err != nil || !sent {
				t.Fatalf("WasSent after reopen = (%v, %v), want (true, nil)", sent, err)
			}
		})
	}
}
