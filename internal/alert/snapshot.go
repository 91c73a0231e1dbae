package alert

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SaveSnapshot persists the latest alert set for on-demand recall and
// cached re-dispatch. The write is atomic (tmp + rename) so a crashed
// run never leaves a truncated snapshot behind.
func SaveSnapshot(path string, alerts []Alert) error {
	b, err := json.MarshalIndent(alerts, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func LoadSnapshot(path string) ([]Alert, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var alerts []Alert
	if err := json.Unmarshal(b, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// PruneSnapshots removes stale "last_alerts*" files next to the current
// snapshot. Retention is an operator policy, not pipeline state; the
// ledger is never touched here.
func PruneSnapshots(snapshotPath string, maxAge time.Duration, now time.Time) (removed int, err error) {
	dir := filepath.Dir(snapshotPath)
	base := filepath.Base(snapshotPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	var firstErr error
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), stem) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= maxAge {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		removed++
	}
	return removed, firstErr
}
