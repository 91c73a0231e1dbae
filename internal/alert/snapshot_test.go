package alert

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSnapshotRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "last_alerts.json")

	in := []Alert{
		{ID: 77, Name: "Московская область — Шатурский район", Count: 3, Lat: 55.61, Lon: 39.52, Region: "Московская область", Title: "Радовицкий Мох (id 77)", WikiURL: "https://wiki.example.org/index.php/Радовицкий_Мох_77", MapURL: "https://yandex.ru/maps/?ll=39.52,55.61&z=13"},
		{ID: 12, Name: "Тверская область", Count: 1},
	}
	if err := SaveSnapshot(path, in); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	out, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(out) != 2 || out[0] != in[0] || out[1] != in[1] {
		t.Fatalf("round trip mismatch: %+v", out)
	}

	if _, err := LoadSnapshot(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing snapshot")
	}
}

func TestPruneSnapshots(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	now := time.Now()

	fresh := filepath.Join(dir, "last_alerts.json")
	stale := filepath.Join(dir, "last_alerts_2026-08-01.json")
	other := filepath.Join(dir, "users.json")
	for _, p := range []string{fresh, stale, other} {
		if err := os.WriteFile(p, []byte("[]"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	old := now.Add(-30 * 24 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(other, old, old); err != nil {
		t.Fatal(err)
	}

	removed, err := PruneSnapshots(fresh, 10*24*time.Hour, now)
	if err != nil {
		t.Fatalf("PruneSnapshots: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale snapshot should be gone")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh snapshot should remain")
	}
	if _, err := os.Stat(other); err != nil {
		t.Error("unrelated files must never be pruned")
	}
}
