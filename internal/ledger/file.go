package ledger

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "torfbot/pkg/logx"
)

// fileStore is the dependency-free ledger backend.
//
// Files:
//   - <prefix>.journal.jsonl  (append-only journal, one Record per line)
//   - <prefix>.snapshot.json  (periodic compaction of the journal)
//
// Every record stays forever; compaction only folds the journal into the
// snapshot, it never drops entries.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	snapshotPath string
	journalFile  *os.File
	sent         map[string]Record

	writes int
}

const compactEvery = 1000

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, fmt.Errorf("%w: ledger path is required", ErrUnavailable)
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	prefix := filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base)))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	snapPath := prefix + ".snapshot.json"
	journalPath := prefix + ".journal.jsonl"

	sent := map[string]Record{}
	if err := loadSnapshot(snapPath, sent); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: snapshot: %v", ErrUnavailable, err)
	}
	skipped, err := replayJournal(journalPath, sent)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: journal: %v", ErrUnavailable, err)
	}
	if skipped > 0 {
		// A torn final line is normal crash recovery; more than that
		// means lost dedup state and possible resends.
		log.Warn("ledger journal lines unreadable",
			logx.Int("count", skipped), logx.String("path", journalPath))
	}

	jf, err := os.OpenFile(journalPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	log.Info("delivery ledger opened", logx.String("driver", "file"), logx.Int("records", len(sent)))
	return &fileStore{
		log:          log,
		snapshotPath: snapPath,
		journalFile:  jf,
		sent:         sent,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journalFile == nil {
		return nil
	}
	err := s.journalFile.Close()
	s.journalFile = nil
	return err
}

func (s *fileStore) WasSent(ctx context.Context, alertID, userID int64) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.sent[pairKey(alertID, userID)]
	return ok && r.Status == StatusSent, nil
}

func (s *fileStore) RecordSent(ctx context.Context, r Record) error {
	_ = ctx
	if r.Status == "" {
		r.Status = StatusSent
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journalFile == nil {
		return fmt.Errorf("%w: journal closed", ErrUnavailable)
	}

	key := pairKey(r.AlertID, r.UserID)
	if prev, ok := s.sent[key]; ok && prev.Status == StatusSent {
		// Already recorded; keep the ledger append-only and consistent.
		return nil
	}
	if err := json.NewEncoder(s.journalFile).Encode(r); err != nil {
		return err
	}
	s.sent[key] = r

	s.writes++
	if s.writes%compactEvery == 0 {
		if err := s.compactLocked(); err != nil {
			s.log.Warn("ledger compact failed", logx.Err(err))
		}
	}
	return nil
}

func (s *fileStore) compactLocked() error {
	tmp := s.snapshotPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(s.sent); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.snapshotPath); err != nil {
		return err
	}
	if err := s.journalFile.Truncate(0); err != nil {
		return err
	}
	_, err = s.journalFile.Seek(0, 2)
	return err
}

func loadSnapshot(path string, out map[string]Record) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	var m map[string]Record
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return err
	}
	for k, v := range m {
		out[k] = v
	}
	return nil
}

func replayJournal(path string, out map[string]Record) (skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			skipped++
			continue
		}
		out[pairKey(r.AlertID, r.UserID)] = r
	}
	return skipped, sc.Err()
}
