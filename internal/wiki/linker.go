// Package wiki resolves a peatland's reference article URL by scraping
// the team wiki's search page. Results, including misses, are cached in a
// JSON file so repeated runs stay cheap and mostly offline.
package wiki

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "torfbot/pkg/logx"
)

type Config struct {
	SearchURL string
	BaseURL   string
	CachePath string
	Timeout   time.Duration
}

// Linker is a best-effort enrichment lookup. Every failure degrades to
// "no URL"; errors never reach the aggregator.
type Linker struct {
	cfg  Config
	http *http.Client
	log  logx.Logger

	mu     sync.Mutex
	cache  map[string]*string // nil value = known miss
	loaded bool
}

func NewLinker(cfg Config, log logx.Logger) *Linker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Linker{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
	}
}

// Lookup returns the reference URL for a polygon id, if one is known.
func (l *Linker) Lookup(ctx context.Context, id string) (string, bool) {
	if strings.TrimSpace(id) == "" {
		return "", false
	}

	l.mu.Lock()
	l.ensureCacheLocked()
	if url, ok := l.cache[id]; ok {
		l.mu.Unlock()
		if url == nil {
			return "", false
		}
		return *url, true
	}
	l.mu.Unlock()

	url, found, definitive := l.search(ctx, id)

	// Only a completed search may write the cache. A transport failure
	// or bad status says nothing about whether an article exists, and
	// the cache persists across runs: recording it as a miss would pin
	// the fallback title long after the wiki recovers.
	if definitive {
		l.mu.Lock()
		if found {
			l.cache[id] = &url
		} else {
			l.cache[id] = nil
		}
		l.saveCacheLocked()
		l.mu.Unlock()
	}

	return url, found
}

// search scrapes the wiki search page for an article link. definitive
// reports whether the search itself completed; only definitive results
// (hit or confirmed no-article) are safe to cache.
func (l *Linker) search(ctx context.Context, id string) (url string, found, definitive bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.cfg.SearchURL+id, nil)
	if err != nil {
		return "", false, false
	}
	resp, err := l.http.Do(req)
	if err != nil {
		l.log.Warn("wiki lookup failed", logx.String("id", id), logx.Err(err))
		return "", false, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		l.log.Warn("wiki lookup failed", logx.String("id", id), logx.String("status", resp.Status))
		return "", false, false
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", false, false
	}

	// First article link in the search results wins; red links are
	// pages that don't exist yet.
	for _, line := range strings.Split(string(body), "\n") {
		if !strings.Contains(line, "/index.php/") || strings.Contains(line, "redlink=1") {
			continue
		}
		start := strings.Index(line, "/index.php/")
		end := strings.Index(line[start:], `"`)
		if end < 0 {
			continue
		}
		link := strings.ReplaceAll(line[start:start+end], "&amp;", "&")
		return l.cfg.BaseURL + link, true, true
	}
	return "", false, true
}

func (l *Linker) ensureCacheLocked() {
	if l.loaded {
		return
	}
	l.loaded = true
	l.cache = map[string]*string{}
	b, err := os.ReadFile(l.cfg.CachePath)
	if err != nil {
		return
	}
	if err := json.Unmarshal(b, &l.cache); err != nil {
		l.log.Warn("wiki cache unreadable; starting empty", logx.String("path", l.cfg.CachePath), logx.Err(err))
		l.cache = map[string]*string{}
	}
}

func (l *Linker) saveCacheLocked() {
	b, err := json.MarshalIndent(l.cache, "", "  ")
	if err != nil {
		return
	}
	tmp := l.cfg.CachePath + ".tmp"
	if err := os.MkdirAll(filepath.Dir(l.cfg.CachePath), 0o755); err != nil {
		return
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		l.log.Warn("wiki cache write failed", logx.Err(err))
		return
	}
	if err := os.Rename(tmp, l.cfg.CachePath); err != nil {
		l.log.Warn("wiki cache rename failed", logx.Err(err))
	}
}
