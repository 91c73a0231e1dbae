// Package firms acquires hotspot detections from NASA FIRMS, either the
// online 24h CSV feeds or a local archive directory. Both produce the
// uniform point table the pipeline consumes.
package firms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"torfbot/internal/geo"

	logx "torfbot/pkg/logx"
)

// ErrAllSourcesFailed aborts a run: with zero usable sources there is
// nothing to match and silence would hide an outage.
var ErrAllSourcesFailed = errors.New("all hotspot sources failed")

// Feed downloads the FIRMS active-fire CSVs.
type Feed struct {
	feeds map[string]string
	http  *http.Client
	log   logx.Logger
	now   func() time.Time
}

func NewFeed(feeds map[string]string, timeout time.Duration, log logx.Logger) *Feed {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Feed{
		feeds: feeds,
		http:  &http.Client{Timeout: timeout},
		log:   log,
		now:   time.Now,
	}
}

// Points fetches every configured feed. A broken feed is logged and
// excluded; the error is non-nil only when no feed yields data.
func (f *Feed) Points(ctx context.Context) ([]geo.Point, error) {
	names := make([]string, 0, len(f.feeds))
	for name := range f.feeds {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []geo.Point
	okSources := 0
	for _, name := range names {
		url := f.feeds[name]
		pts, err := f.fetchOne(ctx, name, url)
		if err != nil {
			f.log.Error("feed download failed", logx.String("source", name), logx.String("url", url), logx.Err(err))
			continue
		}
		if len(pts) == 0 {
			f.log.Warn("feed returned no rows", logx.String("source", name))
			continue
		}
		out = append(out, pts...)
		okSources++
	}
	if okSources == 0 {
		return nil, ErrAllSourcesFailed
	}
	f.log.Info("hotspots downloaded", logx.Int("points", len(out)), logx.Int("sources", okSources))
	return out, nil
}

func (f *Feed) fetchOne(ctx context.Context, name, url string) ([]geo.Point, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	pts, skipped, err := parsePoints(resp.Body, name, f.now().UTC())
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		f.log.Warn("feed rows skipped", logx.String("source", name), logx.Int("count", skipped))
	}
	return pts, nil
}
