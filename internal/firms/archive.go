package firms

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"torfbot/internal/geo"

	logx "torfbot/pkg/logx"
)

// Archive reads hotspot CSVs from a local directory instead of the
// network. Sources carry an "_archive" suffix so the matcher can map them
// back to the live sensor's tolerance.
type Archive struct {
	dir string
	log logx.Logger
	now func() time.Time
}

func NewArchive(dir string, log logx.Logger) *Archive {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Archive{dir: dir, log: log, now: time.Now}
}

// Points loads every *.csv under the archive directory. The source name
// is the file's base name without extension plus "_archive", so
// "viirs_noaa20.csv" replays as source "viirs_noaa20_archive".
func (a *Archive) Points(ctx context.Context) ([]geo.Point, error) {
	files, err := filepath.Glob(filepath.Join(a.dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var out []geo.Point
	okSources := 0
	for _, path := range files {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		source := base + "_archive"

		f, err := os.Open(path)
		if err != nil {
			a.log.Error("archive open failed", logx.String("path", path), logx.Err(err))
			continue
		}
		pts, skipped, err := parsePoints(f, source, a.now().UTC())
		f.Close()
		if err != nil {
			a.log.Error("archive parse failed", logx.String("path", path), logx.Err(err))
			continue
		}
		if skipped > 0 {
			a.log.Warn("archive rows skipped", logx.String("source", source), logx.Int("count", skipped))
		}
		if len(pts) == 0 {
			a.log.Warn("archive file empty", logx.String("path", path))
			continue
		}
		a.log.Info("archive loaded", logx.String("source", source), logx.Int("points", len(pts)))
		out = append(out, pts...)
		okSources++
	}
	if okSources == 0 {
		return nil, ErrAllSourcesFailed
	}
	return out, nil
}
