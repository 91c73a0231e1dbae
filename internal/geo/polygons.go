package geo

import (
	"errors"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"

	logx "torfbot/pkg/logx"
)

// ErrNoPolygons reports an unreadable or empty polygon dataset.
// Callers may keep running with an empty set; no polygons simply means
// no possible matches.
var ErrNoPolygons = errors.New("no polygons loaded")

// Store loads the peatland polygon dataset.
type Store struct {
	path string
	log  logx.Logger
}

func NewStore(path string, log logx.Logger) *Store {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Store{path: path, log: log}
}

// Load reads the GeoJSON dataset and normalizes it to WGS84.
//
// The dataset declares geographic coordinates but actually stores Web
// Mercator meters (a known defect of the upstream export). The declared
// CRS is therefore overridden: coordinates are reinterpreted as EPSG:3857
// and unprojected to EPSG:4326. This correction is unconditional and
// logged so a fixed upstream export is noticed immediately.
func (s *Store) Load() ([]Polygon, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoPolygons, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoPolygons, err)
	}

	s.log.Warn("overriding polygon CRS: treating coordinates as EPSG:3857", logx.String("path", s.path))

	polys := make([]Polygon, 0, len(fc.Features))
	skipped := 0
	for _, f := range fc.Features {
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			skipped++
			continue
		}
		id, ok := numericProperty(f.Properties, "unique_id")
		if !ok {
			skipped++
			continue
		}
		polys = append(polys, Polygon{
			ID:       id,
			Region:   f.Properties.MustString("region", ""),
			District: f.Properties.MustString("district", ""),
			Geometry: project.Geometry(f.Geometry, project.Mercator.ToWGS84),
		})
	}
	if skipped > 0 {
		s.log.Warn("skipped malformed polygon features", logx.Int("count", skipped), logx.String("path", s.path))
	}
	if len(polys) == 0 {
		return nil, ErrNoPolygons
	}
	s.log.Info("polygons loaded", logx.Int("count", len(polys)), logx.String("path", s.path))
	return polys, nil
}

func numericProperty(p geojson.Properties, key string) (int64, bool) {
	v, ok := p[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}
