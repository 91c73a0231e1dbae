package alert

import (
	"context"
	"strings"
	"testing"

	"torfbot/internal/geo"

	logx "torfbot/pkg/logx"
)

type fakeEnricher map[string]string

func (f fakeEnricher) Lookup(_ context.Context, id string) (string, bool) {
	url, ok := f[id]
	return url, ok
}

const defaultWiki = "https://wiki.simargl-team.ru"

func match(id int64, region, district string, lat, lon float64) geo.Match {
	return geo.Match{
		Point:   geo.Point{Lat: lat, Lon: lon, Source: "viirs_noaa20"},
		Polygon: geo.Polygon{ID: id, Region: region, District: district},
	}
}

func TestAggregateGroupsByPolygon(t *testing.T) {
	t.Parallel()
	enrich := fakeEnricher{
		"77": "https://wiki.example.org/index.php/Радовицкий_Мох_77",
	}
	agg := NewAggregator(enrich, defaultWiki, logx.Nop())

	matches := []geo.Match{
		match(77, "Московская область", "Шатурский район", 55.61, 39.52),
		match(77, "Московская область", "Шатурский район", 55.62, 39.53),
		match(77, "Московская область", "Шатурский район", 55.63, 39.54),
		match(12, "Тверская область", "Конаковский район", 56.70, 36.75),
	}

	alerts := agg.Aggregate(context.Background(), matches)
	if len(alerts) != 2 {
		t.Fatalf("got %d alerts, want 2", len(alerts))
	}

	// Sorted by polygon id.
	if alerts[0].ID != 12 || alerts[1].ID != 77 {
		t.Fatalf("unexpected order: %d, %d", alerts[0].ID, alerts[1].ID)
	}

	a := alerts[1]
	if a.Count != 3 {
		t.Errorf("Count = %d, want 3", a.Count)
	}
	// Representative coordinates are the group's first point, not a centroid.
	if a.Lat != 55.61 || a.Lon != 39.52 {
		t.Errorf("representative = (%v, %v), want first point", a.Lat, a.Lon)
	}
	if a.Name != "Московская область — Шатурский район" {
		t.Errorf("Name = %q", a.Name)
	}
	if a.Title != "Радовицкий Мох (id 77)" {
		t.Errorf("Title = %q", a.Title)
	}
	if !strings.Contains(a.MapURL, "yandex.ru/maps") || !strings.Contains(a.MapURL, "z=13") {
		t.Errorf("MapURL = %q", a.MapURL)
	}
	if !strings.Contains(a.MapURL, "39.52,55.61") {
		t.Errorf("MapURL should carry lon,lat: %q", a.MapURL)
	}
}

func TestAggregateEnrichmentFallback(t *testing.T) {
	t.Parallel()
	// Polygon 12 has no wiki article; the default link stands in.
	agg := NewAggregator(fakeEnricher{}, defaultWiki, logx.Nop())
	alerts := agg.Aggregate(context.Background(), []geo.Match{
		match(12, "Тверская область", "Конаковский район", 56.70, 36.75),
	})
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
	if alerts[0].WikiURL != defaultWiki {
		t.Errorf("WikiURL = %q, want default", alerts[0].WikiURL)
	}
	if alerts[0].Title != "wiki.simargl-team.ru" {
		t.Errorf("fallback Title = %q", alerts[0].Title)
	}
}

func TestAggregateNilEnricher(t *testing.T) {
	t.Parallel()
	agg := NewAggregator(nil, defaultWiki, logx.Nop())
	alerts := agg.Aggregate(context.Background(), []geo.Match{
		match(5, "Рязанская область", "", 54.6, 39.7),
	})
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
	if alerts[0].Name != "Рязанская область" {
		t.Errorf("Name = %q, want bare region when district is empty", alerts[0].Name)
	}
}

func TestAggregateEmpty(t *testing.T) {
	t.Parallel()
	agg := NewAggregator(nil, defaultWiki, logx.Nop())
	if got := agg.Aggregate(context.Background(), nil); got != nil {
		t.Fatalf("expected no alerts, got %d", len(got))
	}
}
