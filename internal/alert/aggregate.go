package alert

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"torfbot/internal/geo"

	logx "torfbot/pkg/logx"
)

// Enricher resolves a reference URL for a polygon id. Best effort: a
// miss or failure reports ok=false and the caller falls back.
type Enricher interface {
	Lookup(ctx context.Context, id string) (url string, ok bool)
}

type Aggregator struct {
	enrich     Enricher
	defaultURL string
	log        logx.Logger
}

func NewAggregator(enrich Enricher, defaultURL string, log logx.Logger) *Aggregator {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Aggregator{enrich: enrich, defaultURL: defaultURL, log: log}
}

// Aggregate groups matches by polygon identity into one Alert per
// peatland. The representative coordinates are the group's first matched
// point: deterministic and traceable to a concrete observation, unlike a
// centroid. Groups come out sorted by polygon id.
func (a *Aggregator) Aggregate(ctx context.Context, matches []geo.Match) []Alert {
	if len(matches) == 0 {
		a.log.Warn("no matches; no alerts generated")
		return nil
	}

	groups := make(map[int64][]geo.Match)
	for _, m := range matches {
		groups[m.Polygon.ID] = append(groups[m.Polygon.ID], m)
	}
	ids := make([]int64, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	alerts := make([]Alert, 0, len(ids))
	for _, id := range ids {
		group := groups[id]
		first := group[0]

		name := strings.Trim(first.Polygon.Region+" — "+first.Polygon.District, "— ")

		wikiURL := a.defaultURL
		if a.enrich != nil {
			if url, ok := a.enrich.Lookup(ctx, strconv.FormatInt(id, 10)); ok {
				wikiURL = url
			}
		}

		al := Alert{
			ID:      id,
			Name:    name,
			Count:   len(group),
			Lat:     first.Point.Lat,
			Lon:     first.Point.Lon,
			WikiURL: wikiURL,
			Region:  first.Polygon.Region,
			Title:   renderTitle(wikiURL),
			MapURL:  mapURL(first.Point.Lat, first.Point.Lon),
		}
		a.log.Info("alert generated",
			logx.Int64("polygon", id),
			logx.Int("count", al.Count),
			logx.String("wiki", wikiURL))
		alerts = append(alerts, al)
	}
	return alerts
}

func mapURL(lat, lon float64) string {
	return "https://yandex.ru/maps/?ll=" +
		strconv.FormatFloat(lon, 'f', -1, 64) + "," +
		strconv.FormatFloat(lat, 'f', -1, 64) + "&z=13"
}
