// Package alert turns matched hotspots into one notification unit per
// peatland and owns the latest-alerts snapshot.
package alert

// Alert is one aggregated notification: all hotspots matched to a single
// polygon during one pipeline run. Recomputed every cycle; only the
// latest set is persisted, for on-demand recall and cached re-dispatch.
//
// JSON field names are the historical snapshot format consumed by ops
// tooling; keep them stable.
type Alert struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	WikiURL string  `json:"wiki_url"`
	Region  string  `json:"region"`
	Title   string  `json:"title"`
	MapURL  string  `json:"map_url"`
}
