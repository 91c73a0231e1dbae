package firms

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"torfbot/internal/geo"
)

// parsePoints reads a FIRMS active-fire CSV. Rows missing coordinates are
// skipped and counted; a record-level problem never fails the whole file.
//
// observed_at comes from the acq_date/acq_time columns when present
// (FIRMS encodes time as HHMM, UTC), otherwise fallback is used.
func parsePoints(r io.Reader, source string, fallback time.Time) (points []geo.Point, skipped int, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, 0, err
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}

	field := func(row []string, name string) (string, bool) {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return "", false
		}
		return strings.TrimSpace(row[i]), true
	}

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		latRaw, okLat := field(row, "latitude")
		lonRaw, okLon := field(row, "longitude")
		if !okLat || !okLon {
			skipped++
			continue
		}
		lat, errLat := strconv.ParseFloat(latRaw, 64)
		lon, errLon := strconv.ParseFloat(lonRaw, 64)
		if errLat != nil || errLon != nil {
			skipped++
			continue
		}
		points = append(points, geo.Point{
			Lat:        lat,
			Lon:        lon,
			Source:     source,
			ObservedAt: observedAt(row, field, fallback),
		})
	}
	return points, skipped, nil
}

func observedAt(row []string, field func([]string, string) (string, bool), fallback time.Time) time.Time {
	date, ok := field(row, "acq_date")
	if !ok || date == "" {
		return fallback
	}
	hhmm, _ := field(row, "acq_time")
	for len(hhmm) < 4 {
		hhmm = "0" + hhmm
	}
	t, err := time.Parse("2006-01-02 1504", date+" "+hhmm)
	if err != nil {
		return fallback
	}
	return t.UTC()
}
