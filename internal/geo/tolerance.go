package geo

import "strings"

// Tolerances resolves a per-sensor positional uncertainty radius, in
// meters. Sources absent from the table use Default; they are matched
// with the conservative default radius, never dropped.
type Tolerances struct {
	RadiusM  map[string]float64
	DefaultM float64
}

// Radius returns the uncertainty radius for a source. Archive replays
// carry an "_archive" suffix that maps to the live sensor's tolerance.
func (t Tolerances) Radius(source string) float64 {
	base := strings.TrimSuffix(source, "_archive")
	if r, ok := t.RadiusM[base]; ok && r > 0 {
		return r
	}
	return t.DefaultM
}
