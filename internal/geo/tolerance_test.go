package geo

import "testing"

func TestToleranceRadius(t *testing.T) {
	t.Parallel()
	tol := Tolerances{
		RadiusM: map[string]float64{
			"modis":        1000,
			"viirs_suomi":  300,
			"viirs_noaa20": 375,
		},
		DefaultM: 500,
	}

	tests := []struct {
		source string
		want   float64
	}{
		{source: "modis", want: 1000},
		{source: "viirs_noaa20", want: 375},
		{source: "viirs_noaa20_archive", want: 375},
		{source: "viirs_suomi_archive", want: 300},
		{source: "landsat", want: 500},
		{source: "", want: 500},
	}
	for _, tt := range tests {
		if got := tol.Radius(tt.source); got != tt.want {
			t.Errorf("Radius(%q) = %v, want %v", tt.source, got, tt.want)
		}
	}
}
