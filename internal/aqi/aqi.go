package aqi

import (
	"math"
)

// Breakpoint is one band of the PM2.5 -> AQI table. ConcHigh is the
// inclusive upper concentration bound; higher concentrations fall through
// to the next band and the last band is open-ended. Interpolation starts
// at Anchor with IndexLow and adds Slope index points per µg/m³.
type Breakpoint struct {
	ConcHigh float64
	Anchor   float64
	IndexLow float64
	Slope    float64
}

// Breakpoints is the fixed US EPA PM2.5 table, ordered by concentration
var Breakpoints = []Breakpoint{
	{ConcHigh: 12.0, Anchor: 0, IndexLow: 0, Slope: 50 / 12.0},
	{ConcHigh: 35.4, Anchor: 12.1, IndexLow: 50, Slope: 50 / 23.3},
	{ConcHigh: 55.4, Anchor: 35.5, IndexLow: 100, Slope: 50 / 19.9},
	{ConcHigh: 150.4, Anchor: 55.5, IndexLow: 150, Slope: 50 / 94.9},
	{ConcHigh: 250.4, Anchor: 150.5, IndexLow: 200, Slope: 100 / 99.9},
	{ConcHigh: math.Inf(1), Anchor: 250.5, IndexLow: 300, Slope: 200 / 249.9},
}

// Missing is the in-memory marker for an absent reading
func Missing() float64 {
	return math.NaN()
}

// IsMissing reports whether v marks an absent reading
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// Calculate converts a PM2.5 concentration (µg/m³) to the US AQI.
// A missing concentration yields a missing index.
func Calculate(pm25 float64) float64 {
	if IsMissing(pm25) {
		return Missing()
	}

	for _, bp := range Breakpoints {
		if pm25 <= bp.ConcHigh {
			index := bp.IndexLow + (pm25-bp.Anchor)*bp.Slope
			// (edge, anchor) gap would otherwise dip below the band floor
			return math.Max(index, bp.IndexLow)
		}
	}

	return Missing()
}

// CalculateAll applies Calculate elementwise
func CalculateAll(pm25 []float64) []float64 {
	out := make([]float64, len(pm25))
	for i, v := range pm25 {
		out[i] = Calculate(v)
	}
	return out
}
