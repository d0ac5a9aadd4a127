// Package features turns time-ordered AQI records into supervised-learning
// tables: one row per hour (lags, rolling means, calendar fields) or one row
// per calendar date (aggregates, previous-day and previous-week lags).
package features

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/smukkama/aqi-predictor/internal/aqi"
)

var (
	// ErrNoRecords is returned when a builder receives an empty sequence
	ErrNoRecords = errors.New("no records to build features from")
	// ErrUnsortedInput is returned when timestamps are not strictly ascending
	ErrUnsortedInput = errors.New("records must be sorted ascending by timestamp with no duplicates")
	// ErrUnknownColumn is returned when a table asks for a column a row does not have
	ErrUnknownColumn = errors.New("unknown feature column")
)

// ValidateOrder checks the builders' input contract
func ValidateOrder(records []aqi.Record) error {
	if len(records) == 0 {
		return ErrNoRecords
	}
	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1].Timestamp, records[i].Timestamp
		if !cur.After(prev) {
			return fmt.Errorf("%w: row %d at %s does not follow %s",
				ErrUnsortedInput, i, cur.Format(time.RFC3339), prev.Format(time.RFC3339))
		}
	}
	return nil
}

// dateOf truncates a timestamp to midnight of its calendar date in its own location
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// dayOfWeek numbers days Monday=0 .. Sunday=6
func dayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func isWeekend(t time.Time) bool {
	return dayOfWeek(t) >= 5
}

// meanOf averages the non-missing values; all-missing gives missing
func meanOf(values []float64) float64 {
	var sum float64
	var n int
	for _, v := range values {
		if aqi.IsMissing(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return aqi.Missing()
	}
	return sum / float64(n)
}

func present(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !aqi.IsMissing(v) {
			out = append(out, v)
		}
	}
	return out
}

// round2 rounds half-to-even at two decimals; missing stays missing
func round2(v float64) float64 {
	if aqi.IsMissing(v) {
		return v
	}
	return math.RoundToEven(v*100) / 100
}

// lag returns values shifted down by n rows, missing where no row precedes
func lag(values []float64, n int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i-n < 0 || i-n >= len(values) {
			out[i] = aqi.Missing()
			continue
		}
		out[i] = values[i-n]
	}
	return out
}

// rollingMean is the trailing mean over window rows. It is missing until a
// full window exists and whenever the window holds a missing value.
func rollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i+1 < window {
			out[i] = aqi.Missing()
			continue
		}
		var sum float64
		complete := true
		for _, v := range values[i+1-window : i+1] {
			if aqi.IsMissing(v) {
				complete = false
				break
			}
			sum += v
		}
		if !complete {
			out[i] = aqi.Missing()
			continue
		}
		out[i] = sum / float64(window)
	}
	return out
}
