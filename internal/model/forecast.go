package model

import (
	"errors"
	"math"
	"time"

	"github.com/smukkama/aqi-predictor/internal/aqi"
	"github.com/smukkama/aqi-predictor/internal/features"
)

// DefaultHorizon is the number of forecast days
const DefaultHorizon = 3

// Forecast sources
const (
	SourceModel     = "model"
	SourceHeuristic = "heuristic"
)

// decay scales the current AQI when no model can be applied
var decay = []float64{0.95, 0.92, 0.90}

// ErrNoForecast is returned when neither a model nor a current AQI is available
var ErrNoForecast = errors.New("no model and no current AQI to forecast from")

// Day is one forecast entry
type Day struct {
	Date         time.Time    `json:"date"`
	DayName      string       `json:"day_name"`
	PredictedAQI float64      `json:"predicted_aqi"`
	Category     aqi.Category `json:"category"`
	Source       string       `json:"source"`
}

func newDay(date time.Time, value float64, source string) Day {
	value = math.Round(value*10) / 10
	return Day{
		Date:         date,
		DayName:      date.Weekday().String(),
		PredictedAQI: value,
		Category:     aqi.CategoryOf(value),
		Source:       source,
	}
}

// Forecast predicts the next days after the last daily row. With a model
// the prediction for each day is fed back as the next day's daily mean.
// Without a model, or when the last row cannot be scored, it falls back to
// decaying currentAQI from today.
func Forecast(m *Model, rows []features.DailyRow, currentAQI float64, days int, now time.Time) ([]Day, error) {
	if days <= 0 {
		days = DefaultHorizon
	}

	if m != nil && len(rows) > 0 {
		if out, err := rollForward(m, rows, days); err == nil {
			return out, nil
		}
	}

	if aqi.IsMissing(currentAQI) {
		return nil, ErrNoForecast
	}
	return Heuristic(currentAQI, days, now), nil
}

func rollForward(m *Model, rows []features.DailyRow, days int) ([]Day, error) {
	history := make([]float64, len(rows))
	for i, r := range rows {
		history[i] = r.DailyAvgAQI
	}

	cur := rows[len(rows)-1]
	out := make([]Day, 0, days)
	for d := 0; d < days; d++ {
		pred, err := m.PredictRow(cur)
		if err != nil {
			return nil, err
		}
		cur = cur.Advance(pred)
		history = append(history, pred)
		if k := len(history) - 8; k >= 0 {
			cur.PrevWeekAQI = history[k]
		}
		out = append(out, newDay(cur.Date, pred, SourceModel))
	}
	return out, nil
}

// Heuristic decays the current AQI over the following days
func Heuristic(currentAQI float64, days int, now time.Time) []Day {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	out := make([]Day, days)
	for d := range out {
		f := decay[len(decay)-1]
		if d < len(decay) {
			f = decay[d]
		}
		out[d] = newDay(today.AddDate(0, 0, d+1), currentAQI*f, SourceHeuristic)
	}
	return out
}
