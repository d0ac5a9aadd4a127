// Package model fits, evaluates, persists and applies the next-day AQI
// regressor: a bagged ensemble of CART regression trees over a
// features.Table.
package model

import (
	"encoding/json"
	"errors"
	"math"
	"time"
)

var (
	// ErrInsufficientData is returned when a table is too small to split
	ErrInsufficientData = errors.New("insufficient data to train")
	// ErrSchemaMismatch is returned when predict-time columns differ from training
	ErrSchemaMismatch = errors.New("feature columns do not match the trained model")
	// ErrModelNotFound is returned by Load when no model file exists
	ErrModelNotFound = errors.New("model file not found")
)

// Importance is one entry of the ranked importance table
type Importance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// Metrics are the held-out evaluation results. R2 is NaN when the test
// split has fewer than two rows; non-finite values encode as null.
type Metrics struct {
	MAE       float64
	RMSE      float64
	R2        float64
	TrainRows int
	TestRows  int
}

type metricsJSON struct {
	MAE       *float64 `json:"mae"`
	RMSE      *float64 `json:"rmse"`
	R2        *float64 `json:"r2"`
	TrainRows int      `json:"train_rows"`
	TestRows  int      `json:"test_rows"`
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func orNaN(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// MarshalJSON writes non-finite metrics as null
func (m Metrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(metricsJSON{
		MAE:       finite(m.MAE),
		RMSE:      finite(m.RMSE),
		R2:        finite(m.R2),
		TrainRows: m.TrainRows,
		TestRows:  m.TestRows,
	})
}

// UnmarshalJSON reads null metrics back as NaN
func (m *Metrics) UnmarshalJSON(data []byte) error {
	var raw metricsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Metrics{
		MAE:       orNaN(raw.MAE),
		RMSE:      orNaN(raw.RMSE),
		R2:        orNaN(raw.R2),
		TrainRows: raw.TrainRows,
		TestRows:  raw.TestRows,
	}
	return nil
}

// Model is a trained ensemble together with the schema it was trained on
type Model struct {
	RunID       string       `json:"run_id"`
	TrainedAt   time.Time    `json:"trained_at"`
	Columns     []string     `json:"columns"`
	Target      string       `json:"target,omitempty"`
	Params      Params       `json:"params"`
	Forest      *Forest      `json:"forest"`
	Importances []Importance `json:"importances"`
	Metrics     Metrics      `json:"metrics"`
}
