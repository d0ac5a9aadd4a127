package model

import (
	"fmt"

	"github.com/smukkama/aqi-predictor/internal/features"
)

// Predictor applies a trained model to feature rows
type Predictor interface {
	Predict(columns []string, x [][]float64) ([]float64, error)
}

// remap returns, for each training column, its position in columns.
// The two column sets must be equal; order may differ.
func (m *Model) remap(columns []string) ([]int, error) {
	if len(columns) != len(m.Columns) {
		return nil, fmt.Errorf("%w: got %d columns, trained on %d",
			ErrSchemaMismatch, len(columns), len(m.Columns))
	}
	pos := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := pos[c]; dup {
			return nil, fmt.Errorf("%w: duplicate column %s", ErrSchemaMismatch, c)
		}
		pos[c] = i
	}
	idx := make([]int, len(m.Columns))
	for j, c := range m.Columns {
		i, ok := pos[c]
		if !ok {
			return nil, fmt.Errorf("%w: missing column %s", ErrSchemaMismatch, c)
		}
		idx[j] = i
	}
	return idx, nil
}

// Predict applies the ensemble to each row of x, whose columns are named by
// columns. Output is unbounded.
func (m *Model) Predict(columns []string, x [][]float64) ([]float64, error) {
	idx, err := m.remap(columns)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(x))
	vec := make([]float64, len(idx))
	for r, row := range x {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d values, expected %d",
				ErrSchemaMismatch, r, len(row), len(columns))
		}
		for j, i := range idx {
			vec[j] = row[i]
		}
		out[r] = m.Forest.Predict(vec)
	}
	return out, nil
}

// PredictRow reads the model's own columns from a feature row
func (m *Model) PredictRow(row features.Row) (float64, error) {
	vec, ok, err := features.Vector(row, m.Columns)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	if !ok {
		return 0, fmt.Errorf("row at %s has missing feature values", row.Time().Format("2006-01-02"))
	}
	return m.Forest.Predict(vec), nil
}
