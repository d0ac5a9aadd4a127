package features

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/smukkama/aqi-predictor/internal/aqi"
)

// Row is anything a Table can be extracted from
type Row interface {
	Value(column string) (float64, bool)
	Label() float64
	Time() time.Time
}

// Table is a numeric feature matrix with an aligned target vector. Rows with
// any missing feature or a missing label are dropped on extraction.
type Table struct {
	Columns []string
	X       [][]float64
	Y       []float64
	Index   []time.Time
	Dropped int
}

// Len is the number of usable rows
func (t *Table) Len() int {
	return len(t.X)
}

// Matrix copies X into a dense matrix. An empty table gives nil.
func (t *Table) Matrix() *mat.Dense {
	if len(t.X) == 0 {
		return nil
	}
	data := make([]float64, 0, len(t.X)*len(t.Columns))
	for _, row := range t.X {
		data = append(data, row...)
	}
	return mat.NewDense(len(t.X), len(t.Columns), data)
}

// Slice returns rows [from, to) sharing the underlying row slices
func (t *Table) Slice(from, to int) *Table {
	return &Table{
		Columns: t.Columns,
		X:       t.X[from:to],
		Y:       t.Y[from:to],
		Index:   t.Index[from:to],
	}
}

// NewTable extracts the named columns and the label from rows
func NewTable[R Row](rows []R, columns []string) (*Table, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: no columns selected", ErrUnknownColumn)
	}

	t := &Table{Columns: append([]string(nil), columns...)}
	for _, r := range rows {
		vec, ok, err := Vector(r, columns)
		if err != nil {
			return nil, err
		}
		label := r.Label()
		if !ok || aqi.IsMissing(label) {
			t.Dropped++
			continue
		}
		t.X = append(t.X, vec)
		t.Y = append(t.Y, label)
		t.Index = append(t.Index, r.Time())
	}

	return t, nil
}

// Vector reads the columns of a single row. ok is false when any value is missing.
func Vector(r Row, columns []string) (vec []float64, ok bool, err error) {
	vec = make([]float64, len(columns))
	ok = true
	for j, col := range columns {
		v, known := r.Value(col)
		if !known {
			return nil, false, fmt.Errorf("%w: %s", ErrUnknownColumn, col)
		}
		if aqi.IsMissing(v) {
			ok = false
		}
		vec[j] = v
	}
	return vec, ok, nil
}

// DailyTable extracts the default daily feature set
func DailyTable(rows []DailyRow) (*Table, error) {
	return NewTable(rows, DailyColumns)
}

// HourlyTable extracts the default hourly feature set
func HourlyTable(rows []HourlyRow) (*Table, error) {
	return NewTable(rows, HourlyColumns)
}
