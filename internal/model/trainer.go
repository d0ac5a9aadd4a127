package model

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/smukkama/aqi-predictor/internal/features"
)

// DefaultTestFraction is the chronological hold-out share
const DefaultTestFraction = 0.2

// Trainer fits and evaluates models with fixed parameters
type Trainer struct {
	params       Params
	testFraction float64
	now          func() time.Time
}

// NewTrainer creates a trainer. A non-positive testFraction uses the default.
func NewTrainer(params Params, testFraction float64) *Trainer {
	if testFraction <= 0 || testFraction >= 1 {
		testFraction = DefaultTestFraction
	}
	return &Trainer{
		params:       params,
		testFraction: testFraction,
		now:          time.Now,
	}
}

// Split returns the train and test row counts for n rows. The test split is
// the last ceil(n*fraction) rows.
func Split(n int, fraction float64) (train, test int, err error) {
	if n < 2 {
		return 0, 0, fmt.Errorf("%w: %d usable rows, need at least 2", ErrInsufficientData, n)
	}
	test = int(math.Ceil(float64(n) * fraction))
	train = n - test
	if test == 0 || train == 0 {
		return 0, 0, fmt.Errorf("%w: %d rows give an empty split (train=%d test=%d)",
			ErrInsufficientData, n, train, test)
	}
	return train, test, nil
}

// Train splits the table chronologically, fits the ensemble on the head and
// evaluates it on the tail. No model is returned on error.
func (t *Trainer) Train(table *features.Table, target string) (*Model, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: no table", ErrInsufficientData)
	}
	nTrain, nTest, err := Split(table.Len(), t.testFraction)
	if err != nil {
		return nil, err
	}

	train := table.Slice(0, nTrain)
	test := table.Slice(nTrain, nTrain+nTest)

	forest, gains := fitForest(train.Matrix(), train.Y, t.params)

	m := &Model{
		RunID:     uuid.New().String(),
		TrainedAt: t.now().UTC(),
		Columns:   append([]string(nil), table.Columns...),
		Target:    target,
		Params:    t.params,
		Forest:    forest,
	}

	m.Importances = make([]Importance, len(gains))
	for i, g := range gains {
		m.Importances[i] = Importance{Feature: table.Columns[i], Importance: g}
	}
	sort.SliceStable(m.Importances, func(i, j int) bool {
		return m.Importances[i].Importance > m.Importances[j].Importance
	})

	pred := make([]float64, test.Len())
	for i, x := range test.X {
		pred[i] = forest.Predict(x)
	}
	m.Metrics = Evaluate(pred, test.Y)
	m.Metrics.TrainRows = nTrain

	return m, nil
}

// Evaluate computes MAE, RMSE and R² of predictions against actual values
func Evaluate(pred, actual []float64) Metrics {
	n := len(actual)
	m := Metrics{TestRows: n, MAE: math.NaN(), RMSE: math.NaN(), R2: math.NaN()}
	if n == 0 {
		return m
	}

	var absSum, sqSum float64
	for i := range actual {
		d := pred[i] - actual[i]
		absSum += math.Abs(d)
		sqSum += d * d
	}
	m.MAE = absSum / float64(n)
	m.RMSE = math.Sqrt(sqSum / float64(n))
	if n >= 2 {
		m.R2 = stat.RSquaredFrom(pred, actual, nil)
	}
	return m
}
