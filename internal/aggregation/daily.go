// Package aggregation rolls stored hourly observations up into the daily
// feature table.
package aggregation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smukkama/aqi-predictor/internal/aqi"
	"github.com/smukkama/aqi-predictor/internal/database"
	"github.com/smukkama/aqi-predictor/internal/features"
)

// lookback is the prev_week_aqi lag. The window starts one day further
// back so the rewritten previous day keeps its own lag.
const lookback = 7

// ErrNoObservations is returned when the target date has no stored readings
var ErrNoObservations = errors.New("no observations for date")

// Store is the part of the database the aggregator uses
type Store interface {
	ObservationsBetween(ctx context.Context, locationID int64, from, to time.Time) ([]database.Observation, error)
	UpsertDailyFeature(ctx context.Context, d *database.DailyFeature) error
}

// DailyAggregator performs daily aggregation for one location
type DailyAggregator struct {
	store      Store
	locationID int64
	city       string
	loc        *time.Location
}

// NewDailyAggregator creates a new daily aggregator. Calendar dates are
// taken in loc.
func NewDailyAggregator(store Store, locationID int64, city string, loc *time.Location) *DailyAggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &DailyAggregator{store: store, locationID: locationID, city: city, loc: loc}
}

// Aggregate builds the daily row for targetDate and rewrites the row before
// it, whose next_day_aqi label is now known. It returns the rows written.
func (d *DailyAggregator) Aggregate(ctx context.Context, targetDate time.Time) ([]features.DailyRow, error) {
	y, m, day := targetDate.In(d.loc).Date()
	date := time.Date(y, m, day, 0, 0, 0, 0, d.loc)

	fmt.Printf("Running daily aggregation for %s\n", date.Format("2006-01-02"))

	from := date.AddDate(0, 0, -lookback-1)
	to := date.AddDate(0, 0, 2)
	stored, err := d.store.ObservationsBetween(ctx, d.locationID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily data: %w", err)
	}

	records := make([]aqi.Record, len(stored))
	for i := range stored {
		records[i] = stored[i].Record(d.city, d.loc)
	}

	rows, err := features.BuildDaily(records)
	if errors.Is(err, features.ErrNoRecords) {
		return nil, fmt.Errorf("%w %s", ErrNoObservations, date.Format("2006-01-02"))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily data: %w", err)
	}

	prev := date.AddDate(0, 0, -1)
	var written []features.DailyRow
	found := false
	for _, row := range rows {
		if !row.Date.Equal(date) && !row.Date.Equal(prev) {
			continue
		}
		if err := d.store.UpsertDailyFeature(ctx, database.NewDailyFeature(d.locationID, row)); err != nil {
			return written, err
		}
		if row.Date.Equal(date) {
			found = true
		}
		written = append(written, row)
	}
	if !found {
		return written, fmt.Errorf("%w %s", ErrNoObservations, date.Format("2006-01-02"))
	}

	fmt.Printf("Daily aggregation completed: %d dates written\n", len(written))
	return written, nil
}

// AggregatePreviousDay aggregates the last full day before now
func (d *DailyAggregator) AggregatePreviousDay(ctx context.Context, now time.Time) ([]features.DailyRow, error) {
	return d.Aggregate(ctx, now.In(d.loc).AddDate(0, 0, -1))
}
