package database

import (
	"math"
	"time"

	"github.com/smukkama/aqi-predictor/internal/aqi"
	"github.com/smukkama/aqi-predictor/internal/features"
)

// Location is the city the pipeline collects for
type Location struct {
	ID        int64     `db:"id"`
	CityName  string    `db:"city_name"`
	Lat       *float64  `db:"lat"`
	Lon       *float64  `db:"lon"`
	Timezone  *string   `db:"timezone"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Observation is one stored hourly reading
type Observation struct {
	ID          int64     `db:"id"`
	LocationID  int64     `db:"location_id"`
	ObservedAt  time.Time `db:"observed_at"`
	PM25        *float64  `db:"pm2_5"`
	PM10        *float64  `db:"pm10"`
	Ozone       *float64  `db:"ozone"`
	AQI         *float64  `db:"aqi"`
	AQICategory string    `db:"aqi_category"`
	RunID       *string   `db:"run_id"`
	ReceivedAt  time.Time `db:"received_at"`
}

// DailyFeature is one aggregated calendar date
type DailyFeature struct {
	ID          int64     `db:"id"`
	LocationID  int64     `db:"location_id"`
	Date        time.Time `db:"date"`
	DailyAvgAQI *float64  `db:"daily_avg_aqi"`
	DailyMaxAQI *float64  `db:"daily_max_aqi"`
	DailyMinAQI *float64  `db:"daily_min_aqi"`
	DailyStdAQI *float64  `db:"daily_std_aqi"`
	PM25Mean    *float64  `db:"pm2_5_mean"`
	PM10Mean    *float64  `db:"pm10_mean"`
	OzoneMean   *float64  `db:"ozone_mean"`
	DayOfWeek   int       `db:"day_of_week"`
	DayName     string    `db:"day_name"`
	PrevDayAQI  *float64  `db:"prev_day_aqi"`
	PrevWeekAQI *float64  `db:"prev_week_aqi"`
	NextDayAQI  *float64  `db:"next_day_aqi"`
	Samples     int       `db:"samples"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// ModelRun records one training run
type ModelRun struct {
	RunID       string    `db:"run_id"`
	TrainedAt   time.Time `db:"trained_at"`
	FeatureMode string    `db:"feature_mode"`
	Columns     string    `db:"columns"`
	TrainRows   int       `db:"train_rows"`
	TestRows    int       `db:"test_rows"`
	MAE         *float64  `db:"mae"`
	RMSE        *float64  `db:"rmse"`
	R2          *float64  `db:"r2"`
	Importances string    `db:"importances"` // JSON
	ModelPath   string    `db:"model_path"`
	CreatedAt   time.Time `db:"created_at"`
}

// Prediction is one stored forecast day
type Prediction struct {
	ID           int64     `db:"id"`
	LocationID   int64     `db:"location_id"`
	RunID        *string   `db:"run_id"`
	TargetDate   time.Time `db:"target_date"`
	PredictedAQI float64   `db:"predicted_aqi"`
	Category     string    `db:"category"`
	Source       string    `db:"source"`
	GeneratedAt  time.Time `db:"generated_at"`
}

// Nullable maps a missing reading to NULL
func Nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Value maps NULL back to a missing reading
func Value(p *float64) float64 {
	if p == nil {
		return aqi.Missing()
	}
	return *p
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// NewObservation converts a record for storage
func NewObservation(locationID int64, rec aqi.Record, runID string, receivedAt time.Time) *Observation {
	return &Observation{
		LocationID:  locationID,
		ObservedAt:  rec.Timestamp,
		PM25:        Nullable(rec.PM25),
		PM10:        Nullable(rec.PM10),
		Ozone:       Nullable(rec.Ozone),
		AQI:         Nullable(rec.AQI),
		AQICategory: string(rec.Category),
		RunID:       optionalString(runID),
		ReceivedAt:  receivedAt,
	}
}

// Record converts a stored observation back, in loc, recomputing the AQI
func (o *Observation) Record(city string, loc *time.Location) aqi.Record {
	if loc == nil {
		loc = time.UTC
	}
	return aqi.NewRecord(aqi.Observation{
		Timestamp: o.ObservedAt.In(loc),
		PM25:      Value(o.PM25),
		PM10:      Value(o.PM10),
		Ozone:     Value(o.Ozone),
		City:      city,
	})
}

// NewDailyFeature converts a daily row for storage
func NewDailyFeature(locationID int64, row features.DailyRow) *DailyFeature {
	return &DailyFeature{
		LocationID:  locationID,
		Date:        row.Date,
		DailyAvgAQI: Nullable(row.DailyAvgAQI),
		DailyMaxAQI: Nullable(row.DailyMaxAQI),
		DailyMinAQI: Nullable(row.DailyMinAQI),
		DailyStdAQI: Nullable(row.DailyStdAQI),
		PM25Mean:    Nullable(row.PM25Mean),
		PM10Mean:    Nullable(row.PM10Mean),
		OzoneMean:   Nullable(row.OzoneMean),
		DayOfWeek:   row.DayOfWeek,
		DayName:     row.DayName,
		PrevDayAQI:  Nullable(row.PrevDayAQI),
		PrevWeekAQI: Nullable(row.PrevWeekAQI),
		NextDayAQI:  Nullable(row.NextDayAQI),
		Samples:     row.Samples,
	}
}

// Row converts a stored daily feature back
func (d *DailyFeature) Row() features.DailyRow {
	return features.DailyRow{
		Date:        d.Date,
		DailyAvgAQI: Value(d.DailyAvgAQI),
		DailyMaxAQI: Value(d.DailyMaxAQI),
		DailyMinAQI: Value(d.DailyMinAQI),
		DailyStdAQI: Value(d.DailyStdAQI),
		PM25Mean:    Value(d.PM25Mean),
		PM10Mean:    Value(d.PM10Mean),
		OzoneMean:   Value(d.OzoneMean),
		DayOfWeek:   d.DayOfWeek,
		DayName:     d.DayName,
		PrevDayAQI:  Value(d.PrevDayAQI),
		PrevWeekAQI: Value(d.PrevWeekAQI),
		NextDayAQI:  Value(d.NextDayAQI),
		Samples:     d.Samples,
	}
}
