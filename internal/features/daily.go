package features

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/smukkama/aqi-predictor/internal/aqi"
)

// DailyRow aggregates one calendar date of records
type DailyRow struct {
	Date        time.Time
	DailyAvgAQI float64
	DailyMaxAQI float64
	DailyMinAQI float64
	DailyStdAQI float64
	PM25Mean    float64
	PM10Mean    float64
	OzoneMean   float64
	DayOfWeek   int
	DayName     string
	PrevDayAQI  float64
	PrevWeekAQI float64
	NextDayAQI  float64
	Samples     int
}

func (r DailyRow) Time() time.Time {
	return r.Date
}

func (r DailyRow) Label() float64 {
	return r.NextDayAQI
}

func (r DailyRow) Value(column string) (float64, bool) {
	switch column {
	case "daily_avg_aqi":
		return r.DailyAvgAQI, true
	case "daily_max_aqi":
		return r.DailyMaxAQI, true
	case "daily_min_aqi":
		return r.DailyMinAQI, true
	case "daily_std_aqi":
		return r.DailyStdAQI, true
	case "pm2_5_mean":
		return r.PM25Mean, true
	case "pm10_mean":
		return r.PM10Mean, true
	case "ozone_mean":
		return r.OzoneMean, true
	case "day_of_week":
		return float64(r.DayOfWeek), true
	case "prev_day_aqi":
		return r.PrevDayAQI, true
	case "prev_week_aqi":
		return r.PrevWeekAQI, true
	case "next_day_aqi":
		return r.NextDayAQI, true
	default:
		return 0, false
	}
}

// DailyColumns is the default daily feature set
var DailyColumns = []string{
	"daily_avg_aqi", "pm2_5_mean", "pm10_mean", "day_of_week", "prev_day_aqi",
}

// DailyTarget is the daily label column
const DailyTarget = "next_day_aqi"

// BuildDaily groups records by calendar date and derives the daily table,
// sorted ascending by date. Lags and the lead label follow that row order.
func BuildDaily(records []aqi.Record) ([]DailyRow, error) {
	if err := ValidateOrder(records); err != nil {
		return nil, err
	}

	type bucket struct {
		date                time.Time
		aqi, pm25, pm10, o3 []float64
	}

	// Input is ascending, so buckets are created in date order
	var buckets []*bucket
	byKey := make(map[string]*bucket)
	for _, r := range records {
		date := dateOf(r.Timestamp)
		key := dateKey(date)
		b, ok := byKey[key]
		if !ok {
			b = &bucket{date: date}
			byKey[key] = b
			buckets = append(buckets, b)
		}
		b.aqi = append(b.aqi, r.AQI)
		b.pm25 = append(b.pm25, r.PM25)
		b.pm10 = append(b.pm10, r.PM10)
		b.o3 = append(b.o3, r.Ozone)
	}

	rows := make([]DailyRow, len(buckets))
	for i, b := range buckets {
		row := DailyRow{
			Date:        b.date,
			DailyAvgAQI: round2(meanOf(b.aqi)),
			DailyMaxAQI: aqi.Missing(),
			DailyMinAQI: aqi.Missing(),
			DailyStdAQI: aqi.Missing(),
			PM25Mean:    round2(meanOf(b.pm25)),
			PM10Mean:    round2(meanOf(b.pm10)),
			OzoneMean:   round2(meanOf(b.o3)),
			DayOfWeek:   dayOfWeek(b.date),
			DayName:     b.date.Weekday().String(),
			Samples:     len(b.aqi),
		}
		if values := present(b.aqi); len(values) > 0 {
			row.DailyMaxAQI = round2(floats.Max(values))
			row.DailyMinAQI = round2(floats.Min(values))
			row.DailyStdAQI = round2(stat.PopStdDev(values, nil))
		}
		rows[i] = row
	}

	avg := make([]float64, len(rows))
	for i, r := range rows {
		avg[i] = r.DailyAvgAQI
	}
	prevDay := lag(avg, 1)
	prevWeek := lag(avg, 7)
	next := lag(avg, -1)
	for i := range rows {
		rows[i].PrevDayAQI = prevDay[i]
		rows[i].PrevWeekAQI = prevWeek[i]
		rows[i].NextDayAQI = next[i]
	}

	return rows, nil
}

// Advance returns the row for the following date with avg as its daily mean.
// Pollutant means and spread carry over; prev_week_aqi is left missing for
// the caller to fill from history.
func (r DailyRow) Advance(avg float64) DailyRow {
	date := r.Date.AddDate(0, 0, 1)
	next := r
	next.Date = date
	next.DailyAvgAQI = avg
	next.DayOfWeek = dayOfWeek(date)
	next.DayName = date.Weekday().String()
	next.PrevDayAQI = r.DailyAvgAQI
	next.PrevWeekAQI = aqi.Missing()
	next.NextDayAQI = aqi.Missing()
	next.Samples = 0
	return next
}
