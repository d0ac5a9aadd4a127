package features

import (
	"fmt"
	"time"

	"github.com/smukkama/aqi-predictor/internal/aqi"
)

// LabelMode selects how the hourly next-day label is derived
type LabelMode string

const (
	// LabelNextDay labels each row with the mean AQI of the following calendar date
	LabelNextDay LabelMode = "next_day"
	// LabelShiftedGroup reproduces the group-mean of a 24-row forward shift
	// taken inside each date group. At hourly cadence a date has at most 24
	// rows, so this label is missing everywhere.
	LabelShiftedGroup LabelMode = "shifted_group"
)

// ParseLabelMode accepts the config spelling of a label mode
func ParseLabelMode(s string) (LabelMode, error) {
	switch LabelMode(s) {
	case LabelNextDay, LabelShiftedGroup:
		return LabelMode(s), nil
	default:
		return "", fmt.Errorf("unknown label mode: %s", s)
	}
}

const (
	shortWindow = 6
	longWindow  = 24
	labelShift  = 24
)

// HourlyRow is one record with calendar, lag and rolling features attached
type HourlyRow struct {
	aqi.Record
	Hour          int
	DayOfWeek     int
	Month         int
	IsWeekend     bool
	PM25Lag1h     float64
	PM25Lag24h    float64
	PM25Avg6h     float64
	PM25Avg24h    float64
	DailyAvgAQI   float64
	NextDayAvgAQI float64
}

// Time returns the row timestamp
func (r HourlyRow) Time() time.Time {
	return r.Timestamp
}

// Label returns the next-day target
func (r HourlyRow) Label() float64 {
	return r.NextDayAvgAQI
}

// Value looks a column up by its table name
func (r HourlyRow) Value(column string) (float64, bool) {
	switch column {
	case "pm2_5":
		return r.PM25, true
	case "pm10":
		return r.PM10, true
	case "ozone":
		return r.Ozone, true
	case "aqi":
		return r.AQI, true
	case "hour":
		return float64(r.Hour), true
	case "day_of_week":
		return float64(r.DayOfWeek), true
	case "month":
		return float64(r.Month), true
	case "is_weekend":
		if r.IsWeekend {
			return 1, true
		}
		return 0, true
	case "pm2_5_lag_1h":
		return r.PM25Lag1h, true
	case "pm2_5_lag_24h":
		return r.PM25Lag24h, true
	case "pm2_5_6h_avg":
		return r.PM25Avg6h, true
	case "pm2_5_24h_avg":
		return r.PM25Avg24h, true
	case "daily_avg_aqi":
		return r.DailyAvgAQI, true
	case "next_day_avg_aqi":
		return r.NextDayAvgAQI, true
	default:
		return 0, false
	}
}

// HourlyColumns is the default hourly feature set
var HourlyColumns = []string{
	"hour", "day_of_week", "month", "is_weekend",
	"pm2_5", "pm10",
	"pm2_5_lag_1h", "pm2_5_lag_24h",
	"pm2_5_6h_avg", "pm2_5_24h_avg",
	"daily_avg_aqi",
}

// HourlyTarget is the hourly label column
const HourlyTarget = "next_day_avg_aqi"

// BuildHourly derives the hourly feature table. Lags and rolling means follow
// row order, so records must be strictly ascending by timestamp.
func BuildHourly(records []aqi.Record, mode LabelMode) ([]HourlyRow, error) {
	if err := ValidateOrder(records); err != nil {
		return nil, err
	}
	if mode == "" {
		mode = LabelNextDay
	}
	if _, err := ParseLabelMode(string(mode)); err != nil {
		return nil, err
	}

	pm25 := make([]float64, len(records))
	for i, r := range records {
		pm25[i] = r.PM25
	}
	lag1 := lag(pm25, 1)
	lag24 := lag(pm25, 24)
	avg6 := rollingMean(pm25, shortWindow)
	avg24 := rollingMean(pm25, longWindow)

	// Row indexes per calendar date, in row order
	groups := make(map[string][]int)
	for i, r := range records {
		key := dateKey(dateOf(r.Timestamp))
		groups[key] = append(groups[key], i)
	}

	dailyMean := make(map[string]float64, len(groups))
	for key, idx := range groups {
		values := make([]float64, len(idx))
		for j, i := range idx {
			values[j] = records[i].AQI
		}
		dailyMean[key] = meanOf(values)
	}

	labels := make(map[string]float64, len(groups))
	for key, idx := range groups {
		switch mode {
		case LabelShiftedGroup:
			labels[key] = shiftedGroupMean(records, idx)
		default:
			next := dateKey(dateOf(records[idx[0]].Timestamp).AddDate(0, 0, 1))
			if m, ok := dailyMean[next]; ok {
				labels[key] = m
			} else {
				labels[key] = aqi.Missing()
			}
		}
	}

	rows := make([]HourlyRow, len(records))
	for i, r := range records {
		key := dateKey(dateOf(r.Timestamp))
		rows[i] = HourlyRow{
			Record:        r,
			Hour:          r.Timestamp.Hour(),
			DayOfWeek:     dayOfWeek(r.Timestamp),
			Month:         int(r.Timestamp.Month()),
			IsWeekend:     isWeekend(r.Timestamp),
			PM25Lag1h:     lag1[i],
			PM25Lag24h:    lag24[i],
			PM25Avg6h:     avg6[i],
			PM25Avg24h:    avg24[i],
			DailyAvgAQI:   dailyMean[key],
			NextDayAvgAQI: labels[key],
		}
	}

	return rows, nil
}

// shiftedGroupMean shifts the group's AQI values 24 rows forward inside the
// group and averages whatever is left
func shiftedGroupMean(records []aqi.Record, idx []int) float64 {
	shifted := make([]float64, 0, len(idx))
	for j := range idx {
		if j+labelShift < len(idx) {
			shifted = append(shifted, records[idx[j+labelShift]].AQI)
		}
	}
	return meanOf(shifted)
}
