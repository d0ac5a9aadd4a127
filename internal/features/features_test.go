package features

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/smukkama/aqi-predictor/internal/aqi"
)

var day1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) // a Monday

// hourlyRecords builds n hourly records starting at day1 with pm2.5 from fn
func hourlyRecords(n int, fn func(i int) float64) []aqi.Record {
	obs := make([]aqi.Observation, n)
	for i := range obs {
		obs[i] = aqi.Observation{
			Timestamp: day1.Add(time.Duration(i) * time.Hour),
			PM25:      fn(i),
			PM10:      fn(i) * 2,
			Ozone:     aqi.Missing(),
			City:      "Karachi",
		}
	}
	return aqi.Enrich(obs)
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBuildHourly_Lag24DefinedForNMinus24Rows(t *testing.T) {
	records := hourlyRecords(30, func(i int) float64 { return float64(i + 1) })
	rows, err := BuildHourly(records, LabelNextDay)
	if err != nil {
		t.Fatalf("BuildHourly failed: %v", err)
	}

	defined := 0
	for i, r := range rows {
		if aqi.IsMissing(r.PM25Lag24h) {
			continue
		}
		defined++
		if r.PM25Lag24h != records[i-24].PM25 {
			t.Errorf("Row %d: expected lag-24 %v, got %v", i, records[i-24].PM25, r.PM25Lag24h)
		}
	}
	if defined != 6 {
		t.Errorf("Expected lag-24 defined for 6 rows, got %d", defined)
	}

	if !aqi.IsMissing(rows[0].PM25Lag1h) {
		t.Errorf("Expected lag-1 missing on first row, got %v", rows[0].PM25Lag1h)
	}
	if rows[1].PM25Lag1h != 1 {
		t.Errorf("Expected lag-1 of row 1 to be 1, got %v", rows[1].PM25Lag1h)
	}
}

func TestBuildHourly_RollingMeans(t *testing.T) {
	records := hourlyRecords(30, func(i int) float64 {
		if i == 10 {
			return aqi.Missing()
		}
		return float64(i + 1)
	})
	rows, err := BuildHourly(records, LabelNextDay)
	if err != nil {
		t.Fatalf("BuildHourly failed: %v", err)
	}

	if !aqi.IsMissing(rows[4].PM25Avg6h) {
		t.Errorf("Expected 6h mean missing before a full window, got %v", rows[4].PM25Avg6h)
	}
	if !approx(rows[5].PM25Avg6h, 3.5) {
		t.Errorf("Expected 6h mean 3.5 at row 5, got %v", rows[5].PM25Avg6h)
	}
	for i := 10; i <= 15; i++ {
		if !aqi.IsMissing(rows[i].PM25Avg6h) {
			t.Errorf("Row %d: expected 6h mean missing with a gap in the window, got %v", i, rows[i].PM25Avg6h)
		}
	}
	if !approx(rows[16].PM25Avg6h, (12+13+14+15+16+17)/6.0) {
		t.Errorf("Expected 6h mean to recover at row 16, got %v", rows[16].PM25Avg6h)
	}
	if !aqi.IsMissing(rows[23].PM25Avg24h) {
		t.Errorf("Expected 24h mean missing while the gap is in the window, got %v", rows[23].PM25Avg24h)
	}
}

func TestBuildHourly_CalendarFields(t *testing.T) {
	records := hourlyRecords(24*7, func(i int) float64 { return 20 })
	rows, err := BuildHourly(records, LabelNextDay)
	if err != nil {
		t.Fatalf("BuildHourly failed: %v", err)
	}

	r := rows[24*5+13] // Saturday 13:00
	if r.Hour != 13 {
		t.Errorf("Expected hour 13, got %d", r.Hour)
	}
	if r.DayOfWeek != 5 {
		t.Errorf("Expected day_of_week 5 (Saturday), got %d", r.DayOfWeek)
	}
	if !r.IsWeekend {
		t.Error("Expected Saturday to be a weekend")
	}
	if rows[0].DayOfWeek != 0 || rows[0].IsWeekend {
		t.Errorf("Expected Monday=0 weekday, got %d weekend=%v", rows[0].DayOfWeek, rows[0].IsWeekend)
	}
	if r.Month != 1 {
		t.Errorf("Expected month 1, got %d", r.Month)
	}
}

func TestBuildHourly_DailyMeanAndNextDayLabel(t *testing.T) {
	records := hourlyRecords(48, func(i int) float64 {
		if i < 24 {
			return 10
		}
		return float64(i - 20)
	})
	rows, err := BuildHourly(records, LabelNextDay)
	if err != nil {
		t.Fatalf("BuildHourly failed: %v", err)
	}

	var sum2 float64
	for _, r := range records[24:] {
		sum2 += r.AQI
	}
	mean2 := sum2 / 24

	if !approx(rows[0].DailyAvgAQI, aqi.Calculate(10)) {
		t.Errorf("Expected day 1 mean %v, got %v", aqi.Calculate(10), rows[0].DailyAvgAQI)
	}
	if !approx(rows[30].DailyAvgAQI, mean2) {
		t.Errorf("Expected day 2 mean %v, got %v", mean2, rows[30].DailyAvgAQI)
	}
	for i := 0; i < 24; i++ {
		if !approx(rows[i].NextDayAvgAQI, mean2) {
			t.Fatalf("Row %d: expected next-day label %v, got %v", i, mean2, rows[i].NextDayAvgAQI)
		}
	}
	for i := 24; i < 48; i++ {
		if !aqi.IsMissing(rows[i].NextDayAvgAQI) {
			t.Fatalf("Row %d: expected missing label on the final day, got %v", i, rows[i].NextDayAvgAQI)
		}
	}
}

func TestBuildHourly_ShiftedGroupLabelIsMissingAtHourlyCadence(t *testing.T) {
	records := hourlyRecords(72, func(i int) float64 { return float64(i%30 + 5) })
	rows, err := BuildHourly(records, LabelShiftedGroup)
	if err != nil {
		t.Fatalf("BuildHourly failed: %v", err)
	}
	for i, r := range rows {
		if !aqi.IsMissing(r.NextDayAvgAQI) {
			t.Fatalf("Row %d: expected missing shifted-group label, got %v", i, r.NextDayAvgAQI)
		}
	}
}

func TestShiftedGroupMean_DenseGroup(t *testing.T) {
	// 30 rows on one date: only the last 6 survive a 24-row shift
	obs := make([]aqi.Observation, 30)
	for i := range obs {
		obs[i] = aqi.Observation{Timestamp: day1.Add(time.Duration(i) * time.Minute), PM25: float64(i)}
	}
	records := aqi.Enrich(obs)
	idx := make([]int, 30)
	for i := range idx {
		idx[i] = i
	}

	var want float64
	for _, r := range records[24:] {
		want += r.AQI
	}
	want /= 6

	if got := shiftedGroupMean(records, idx); !approx(got, want) {
		t.Errorf("Expected shifted mean %v, got %v", want, got)
	}
}

func TestBuildHourly_RejectsBadOrder(t *testing.T) {
	records := hourlyRecords(5, func(i int) float64 { return 10 })

	swapped := append([]aqi.Record(nil), records...)
	swapped[1], swapped[2] = swapped[2], swapped[1]
	if _, err := BuildHourly(swapped, LabelNextDay); !errors.Is(err, ErrUnsortedInput) {
		t.Errorf("Expected ErrUnsortedInput for swapped rows, got %v", err)
	}

	dup := append([]aqi.Record(nil), records...)
	dup[3].Timestamp = dup[2].Timestamp
	if _, err := BuildDaily(dup); !errors.Is(err, ErrUnsortedInput) {
		t.Errorf("Expected ErrUnsortedInput for duplicate timestamps, got %v", err)
	}

	if _, err := BuildHourly(nil, LabelNextDay); !errors.Is(err, ErrNoRecords) {
		t.Errorf("Expected ErrNoRecords, got %v", err)
	}

	if _, err := BuildHourly(records, LabelMode("bogus")); err == nil {
		t.Error("Expected error for unknown label mode")
	}
}

func TestBuildDaily_TwoFullDays(t *testing.T) {
	records := hourlyRecords(48, func(i int) float64 {
		if i < 24 {
			return float64(i)
		}
		return 30
	})
	rows, err := BuildDaily(records)
	if err != nil {
		t.Fatalf("BuildDaily failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 daily rows, got %d", len(rows))
	}

	var sum float64
	for _, r := range records[:24] {
		sum += r.AQI
	}
	want := round2(sum / 24)

	if rows[0].DailyAvgAQI != want {
		t.Errorf("Expected day 1 avg %v, got %v", want, rows[0].DailyAvgAQI)
	}
	if rows[1].PrevDayAQI != rows[0].DailyAvgAQI {
		t.Errorf("Expected day 2 prev_day_aqi %v, got %v", rows[0].DailyAvgAQI, rows[1].PrevDayAQI)
	}
	if !aqi.IsMissing(rows[0].PrevDayAQI) {
		t.Errorf("Expected missing prev_day_aqi on first row, got %v", rows[0].PrevDayAQI)
	}
	if rows[0].NextDayAQI != rows[1].DailyAvgAQI {
		t.Errorf("Expected day 1 next_day_aqi %v, got %v", rows[1].DailyAvgAQI, rows[0].NextDayAQI)
	}
	if !aqi.IsMissing(rows[1].NextDayAQI) {
		t.Errorf("Expected missing next_day_aqi on last row, got %v", rows[1].NextDayAQI)
	}
	if rows[1].DailyStdAQI != 0 {
		t.Errorf("Expected zero std for a constant day, got %v", rows[1].DailyStdAQI)
	}
	if !aqi.IsMissing(rows[0].OzoneMean) {
		t.Errorf("Expected missing ozone mean, got %v", rows[0].OzoneMean)
	}
	if rows[0].DayName != "Monday" || rows[0].DayOfWeek != 0 {
		t.Errorf("Expected Monday/0, got %s/%d", rows[0].DayName, rows[0].DayOfWeek)
	}
	if rows[0].Samples != 24 {
		t.Errorf("Expected 24 samples, got %d", rows[0].Samples)
	}
}

func TestBuildDaily_PopulationStdAndExtremes(t *testing.T) {
	// AQI alternates 0 and 50: population std 25 (sample std would be ~25.53)
	records := hourlyRecords(24, func(i int) float64 {
		if i%2 == 0 {
			return 0
		}
		return 12.0
	})
	rows, err := BuildDaily(records)
	if err != nil {
		t.Fatalf("BuildDaily failed: %v", err)
	}

	r := rows[0]
	if r.DailyAvgAQI != 25 {
		t.Errorf("Expected avg 25, got %v", r.DailyAvgAQI)
	}
	if r.DailyStdAQI != 25 {
		t.Errorf("Expected population std 25, got %v", r.DailyStdAQI)
	}
	if r.DailyMaxAQI != 50 || r.DailyMinAQI != 0 {
		t.Errorf("Expected max 50 / min 0, got %v / %v", r.DailyMaxAQI, r.DailyMinAQI)
	}
	if r.PM25Mean != 6 {
		t.Errorf("Expected pm2.5 mean 6, got %v", r.PM25Mean)
	}
}

func TestBuildDaily_PrevWeek(t *testing.T) {
	records := hourlyRecords(24*9, func(i int) float64 { return float64(i/24 + 1) })
	rows, err := BuildDaily(records)
	if err != nil {
		t.Fatalf("BuildDaily failed: %v", err)
	}
	if len(rows) != 9 {
		t.Fatalf("Expected 9 rows, got %d", len(rows))
	}
	for i := 0; i < 7; i++ {
		if !aqi.IsMissing(rows[i].PrevWeekAQI) {
			t.Errorf("Row %d: expected missing prev_week_aqi, got %v", i, rows[i].PrevWeekAQI)
		}
	}
	if rows[7].PrevWeekAQI != rows[0].DailyAvgAQI {
		t.Errorf("Expected prev_week_aqi %v, got %v", rows[0].DailyAvgAQI, rows[7].PrevWeekAQI)
	}
}

func TestBuildDaily_SkipsMissingReadings(t *testing.T) {
	records := hourlyRecords(24, func(i int) float64 {
		if i < 12 {
			return aqi.Missing()
		}
		return 10
	})
	rows, err := BuildDaily(records)
	if err != nil {
		t.Fatalf("BuildDaily failed: %v", err)
	}
	if rows[0].DailyAvgAQI != round2(aqi.Calculate(10)) {
		t.Errorf("Expected mean over present readings, got %v", rows[0].DailyAvgAQI)
	}
}

func TestNewTable_DropsIncompleteRows(t *testing.T) {
	records := hourlyRecords(24*4, func(i int) float64 { return float64(i%24 + 3) })
	rows, err := BuildDaily(records)
	if err != nil {
		t.Fatalf("BuildDaily failed: %v", err)
	}

	table, err := DailyTable(rows)
	if err != nil {
		t.Fatalf("DailyTable failed: %v", err)
	}
	// first row lacks prev_day_aqi, last row lacks the label
	if table.Len() != 2 {
		t.Errorf("Expected 2 usable rows, got %d", table.Len())
	}
	if table.Dropped != 2 {
		t.Errorf("Expected 2 dropped rows, got %d", table.Dropped)
	}
	if len(table.X[0]) != len(DailyColumns) {
		t.Errorf("Expected %d columns, got %d", len(DailyColumns), len(table.X[0]))
	}
	if !table.Index[0].Equal(rows[1].Date) {
		t.Errorf("Expected first index %v, got %v", rows[1].Date, table.Index[0])
	}

	m := table.Matrix()
	r, c := m.Dims()
	if r != 2 || c != len(DailyColumns) {
		t.Errorf("Expected 2x%d matrix, got %dx%d", len(DailyColumns), r, c)
	}
}

func TestNewTable_UnknownColumn(t *testing.T) {
	rows := SampleDaily(5, 1, day1)
	_, err := NewTable(rows, []string{"daily_avg_aqi", "wind_speed"})
	if !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("Expected ErrUnknownColumn, got %v", err)
	}
}

func TestHourlyTable(t *testing.T) {
	records := hourlyRecords(24*3, func(i int) float64 { return float64(i%17 + 4) })
	rows, err := BuildHourly(records, LabelNextDay)
	if err != nil {
		t.Fatalf("BuildHourly failed: %v", err)
	}
	table, err := HourlyTable(rows)
	if err != nil {
		t.Fatalf("HourlyTable failed: %v", err)
	}
	// day 1 lacks lag-24, day 3 lacks the label: only day 2 survives
	if table.Len() != 24 {
		t.Errorf("Expected 24 usable rows, got %d", table.Len())
	}
}

func TestSampleDaily_Deterministic(t *testing.T) {
	a := SampleDaily(30, 42, day1)
	b := SampleDaily(30, 42, day1)
	if len(a) != 30 {
		t.Fatalf("Expected 30 rows, got %d", len(a))
	}
	for i := range a {
		if a[i].DailyAvgAQI != b[i].DailyAvgAQI || a[i].NextDayAQI != b[i].NextDayAQI {
			t.Fatalf("Row %d differs between runs with the same seed", i)
		}
	}
	for i := 1; i < len(a); i++ {
		if a[i].PrevDayAQI != a[i-1].DailyAvgAQI {
			t.Fatalf("Row %d: prev_day_aqi does not match previous row", i)
		}
	}
}
