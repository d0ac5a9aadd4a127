package features

import (
	"math"
	"math/rand"
	"time"
)

// SampleDaily generates n deterministic synthetic daily rows for demos and
// tests. Daily averages follow a bounded random walk; the lag and lead
// columns are taken from neighbouring rows so the table is self-consistent.
func SampleDaily(n int, seed int64, start time.Time) []DailyRow {
	if n <= 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(seed))
	series := make([]float64, n+2)
	series[0] = 50 + rng.Float64()*150
	for i := 1; i < len(series); i++ {
		step := rng.NormFloat64() * 15
		series[i] = math.Min(250, math.Max(30, series[i-1]+step))
	}

	start = dateOf(start)
	rows := make([]DailyRow, n)
	for i := range rows {
		date := start.AddDate(0, 0, i)
		avg := round2(series[i+1])
		pm25 := round2(avg*0.45 + rng.Float64()*10)
		rows[i] = DailyRow{
			Date:        date,
			DailyAvgAQI: avg,
			DailyMaxAQI: round2(avg * (1.1 + rng.Float64()*0.2)),
			DailyMinAQI: round2(avg * (0.7 + rng.Float64()*0.2)),
			DailyStdAQI: round2(5 + rng.Float64()*15),
			PM25Mean:    pm25,
			PM10Mean:    round2(pm25*1.6 + rng.Float64()*20),
			OzoneMean:   round2(20 + rng.Float64()*60),
			DayOfWeek:   dayOfWeek(date),
			DayName:     date.Weekday().String(),
			PrevDayAQI:  round2(series[i]),
			NextDayAQI:  round2(series[i+2]),
			Samples:     24,
		}
		if i >= 7 {
			rows[i].PrevWeekAQI = rows[i-7].DailyAvgAQI
		} else {
			rows[i].PrevWeekAQI = math.NaN()
		}
	}

	return rows
}
