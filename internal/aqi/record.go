package aqi

import (
	"time"
)

// Observation is one hourly reading for a location. Absent pollutant
// readings hold NaN (see Missing).
type Observation struct {
	Timestamp time.Time
	PM25      float64
	PM10      float64
	Ozone     float64
	City      string
	Latitude  float64
	Longitude float64
}

// Record is an Observation with its derived AQI
type Record struct {
	Observation
	AQI      float64
	Category Category
}

// NewRecord derives the AQI and category for an observation
func NewRecord(obs Observation) Record {
	index := Calculate(obs.PM25)
	return Record{
		Observation: obs,
		AQI:         index,
		Category:    CategoryOf(index),
	}
}

// Enrich derives records for a whole batch, preserving order
func Enrich(observations []Observation) []Record {
	records := make([]Record, len(observations))
	for i, obs := range observations {
		records[i] = NewRecord(obs)
	}
	return records
}

// Summary describes a batch of records for console reporting
type Summary struct {
	Count  int
	From   time.Time
	To     time.Time
	AvgAQI float64
	MaxAQI float64
}

// Summarize computes count, range and AQI mean/max over non-missing values
func Summarize(records []Record) Summary {
	s := Summary{Count: len(records), AvgAQI: Missing(), MaxAQI: Missing()}
	if len(records) == 0 {
		return s
	}

	s.From = records[0].Timestamp
	s.To = records[0].Timestamp

	var sum float64
	var n int
	for _, r := range records {
		if r.Timestamp.Before(s.From) {
			s.From = r.Timestamp
		}
		if r.Timestamp.After(s.To) {
			s.To = r.Timestamp
		}
		if IsMissing(r.AQI) {
			continue
		}
		sum += r.AQI
		if n == 0 || r.AQI > s.MaxAQI {
			s.MaxAQI = r.AQI
		}
		n++
	}
	if n > 0 {
		s.AvgAQI = sum / float64(n)
	}

	return s
}
