package app

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/smukkama/aqi-predictor/internal/aqi"
	"github.com/smukkama/aqi-predictor/internal/features"
	"github.com/smukkama/aqi-predictor/internal/protocol"
)

// Snapshot sources
const (
	SourceCache       = "cache"
	SourceFile        = "file"
	SourcePlaceholder = "placeholder"
)

// syntheticDays is the length of the stand-in history shown before the
// first collection
const syntheticDays = 7

// dailyLimit bounds the stored daily rows read for the dashboard
const dailyLimit = 30

func (p *Pipeline) loadRecords(input string) ([]aqi.Record, error) {
	if input != "" {
		return p.raw.Load(input)
	}
	records, path, err := p.raw.LoadLatest()
	if err != nil {
		return nil, err
	}
	fmt.Printf("Loaded %d records from %s\n", len(records), path)
	return records, nil
}

// CurrentSnapshot returns the latest conditions from the cache, then the
// snapshot file, then a placeholder, with where it came from
func (p *Pipeline) CurrentSnapshot(ctx context.Context) (*protocol.Snapshot, string) {
	if p.sinks.Cache != nil {
		snap, err := p.sinks.Cache.GetSnapshot(ctx, p.cfg.Location.CityName)
		if err == nil {
			return snap, SourceCache
		}
	}

	snap, err := p.snapshot.Read()
	if err == nil {
		return snap, SourceFile
	}

	return protocol.PlaceholderSnapshot(p.now().In(p.loc)), SourcePlaceholder
}

// History returns the newest run file's records within hours of its last
// reading. Without a run file it returns a synthetic week and synthetic=true.
func (p *Pipeline) History(hours int) (records []aqi.Record, synthetic bool) {
	records, _, err := p.raw.LoadLatest()
	if err != nil || len(records) == 0 {
		return SyntheticHistory(p.now().In(p.loc), p.cfg.Model.RandomSeed), true
	}

	if hours <= 0 {
		return records, false
	}
	cutoff := records[len(records)-1].Timestamp.Add(-time.Duration(hours) * time.Hour)
	for i, r := range records {
		if r.Timestamp.After(cutoff) {
			return records[i:], false
		}
	}
	return records, false
}

// Daily returns the daily feature rows, preferring stored aggregates over
// the newest run file
func (p *Pipeline) Daily(ctx context.Context) (rows []features.DailyRow, synthetic bool, err error) {
	if p.sinks.DB != nil {
		if id, err := p.dbLocation(ctx); err == nil {
			stored, err := p.sinks.DB.RecentDailyFeatures(ctx, id, dailyLimit)
			if err != nil {
				log.Printf("Failed to read daily features: %v", err)
			}
			if len(stored) > 0 {
				rows = make([]features.DailyRow, len(stored))
				for i := range stored {
					rows[i] = stored[i].Row()
				}
				return rows, false, nil
			}
		}
	}

	records, synthetic := p.History(0)
	rows, err = features.BuildDaily(records)
	return rows, synthetic, err
}

// SyntheticHistory generates a week of hourly readings ending at now
func SyntheticHistory(now time.Time, seed int64) []aqi.Record {
	rng := rand.New(rand.NewSource(seed))
	n := syntheticDays * 24
	end := now.Truncate(time.Hour)

	records := make([]aqi.Record, n)
	for i := range records {
		index := 100 + rng.Float64()*80
		records[i] = aqi.Record{
			Observation: aqi.Observation{
				Timestamp: end.Add(-time.Duration(n-1-i) * time.Hour),
				PM25:      30 + rng.Float64()*30,
				PM10:      50 + rng.Float64()*50,
				Ozone:     aqi.Missing(),
			},
			AQI:      index,
			Category: aqi.CategoryOf(index),
		}
	}
	return records
}
