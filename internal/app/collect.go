package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/smukkama/aqi-predictor/internal/aqi"
	"github.com/smukkama/aqi-predictor/internal/database"
	"github.com/smukkama/aqi-predictor/internal/protocol"
	"github.com/smukkama/aqi-predictor/internal/queue"
)

// ErrNothingCollected is returned when neither history nor the current
// snapshot could be fetched
var ErrNothingCollected = errors.New("no data collected")

// CollectResult describes one collection run
type CollectResult struct {
	RunID    string
	Records  []aqi.Record
	RawPath  string
	Snapshot *protocol.Snapshot
	Summary  aqi.Summary
}

// Collect fetches the lookback history and the current conditions, writes
// the raw CSV and the snapshot file, then fans the results out to the
// enabled sinks. Fetch failures are logged and leave that part empty.
func (p *Pipeline) Collect(ctx context.Context) (*CollectResult, error) {
	result := &CollectResult{RunID: uuid.New().String()}
	city := p.cfg.Location.CityName

	fmt.Printf("Collecting %d days of air quality data for %s...\n", p.cfg.Collector.LookbackDays, city)

	observations, err := p.fetch.FetchHistory(ctx, p.cfg.Collector.LookbackDays)
	if err != nil {
		log.Printf("History fetch failed: %v", err)
	}

	if len(observations) > 0 {
		result.Records = aqi.Enrich(observations)
		result.Summary = aqi.Summarize(result.Records)

		path, err := p.raw.Save(result.Records)
		if err != nil {
			return result, fmt.Errorf("failed to save raw data: %w", err)
		}
		result.RawPath = path

		fmt.Printf("Collected %d records (%s to %s)\n", result.Summary.Count,
			result.Summary.From.Format("2006-01-02 15:04"), result.Summary.To.Format("2006-01-02 15:04"))
		fmt.Printf("Average AQI: %.1f, max AQI: %.1f\n", result.Summary.AvgAQI, result.Summary.MaxAQI)
		fmt.Printf("Saved raw data to %s\n", path)
	}

	snap, err := p.fetch.FetchCurrent(ctx)
	if err != nil {
		log.Printf("Current conditions fetch failed: %v", err)
	} else {
		if err := p.snapshot.Write(snap); err != nil {
			return result, fmt.Errorf("failed to save snapshot: %w", err)
		}
		result.Snapshot = snap
		fmt.Printf("Current AQI: %.0f (%s) at %s\n", snap.USAQI, aqi.CategoryOf(snap.USAQI), snap.Time)
	}

	if len(result.Records) == 0 && result.Snapshot == nil {
		return result, ErrNothingCollected
	}

	p.publishCollected(ctx, result)
	return result, nil
}

func (p *Pipeline) publishCollected(ctx context.Context, result *CollectResult) {
	city := p.cfg.Location.CityName
	receivedAt := p.now().UTC()

	if result.Snapshot != nil {
		if p.sinks.Cache != nil {
			if err := p.sinks.Cache.SetSnapshot(ctx, city, result.Snapshot); err != nil {
				log.Printf("Failed to cache snapshot: %v", err)
			}
		}
		if p.sinks.MQTT != nil {
			if err := p.sinks.MQTT.PublishSnapshot(p.cfg.Location.Slug(), result.Snapshot); err != nil {
				log.Printf("Failed to publish snapshot: %v", err)
			}
		}
	}

	if len(result.Records) == 0 {
		return
	}

	if p.sinks.Observations != nil {
		msgs := make([]*protocol.ObservationMessage, len(result.Records))
		for i, rec := range result.Records {
			msgs[i] = protocol.NewObservationMessage(rec, result.RunID, receivedAt)
		}
		if err := queue.PublishObservations(ctx, p.sinks.Observations, msgs); err != nil {
			log.Printf("Failed to publish observations: %v", err)
		} else {
			fmt.Printf("Published %d observations\n", len(msgs))
		}
	}

	if p.sinks.DB != nil {
		locationID, err := p.dbLocation(ctx)
		if err != nil {
			log.Printf("Failed to resolve location: %v", err)
			return
		}
		rows := make([]*database.Observation, len(result.Records))
		for i, rec := range result.Records {
			rows[i] = database.NewObservation(locationID, rec, result.RunID, receivedAt)
		}
		n, err := p.sinks.DB.InsertObservations(ctx, rows)
		if err != nil {
			log.Printf("Failed to store observations: %v", err)
			return
		}
		fmt.Printf("Stored %d observations\n", n)
	}
}
