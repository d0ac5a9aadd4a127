package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/smukkama/aqi-predictor/internal/cache"
	"github.com/smukkama/aqi-predictor/internal/database"
	"github.com/smukkama/aqi-predictor/internal/features"
	"github.com/smukkama/aqi-predictor/internal/model"
	"github.com/smukkama/aqi-predictor/internal/protocol"
	"github.com/smukkama/aqi-predictor/internal/queue"
)

// ForecastResult is a forecast with the inputs it was made from. Cached
// results were read back from the last published forecast.
type ForecastResult struct {
	Days     []model.Day
	RunID    string
	Current  *protocol.Snapshot
	Snapshot string
	Cached   bool
}

// Forecast predicts the next days and publishes them to the enabled sinks
func (p *Pipeline) Forecast(ctx context.Context) (*ForecastResult, error) {
	result, err := p.Predict(ctx)
	if err != nil {
		return nil, err
	}
	p.publishForecast(ctx, result)
	return result, nil
}

// Predict forecasts the next days from the saved model and the daily rows,
// falling back to decaying the current AQI. Nothing is published.
func (p *Pipeline) Predict(ctx context.Context) (*ForecastResult, error) {
	m, err := p.LoadModel()
	if err != nil {
		if errors.Is(err, model.ErrModelNotFound) {
			log.Printf("No trained model, forecasting from current AQI: %v", err)
		} else {
			log.Printf("Failed to load model, forecasting from current AQI: %v", err)
		}
		m = nil
	}

	var rows []features.DailyRow
	if m != nil {
		daily, synthetic, err := p.Daily(ctx)
		if err != nil {
			log.Printf("Failed to build daily rows: %v", err)
		} else if !synthetic {
			rows = daily
		}
	}

	snap, source := p.CurrentSnapshot(ctx)
	days, err := model.Forecast(m, rows, snap.USAQI, model.DefaultHorizon, p.now().In(p.loc))
	if err != nil {
		return nil, fmt.Errorf("failed to forecast: %w", err)
	}

	result := &ForecastResult{Days: days, Current: snap, Snapshot: source}
	if m != nil && len(days) > 0 && days[0].Source == model.SourceModel {
		result.RunID = m.RunID
	}
	return result, nil
}

// LatestForecast returns the last published forecast while the cache holds
// one that starts today or later, and a fresh prediction otherwise
func (p *Pipeline) LatestForecast(ctx context.Context) (*ForecastResult, error) {
	if p.sinks.Cache != nil {
		cached, err := p.sinks.Cache.GetForecast(ctx, p.cfg.Location.CityName)
		switch {
		case err == nil && len(cached.Days) > 0 && !cached.Days[0].Date.Before(p.today()):
			snap, source := p.CurrentSnapshot(ctx)
			return &ForecastResult{
				Days:     cached.Days,
				RunID:    cached.RunID,
				Current:  snap,
				Snapshot: source,
				Cached:   true,
			}, nil
		case err != nil && !errors.Is(err, cache.ErrMiss):
			log.Printf("Failed to read cached forecast: %v", err)
		}
	}
	return p.Predict(ctx)
}

func (p *Pipeline) today() time.Time {
	y, m, d := p.now().In(p.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, p.loc)
}

func (p *Pipeline) publishForecast(ctx context.Context, result *ForecastResult) {
	city := p.cfg.Location.CityName
	generatedAt := p.now().UTC()

	if p.sinks.Cache != nil {
		cached := &cache.Forecast{RunID: result.RunID, GeneratedAt: generatedAt, Days: result.Days}
		if err := p.sinks.Cache.SetForecast(ctx, city, cached); err != nil {
			log.Printf("Failed to cache forecast: %v", err)
		}
	}

	if p.sinks.Predictions != nil {
		msgs := make([]*protocol.PredictionMessage, len(result.Days))
		for i, d := range result.Days {
			msgs[i] = protocol.NewPredictionMessage(city, result.RunID, generatedAt, d.Date, d.PredictedAQI, d.Source)
		}
		if err := queue.PublishPredictions(ctx, p.sinks.Predictions, msgs); err != nil {
			log.Printf("Failed to publish forecast: %v", err)
		}
	}

	if p.sinks.DB != nil {
		locationID, err := p.dbLocation(ctx)
		if err != nil {
			log.Printf("Failed to resolve location: %v", err)
			return
		}
		rows := make([]*database.Prediction, len(result.Days))
		for i, d := range result.Days {
			rows[i] = &database.Prediction{
				LocationID:   locationID,
				TargetDate:   d.Date,
				PredictedAQI: d.PredictedAQI,
				Category:     string(d.Category),
				Source:       d.Source,
				GeneratedAt:  generatedAt,
			}
			if result.RunID != "" {
				runID := result.RunID
				rows[i].RunID = &runID
			}
		}
		if err := p.sinks.DB.InsertPredictions(ctx, rows); err != nil {
			log.Printf("Failed to store forecast: %v", err)
		}
	}
}
