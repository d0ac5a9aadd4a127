package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/smukkama/aqi-predictor/internal/database"
	"github.com/smukkama/aqi-predictor/internal/features"
	"github.com/smukkama/aqi-predictor/internal/model"
)

// Training table modes
const (
	ModeDaily  = "daily"
	ModeHourly = "hourly"
	ModeSample = "sample"
)

// DefaultSampleDays is the synthetic table length for ModeSample
const DefaultSampleDays = 60

// TrainOptions selects the training data
type TrainOptions struct {
	// Mode is daily, hourly or sample; empty uses the configured feature mode
	Mode string
	// Input is a raw CSV path; empty uses the newest run file
	Input string
	// SampleDays is the synthetic table length for ModeSample
	SampleDays int
}

// TrainResult describes one training run
type TrainResult struct {
	Model *model.Model
	Mode  string
	Rows  int
	Path  string
}

// Train builds the feature table, fits and evaluates the ensemble, saves
// the model and records the run.
func (p *Pipeline) Train(ctx context.Context, opts TrainOptions) (*TrainResult, error) {
	mode := opts.Mode
	if mode == "" {
		mode = p.cfg.Model.FeatureMode
	}

	table, target, err := p.trainingTable(mode, opts)
	if err != nil {
		return nil, err
	}

	fmt.Printf("Training on %d rows (%s features, %d trees)...\n", table.Len(), mode, p.cfg.Model.EnsembleSize)

	trainer := model.NewTrainer(model.Params{
		Trees:          p.cfg.Model.EnsembleSize,
		MaxDepth:       p.cfg.Model.MaxDepth,
		MinSamplesLeaf: p.cfg.Model.MinSamplesLeaf,
		Seed:           p.cfg.Model.RandomSeed,
	}, p.cfg.Model.TestFraction)

	m, err := trainer.Train(table, target)
	if err != nil {
		return nil, fmt.Errorf("failed to train model: %w", err)
	}

	if err := m.Save(p.cfg.Model.Path); err != nil {
		return nil, err
	}

	PrintReport(m)
	fmt.Printf("Model saved to %s\n", p.cfg.Model.Path)

	p.recordRun(ctx, m, mode)

	return &TrainResult{Model: m, Mode: mode, Rows: table.Len(), Path: p.cfg.Model.Path}, nil
}

func (p *Pipeline) trainingTable(mode string, opts TrainOptions) (*features.Table, string, error) {
	if mode == ModeSample {
		n := opts.SampleDays
		if n <= 0 {
			n = DefaultSampleDays
		}
		start := p.now().In(p.loc).AddDate(0, 0, -n)
		table, err := features.DailyTable(features.SampleDaily(n, p.cfg.Model.RandomSeed, start))
		return table, features.DailyTarget, err
	}

	records, err := p.loadRecords(opts.Input)
	if err != nil {
		return nil, "", err
	}

	switch mode {
	case ModeDaily:
		rows, err := features.BuildDaily(records)
		if err != nil {
			return nil, "", fmt.Errorf("failed to build daily features: %w", err)
		}
		table, err := features.DailyTable(rows)
		return table, features.DailyTarget, err

	case ModeHourly:
		labels, err := features.ParseLabelMode(p.cfg.Model.LabelMode)
		if err != nil {
			return nil, "", err
		}
		rows, err := features.BuildHourly(records, labels)
		if err != nil {
			return nil, "", fmt.Errorf("failed to build hourly features: %w", err)
		}
		table, err := features.HourlyTable(rows)
		return table, features.HourlyTarget, err

	default:
		return nil, "", fmt.Errorf("unknown training mode: %s", mode)
	}
}

func (p *Pipeline) recordRun(ctx context.Context, m *model.Model, mode string) {
	if p.sinks.DB == nil {
		return
	}

	importances, err := json.Marshal(m.Importances)
	if err != nil {
		log.Printf("Failed to encode importances: %v", err)
		return
	}

	run := &database.ModelRun{
		RunID:       m.RunID,
		TrainedAt:   m.TrainedAt,
		FeatureMode: mode,
		Columns:     strings.Join(m.Columns, ","),
		TrainRows:   m.Metrics.TrainRows,
		TestRows:    m.Metrics.TestRows,
		MAE:         database.Nullable(m.Metrics.MAE),
		RMSE:        database.Nullable(m.Metrics.RMSE),
		R2:          database.Nullable(m.Metrics.R2),
		Importances: string(importances),
		ModelPath:   p.cfg.Model.Path,
	}
	if err := p.sinks.DB.InsertModelRun(ctx, run); err != nil {
		log.Printf("Failed to record model run: %v", err)
	}
}

// PrintReport writes the evaluation metrics and importance ranking
func PrintReport(m *model.Model) {
	fmt.Println("\n=== Model Evaluation ===")
	fmt.Printf("Run ID:     %s\n", m.RunID)
	fmt.Printf("Train rows: %d, test rows: %d\n", m.Metrics.TrainRows, m.Metrics.TestRows)
	fmt.Printf("MAE:        %.2f\n", m.Metrics.MAE)
	fmt.Printf("RMSE:       %.2f\n", m.Metrics.RMSE)
	fmt.Printf("R²:         %.3f\n", m.Metrics.R2)

	fmt.Println("\n=== Feature Importance ===")
	for i, imp := range m.Importances {
		fmt.Printf("%2d. %-16s %.4f\n", i+1, imp.Feature, imp.Importance)
	}
	fmt.Println()
}
