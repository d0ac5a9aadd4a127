package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/smukkama/aqi-predictor/internal/app"
	"github.com/smukkama/aqi-predictor/pkg/config"
)

func main() {
	mode := flag.String("mode", "", "training table: daily or hourly (default from MODEL_FEATURE_MODE)")
	input := flag.String("input", "", "raw CSV to train on (default: newest run file)")
	sample := flag.Bool("sample", false, "train on generated sample data")
	days := flag.Int("days", app.DefaultSampleDays, "number of sample days with -sample")
	forecast := flag.Bool("forecast", true, "publish a forecast after training")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	opts := app.TrainOptions{Mode: *mode, Input: *input, SampleDays: *days}
	if *sample {
		opts.Mode = app.ModeSample
	}

	fmt.Println("Starting AQI Trainer...")
	pipeline, closeSinks := app.Open(ctx, cfg)
	defer closeSinks()

	result, err := pipeline.Train(ctx, opts)
	if err != nil {
		log.Fatalf("Training failed: %v", err)
	}

	fmt.Println("✓ Training complete")
	fmt.Printf("✓ Mode: %s | Rows: %d | Run ID: %s\n", result.Mode, result.Rows, result.Model.RunID)

	if !*forecast {
		return
	}
	fc, err := pipeline.Forecast(ctx)
	if err != nil {
		log.Printf("Forecast failed: %v", err)
		return
	}
	fmt.Println("\n=== Forecast ===")
	for _, d := range fc.Days {
		fmt.Printf("%s %-9s %6.1f  %s (%s)\n", d.Date.Format("2006-01-02"), d.DayName, d.PredictedAQI, d.Category, d.Source)
	}
}
