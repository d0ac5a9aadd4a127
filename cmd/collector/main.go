package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/smukkama/aqi-predictor/internal/app"
	"github.com/smukkama/aqi-predictor/pkg/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting AQI Collector...")
	pipeline, closeSinks := app.Open(ctx, cfg)
	defer closeSinks()

	result, err := pipeline.Collect(ctx)
	if err != nil {
		log.Fatalf("Collection failed: %v", err)
	}

	fmt.Println("\n✓ Collection complete")
	fmt.Printf("✓ Run ID: %s\n", result.RunID)
	if result.RawPath != "" {
		fmt.Printf("✓ %d records written to %s\n", len(result.Records), result.RawPath)
	}
	if result.Snapshot != nil {
		fmt.Printf("✓ Snapshot written to %s\n", cfg.Data.SnapshotPath())
	}
}
