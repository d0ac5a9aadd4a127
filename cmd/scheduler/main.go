package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smukkama/aqi-predictor/internal/aggregation"
	"github.com/smukkama/aqi-predictor/internal/app"
	"github.com/smukkama/aqi-predictor/internal/database"
	"github.com/smukkama/aqi-predictor/internal/scheduler"
	"github.com/smukkama/aqi-predictor/pkg/config"
)

const timeLayout = "2006-01-02 15:04:05"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if _, err := aggregation.NextDailyRun(time.Now(), cfg.Schedule.DailyTime); err != nil {
		log.Fatalf("Invalid daily schedule: %v", err)
	}

	fmt.Println("Starting AQI Scheduler...")

	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	if err := db.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	lat, lon, tz := cfg.Location.Latitude, cfg.Location.Longitude, cfg.Location.Timezone
	locationID, err := db.UpsertLocation(ctx, &database.Location{
		CityName: cfg.Location.CityName,
		Lat:      &lat,
		Lon:      &lon,
		Timezone: &tz,
	})
	if err != nil {
		log.Fatalf("Failed to register location: %v", err)
	}

	pipeline, closeSinks := app.Open(ctx, cfg)
	defer closeSinks()
	loc := pipeline.Location()
	dailyAgg := aggregation.NewDailyAggregator(db, locationID, cfg.Location.CityName, loc)

	sched := scheduler.New(2)
	sched.Start(ctx)
	defer sched.Stop()
	fmt.Println("Scheduler started")

	nextHourly := func(now time.Time) time.Time {
		next := aggregation.NextHourlyRun(now.In(loc), cfg.Schedule.CollectDelay)
		fmt.Printf("Next collection scheduled for: %s\n", next.Format(timeLayout))
		return next
	}
	if err := sched.Every("hourly-collection", nextHourly, func(ctx context.Context) {
		fmt.Println("\n--- Running Collection ---")
		if _, err := pipeline.Collect(ctx); err != nil {
			log.Printf("Collection failed: %v", err)
		}
		fmt.Println("--- Collection Complete ---")
	}); err != nil {
		log.Fatalf("Failed to schedule collection: %v", err)
	}

	nextDaily := func(now time.Time) time.Time {
		// Validated at startup
		next, _ := aggregation.NextDailyRun(now.In(loc), cfg.Schedule.DailyTime)
		fmt.Printf("Next daily aggregation scheduled for: %s\n", next.Format(timeLayout))
		return next
	}
	if err := sched.Every("daily-aggregation", nextDaily, func(ctx context.Context) {
		fmt.Println("\n--- Running Daily Aggregation ---")
		if _, err := dailyAgg.AggregatePreviousDay(ctx, time.Now()); err != nil {
			log.Printf("Daily aggregation failed: %v", err)
		}
		if _, err := pipeline.Forecast(ctx); err != nil {
			log.Printf("Forecast failed: %v", err)
		}
		fmt.Println("--- Daily Aggregation Complete ---")
	}); err != nil {
		log.Fatalf("Failed to schedule daily aggregation: %v", err)
	}

	fmt.Println("\n✓ AQI Scheduler is running")
	fmt.Printf("✓ Collection every hour at +%v | Daily aggregation at %s\n", cfg.Schedule.CollectDelay, cfg.Schedule.DailyTime)
	fmt.Println("✓ Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
	stats := sched.Stats()
	fmt.Printf("Jobs executed: %d\n", stats.Executed)
}
