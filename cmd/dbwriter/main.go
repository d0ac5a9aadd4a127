package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smukkama/aqi-predictor/internal/database"
	"github.com/smukkama/aqi-predictor/internal/queue"
	"github.com/smukkama/aqi-predictor/pkg/config"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Database Writer Service...")
	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	if err := db.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	topics := []string{cfg.Kafka.TopicObservations, cfg.Kafka.TopicPredictions}
	if err := queue.EnsureTopics(cfg.Kafka, topics...); err != nil {
		log.Printf("Topics not created, relying on broker auto-creation: %v", err)
	}

	consumers := make([]*queue.Consumer, len(topics))
	writers := make([]*queue.BatchWriter, len(topics))
	for i, topic := range topics {
		consumers[i] = queue.NewConsumer(cfg.Kafka, topic)
		defer consumers[i].Close()

		writers[i] = queue.NewBatchWriter(consumers[i], db, cfg.Kafka.BatchSize, cfg.Kafka.FlushInterval)
		if err := writers[i].Start(ctx); err != nil {
			log.Fatalf("Failed to start batch writer for %s: %v", topic, err)
		}
		fmt.Printf("Batch writer started for %s\n", topic)
	}

	// Print consumer stats periodically
	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, c := range consumers {
					stats := c.Stats()
					fmt.Printf("Consumer stats (%s): Messages=%d, Bytes=%d, Errors=%d, Lag=%d\n",
						c.Topic(), stats.Messages, stats.Bytes, stats.Errors, stats.Lag)
				}
			}
		}
	}()

	fmt.Println("\n✓ Database Writer Service is running")
	fmt.Println("✓ Consuming observations and predictions from Kafka into PostgreSQL")
	fmt.Printf("✓ Batch size: %d messages | Flush interval: %v\n", cfg.Kafka.BatchSize, cfg.Kafka.FlushInterval)
	fmt.Println("✓ Press Ctrl+C to stop")
	fmt.Println("\nWaiting for messages...")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
	for _, w := range writers {
		w.Stop()
	}
	cancel()
	fmt.Println("Database Writer Service stopped")
}
