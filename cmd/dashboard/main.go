package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/smukkama/aqi-predictor/internal/app"
	"github.com/smukkama/aqi-predictor/internal/dashboard"
	"github.com/smukkama/aqi-predictor/pkg/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	gin.SetMode(cfg.Dashboard.GinMode)

	fmt.Println("Starting AQI Dashboard...")
	pipeline, closeSinks := app.Open(ctx, cfg)
	defer closeSinks()

	router := dashboard.SetupRouter(pipeline)

	fmt.Printf("\n✓ Dashboard is running at http://%s\n", cfg.Dashboard.Addr())
	fmt.Println("✓ Press Ctrl+C to stop")

	if err := dashboard.Serve(ctx, cfg.Dashboard.Addr(), router); err != nil {
		log.Fatalf("Dashboard failed: %v", err)
	}
	fmt.Println("\nDashboard stopped")
}
