package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/smukkama/aqi-predictor/internal/app"
	"github.com/smukkama/aqi-predictor/internal/dashboard"
	"github.com/smukkama/aqi-predictor/pkg/config"
)

type action int

const (
	actionInvalid action = iota
	actionCollect
	actionDashboard
	actionTrain
	actionExit
)

func parseChoice(s string) action {
	switch strings.TrimSpace(s) {
	case "1":
		return actionCollect
	case "2":
		return actionDashboard
	case "3":
		return actionTrain
	case "4":
		return actionExit
	default:
		return actionInvalid
	}
}

func printMenu(w io.Writer) {
	line := strings.Repeat("=", 60)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "           AQI PREDICTION SYSTEM")
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "\n1. Collect AQI Data")
	fmt.Fprintln(w, "2. Launch Dashboard")
	fmt.Fprintln(w, "3. Train Model")
	fmt.Fprintln(w, "4. Exit")
	fmt.Fprint(w, "\nSelect option (1-4): ")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	printMenu(os.Stdout)
	choice, _ := bufio.NewReader(os.Stdin).ReadString('\n')

	switch parseChoice(choice) {
	case actionCollect:
		fmt.Println("\nRunning data collection...")
		pipeline, closeSinks := app.Open(ctx, cfg)
		defer closeSinks()
		if _, err := pipeline.Collect(ctx); err != nil {
			log.Printf("Collection failed: %v", err)
		}

	case actionDashboard:
		fmt.Println("\nLaunching dashboard...")
		fmt.Printf("Open your browser at: http://localhost:%d\n", cfg.Dashboard.Port)
		gin.SetMode(cfg.Dashboard.GinMode)
		pipeline, closeSinks := app.Open(ctx, cfg)
		defer closeSinks()
		if err := dashboard.Serve(ctx, cfg.Dashboard.Addr(), dashboard.SetupRouter(pipeline)); err != nil {
			log.Printf("Dashboard failed: %v", err)
		}

	case actionTrain:
		fmt.Println("\nTraining model...")
		pipeline, closeSinks := app.Open(ctx, cfg)
		defer closeSinks()
		if _, err := pipeline.Train(ctx, app.TrainOptions{}); err != nil {
			log.Printf("Training failed: %v", err)
		}

	case actionExit:
		fmt.Println("\nGoodbye!")

	default:
		fmt.Println("\nInvalid choice!")
	}
}
