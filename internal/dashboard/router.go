// Package dashboard serves the web dashboard and its JSON API with gin.
package dashboard

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smukkama/aqi-predictor/internal/app"
)

const shutdownTimeout = 5 * time.Second

// SetupRouter registers the dashboard routes
func SetupRouter(p *app.Pipeline) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), Logger(), CORS())

	h := NewHandler(p)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "AQI dashboard is running",
		})
	})

	r.GET("/", h.Index)

	chartRoutes := r.Group("/charts")
	{
		chartRoutes.GET("/trend.png", h.TrendPNG)
		chartRoutes.GET("/daily", h.DailyChart)
		chartRoutes.GET("/forecast", h.ForecastChart)
	}

	api := r.Group("/api/v1")
	{
		api.GET("/current", h.Current)
		api.GET("/history", h.History)
		api.GET("/daily", h.Daily)
		api.GET("/forecast", h.Forecast)
		api.GET("/model", h.Model)
		api.POST("/collect", h.Collect)
		api.POST("/train", h.Train)
	}

	return r
}

// Serve runs the handler on addr until ctx is cancelled, then shuts down
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Dashboard listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
