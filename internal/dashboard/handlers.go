package dashboard

import (
	"bytes"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/smukkama/aqi-predictor/internal/app"
	"github.com/smukkama/aqi-predictor/internal/charts"
	"github.com/smukkama/aqi-predictor/internal/model"
	"github.com/smukkama/aqi-predictor/internal/storage"
)

const (
	defaultHistoryHours = 168
	defaultChartDays    = 7
)

// Handler serves the dashboard over one pipeline
type Handler struct {
	pipeline *app.Pipeline

	// busy serialises collection and training runs
	busy sync.Mutex
}

// NewHandler creates a handler
func NewHandler(p *app.Pipeline) *Handler {
	return &Handler{pipeline: p}
}

func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		BadRequest(c, "invalid "+name+": "+raw)
		return 0, false
	}
	return v, true
}

// Index renders the dashboard page
func (h *Handler) Index(c *gin.Context) {
	ctx := c.Request.Context()
	snap, source := h.pipeline.CurrentSnapshot(ctx)
	_, synthetic := h.pipeline.History(0)

	data := pageData{
		City:      h.pipeline.Config().Location.CityName,
		Current:   newCurrentView(snap, source),
		Synthetic: synthetic,
	}

	if result, err := h.pipeline.LatestForecast(ctx); err == nil {
		data.Forecast = result.Days
		data.ForecastSource = result.Days[0].Source
	} else {
		log.Printf("Forecast unavailable: %v", err)
	}

	if m, err := h.pipeline.LoadModel(); err == nil {
		data.Model = newPageModel(m)
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		log.Printf("Failed to render page: %v", err)
		c.String(http.StatusInternalServerError, "failed to render page")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// Current returns the latest snapshot
func (h *Handler) Current(c *gin.Context) {
	snap, source := h.pipeline.CurrentSnapshot(c.Request.Context())
	Success(c, newCurrentView(snap, source))
}

// History returns hourly records from the newest run file
func (h *Handler) History(c *gin.Context) {
	hours, ok := queryInt(c, "hours", defaultHistoryHours)
	if !ok {
		return
	}
	records, synthetic := h.pipeline.History(hours)
	Success(c, newHistoryView(records, synthetic))
}

// Daily returns the daily feature rows
func (h *Handler) Daily(c *gin.Context) {
	rows, synthetic, err := h.pipeline.Daily(c.Request.Context())
	if err != nil {
		InternalError(c, "failed to build daily rows: "+err.Error())
		return
	}
	Success(c, newDailyView(rows, synthetic))
}

// Forecast returns the last published forecast, or a fresh prediction
func (h *Handler) Forecast(c *gin.Context) {
	result, err := h.pipeline.LatestForecast(c.Request.Context())
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, newForecastView(result))
}

// Model returns the persisted model's metrics and importances. With
// format=html the importances are rendered as a chart page.
func (h *Handler) Model(c *gin.Context) {
	m, err := h.pipeline.LoadModel()
	if err != nil {
		if errors.Is(err, model.ErrModelNotFound) {
			NotFound(c, "no trained model, run training first")
			return
		}
		InternalError(c, err.Error())
		return
	}

	if c.Query("format") == "html" {
		var buf bytes.Buffer
		if err := charts.ImportanceHTML(&buf, m.Importances); err != nil {
			InternalError(c, err.Error())
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
		return
	}

	Success(c, newModelView(m))
}

// TrendPNG draws the hourly history with the forecast overlaid
func (h *Handler) TrendPNG(c *gin.Context) {
	hours, ok := queryInt(c, "hours", defaultHistoryHours)
	if !ok {
		return
	}
	records, _ := h.pipeline.History(hours)

	var days []model.Day
	if result, err := h.pipeline.LatestForecast(c.Request.Context()); err == nil {
		days = result.Days
	}

	var buf bytes.Buffer
	if err := charts.TrendPNG(&buf, records, days); err != nil {
		if errors.Is(err, charts.ErrNotEnoughPoints) {
			NotFound(c, err.Error())
			return
		}
		InternalError(c, err.Error())
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// DailyChart renders the last days of daily averages as an interactive page
func (h *Handler) DailyChart(c *gin.Context) {
	n, ok := queryInt(c, "days", defaultChartDays)
	if !ok {
		return
	}
	rows, _, err := h.pipeline.Daily(c.Request.Context())
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	if n > 0 && len(rows) > n {
		rows = rows[len(rows)-n:]
	}

	var buf bytes.Buffer
	if err := charts.DailyHTML(&buf, h.pipeline.Config().Location.CityName, rows); err != nil {
		InternalError(c, err.Error())
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// ForecastChart renders the forecast as an interactive page
func (h *Handler) ForecastChart(c *gin.Context) {
	result, err := h.pipeline.LatestForecast(c.Request.Context())
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := charts.ForecastHTML(&buf, h.pipeline.Config().Location.CityName, result.Days); err != nil {
		InternalError(c, err.Error())
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// Collect runs one collection
func (h *Handler) Collect(c *gin.Context) {
	if !h.busy.TryLock() {
		Conflict(c, "another collection or training run is in progress")
		return
	}
	defer h.busy.Unlock()

	result, err := h.pipeline.Collect(c.Request.Context())
	if err != nil {
		if errors.Is(err, app.ErrNothingCollected) {
			Error(c, http.StatusBadGateway, "air quality API unavailable, please retry")
			return
		}
		InternalError(c, err.Error())
		return
	}
	Success(c, newCollectView(result))
}

// Train runs one training; mode and days select the table
func (h *Handler) Train(c *gin.Context) {
	mode := c.Query("mode")
	switch mode {
	case "", app.ModeDaily, app.ModeHourly, app.ModeSample:
	default:
		BadRequest(c, "invalid mode: "+mode)
		return
	}
	days, ok := queryInt(c, "days", app.DefaultSampleDays)
	if !ok {
		return
	}

	if !h.busy.TryLock() {
		Conflict(c, "another collection or training run is in progress")
		return
	}
	defer h.busy.Unlock()

	result, err := h.pipeline.Train(c.Request.Context(), app.TrainOptions{Mode: mode, SampleDays: days})
	if err != nil {
		if errors.Is(err, storage.ErrNoRawData) || errors.Is(err, model.ErrInsufficientData) {
			BadRequest(c, "not enough data to train, collect data first: "+err.Error())
			return
		}
		InternalError(c, err.Error())
		return
	}
	Success(c, newTrainView(result))
}
