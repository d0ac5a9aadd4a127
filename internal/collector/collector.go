// Package collector fetches current conditions and hourly history from the
// Open-Meteo air-quality API.
package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/smukkama/aqi-predictor/internal/aqi"
	"github.com/smukkama/aqi-predictor/internal/protocol"
	"github.com/smukkama/aqi-predictor/pkg/config"
)

// Fetch operations reported in FetchError.Op
const (
	OpCurrent = "current"
	OpHistory = "history"
)

// ErrUnexpectedStatus is wrapped by FetchError for non-200 responses
var ErrUnexpectedStatus = errors.New("unexpected status")

// FetchError is returned for transport, status and decode failures. The
// caller decides the fallback.
type FetchError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Collector talks to the air-quality API for one location
type Collector struct {
	client         *resty.Client
	baseURL        string
	location       config.LocationConfig
	tz             *time.Location
	currentTimeout time.Duration
	historyTimeout time.Duration
	now            func() time.Time
}

// New creates a collector. Requests are never retried.
func New(loc config.LocationConfig, cfg config.CollectorConfig) *Collector {
	client := resty.New()
	client.SetRetryCount(0)
	client.SetHeader("Accept", "application/json")

	return &Collector{
		client:         client,
		baseURL:        cfg.BaseURL,
		location:       loc,
		tz:             loc.Load(),
		currentTimeout: cfg.CurrentTimeout,
		historyTimeout: cfg.HistoryTimeout,
		now:            time.Now,
	}
}

type currentResponse struct {
	Current *struct {
		Time        string   `json:"time"`
		PM25        *float64 `json:"pm2_5"`
		PM10        *float64 `json:"pm10"`
		USAQI       *float64 `json:"us_aqi"`
		EuropeanAQI *float64 `json:"european_aqi"`
	} `json:"current"`
}

type hourlyResponse struct {
	Hourly *struct {
		Time  []string   `json:"time"`
		PM25  []*float64 `json:"pm2_5"`
		PM10  []*float64 `json:"pm10"`
		Ozone []*float64 `json:"ozone"`
	} `json:"hourly"`
}

func (c *Collector) baseParams() map[string]string {
	return map[string]string{
		"latitude":  strconv.FormatFloat(c.location.Latitude, 'f', -1, 64),
		"longitude": strconv.FormatFloat(c.location.Longitude, 'f', -1, 64),
		"timezone":  c.location.Timezone,
	}
}

func (c *Collector) get(ctx context.Context, op string, timeout time.Duration, params map[string]string, out interface{}) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(c.baseURL)
	if err != nil {
		return &FetchError{Op: op, Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return &FetchError{Op: op, StatusCode: resp.StatusCode(), Err: ErrUnexpectedStatus}
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return &FetchError{Op: op, StatusCode: resp.StatusCode(), Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

// FetchCurrent returns the latest conditions
func (c *Collector) FetchCurrent(ctx context.Context) (*protocol.Snapshot, error) {
	params := c.baseParams()
	params["current"] = "pm2_5,pm10,us_aqi,european_aqi"

	var body currentResponse
	if err := c.get(ctx, OpCurrent, c.currentTimeout, params, &body); err != nil {
		return nil, err
	}
	if body.Current == nil {
		return nil, &FetchError{Op: OpCurrent, StatusCode: http.StatusOK, Err: errors.New("response has no current block")}
	}

	cur := body.Current
	snap := &protocol.Snapshot{
		USAQI: value(cur.USAQI),
		PM25:  value(cur.PM25),
		PM10:  value(cur.PM10),
		Time:  cur.Time,
	}
	// Fall back to the local formula when the API omits its own index
	if aqi.IsMissing(snap.USAQI) {
		snap.USAQI = aqi.Calculate(snap.PM25)
	}
	return snap, nil
}

// FetchHistory returns hourly observations for the last days up to today,
// in the configured timezone and ascending order
func (c *Collector) FetchHistory(ctx context.Context, days int) ([]aqi.Observation, error) {
	if days < 1 {
		days = 1
	}
	end := c.now().In(c.tz)
	start := end.AddDate(0, 0, -days)

	params := c.baseParams()
	params["hourly"] = "pm2_5,pm10,ozone"
	params["start_date"] = start.Format("2006-01-02")
	params["end_date"] = end.Format("2006-01-02")

	var body hourlyResponse
	if err := c.get(ctx, OpHistory, c.historyTimeout, params, &body); err != nil {
		return nil, err
	}
	if body.Hourly == nil {
		return nil, &FetchError{Op: OpHistory, StatusCode: http.StatusOK, Err: errors.New("response has no hourly block")}
	}

	h := body.Hourly
	n := len(h.Time)
	if len(h.PM25) != n || len(h.PM10) != n || (h.Ozone != nil && len(h.Ozone) != n) {
		return nil, &FetchError{Op: OpHistory, StatusCode: http.StatusOK, Err: errors.New("hourly arrays have mismatched lengths")}
	}

	observations := make([]aqi.Observation, 0, n)
	for i, ts := range h.Time {
		t, err := time.ParseInLocation(protocol.SnapshotTimeLayout, ts, c.tz)
		if err != nil {
			return nil, &FetchError{Op: OpHistory, StatusCode: http.StatusOK, Err: fmt.Errorf("invalid time %q: %w", ts, err)}
		}
		obs := aqi.Observation{
			Timestamp: t,
			PM25:      value(h.PM25[i]),
			PM10:      value(h.PM10[i]),
			Ozone:     aqi.Missing(),
			City:      c.location.CityName,
			Latitude:  c.location.Latitude,
			Longitude: c.location.Longitude,
		}
		if h.Ozone != nil {
			obs.Ozone = value(h.Ozone[i])
		}
		observations = append(observations, obs)
	}

	return observations, nil
}

func value(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}
