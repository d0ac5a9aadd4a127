// Package charts renders the dashboard's AQI trend image and interactive
// forecast pages.
package charts

import (
	"errors"
	"io"
	"math"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/smukkama/aqi-predictor/internal/aqi"
	"github.com/smukkama/aqi-predictor/internal/model"
)

// ErrNotEnoughPoints is returned when a trend has fewer than two distinct times
var ErrNotEnoughPoints = errors.New("not enough points to draw a trend")

// minAxisMax keeps the Good band visible on a clean week
const minAxisMax = 60

// points keeps the non-missing AQI readings
func points(records []aqi.Record) ([]time.Time, []float64) {
	var xs []time.Time
	var ys []float64
	for _, r := range records {
		if aqi.IsMissing(r.AQI) {
			continue
		}
		xs = append(xs, r.Timestamp)
		ys = append(ys, r.AQI)
	}
	return xs, ys
}

// TrendPNG draws hourly AQI history with the forecast days overlaid as PNG
func TrendPNG(w io.Writer, records []aqi.Record, forecast []model.Day) error {
	xs, ys := points(records)
	if len(xs) < 2 || !xs[len(xs)-1].After(xs[0]) {
		return ErrNotEnoughPoints
	}

	maxY := float64(minAxisMax)
	for _, y := range ys {
		maxY = math.Max(maxY, y)
	}

	series := []chart.Series{
		chart.TimeSeries{
			Name: "AQI",
			Style: chart.Style{
				StrokeColor: drawing.ColorFromHex("3366CC"),
				StrokeWidth: 2,
			},
			XValues: xs,
			YValues: ys,
		},
	}

	if len(forecast) > 0 {
		fx := []time.Time{xs[len(xs)-1]}
		fy := []float64{ys[len(ys)-1]}
		for _, d := range forecast {
			fx = append(fx, d.Date)
			fy = append(fy, d.PredictedAQI)
			maxY = math.Max(maxY, d.PredictedAQI)
		}
		series = append(series, chart.TimeSeries{
			Name: "Forecast",
			Style: chart.Style{
				StrokeColor:     drawing.ColorFromHex("EF4444"),
				StrokeWidth:     2,
				StrokeDashArray: []float64{5, 5},
				DotColor:        drawing.ColorFromHex("EF4444"),
				DotWidth:        4,
			},
			XValues: fx,
			YValues: fy,
		})
	}

	graph := chart.Chart{
		Title: "Air Quality Trend",
		TitleStyle: chart.Style{
			FontSize:  14,
			FontColor: drawing.ColorBlack,
		},
		Background: chart.Style{
			Padding: chart.Box{
				Top:    40,
				Left:   20,
				Right:  20,
				Bottom: 20,
			},
		},
		Width:  900,
		Height: 360,
		XAxis: chart.XAxis{
			Name:           "Time",
			ValueFormatter: chart.TimeValueFormatterWithFormat("01-02 15:04"),
		},
		YAxis: chart.YAxis{
			Name: "US AQI",
			Range: &chart.ContinuousRange{
				Min: 0,
				Max: math.Ceil(maxY*1.1/10) * 10,
			},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(chart.PNG, w)
}
