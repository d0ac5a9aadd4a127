package charts

import (
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/smukkama/aqi-predictor/internal/features"
	"github.com/smukkama/aqi-predictor/internal/model"
)

func initOpts(title string) charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{
		PageTitle: title,
		Theme:     types.ThemeWesteros,
		Width:     "900px",
		Height:    "400px",
	})
}

// ForecastHTML renders the forecast days as an interactive line page
func ForecastHTML(w io.Writer, city string, days []model.Day) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		initOpts("AQI Forecast"),
		charts.WithTitleOpts(opts.Title{
			Title:    "AQI Forecast",
			Subtitle: city,
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Date"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "US AQI"}),
	)

	xAxis := make([]string, len(days))
	data := make([]opts.LineData, len(days))
	for i, d := range days {
		xAxis[i] = d.Date.Format("Mon 01-02")
		data[i] = opts.LineData{Name: string(d.Category), Value: d.PredictedAQI}
	}

	line.SetXAxis(xAxis).AddSeries("Predicted AQI", data)
	return line.Render(w)
}

// DailyHTML renders the daily average with its min and max envelope
func DailyHTML(w io.Writer, city string, rows []features.DailyRow) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		initOpts("Daily AQI"),
		charts.WithTitleOpts(opts.Title{
			Title:    "Daily AQI",
			Subtitle: city,
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Date"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "US AQI"}),
	)

	xAxis := make([]string, len(rows))
	avg := make([]opts.LineData, len(rows))
	lo := make([]opts.LineData, len(rows))
	hi := make([]opts.LineData, len(rows))
	for i, r := range rows {
		xAxis[i] = r.Date.Format("01-02")
		avg[i] = opts.LineData{Value: orNil(r.DailyAvgAQI)}
		lo[i] = opts.LineData{Value: orNil(r.DailyMinAQI)}
		hi[i] = opts.LineData{Value: orNil(r.DailyMaxAQI)}
	}

	line.SetXAxis(xAxis).
		AddSeries("Average", avg).
		AddSeries("Min", lo).
		AddSeries("Max", hi)
	return line.Render(w)
}

// ImportanceHTML renders feature importances as a bar page
func ImportanceHTML(w io.Writer, importances []model.Importance) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts("Feature Importance"),
		charts.WithTitleOpts(opts.Title{Title: "Feature Importance"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Share"}),
	)

	xAxis := make([]string, len(importances))
	data := make([]opts.BarData, len(importances))
	for i, imp := range importances {
		xAxis[i] = imp.Feature
		data[i] = opts.BarData{Value: math.Round(imp.Importance*1000) / 1000}
	}

	bar.SetXAxis(xAxis).AddSeries("Importance", data)
	return bar.Render(w)
}

// orNil hides missing values; echarts draws a gap for a null point
func orNil(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
