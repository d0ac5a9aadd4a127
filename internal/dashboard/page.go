package dashboard

import (
	"html/template"
	"strconv"
	"time"

	"github.com/smukkama/aqi-predictor/internal/model"
)

type pageData struct {
	City           string
	Current        currentView
	Forecast       []model.Day
	ForecastSource string
	Synthetic      bool
	Model          *pageModel
}

type pageModel struct {
	RunID     string
	TrainedAt time.Time
	MAE       *float64
	RMSE      *float64
	R2        *float64
}

func newPageModel(m *model.Model) *pageModel {
	return &pageModel{
		RunID:     m.RunID,
		TrainedAt: m.TrainedAt,
		MAE:       optional(m.Metrics.MAE),
		RMSE:      optional(m.Metrics.RMSE),
		R2:        optional(m.Metrics.R2),
	}
}

func formatNumber(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*p, 'f', 1, 64)
}

var pageTemplate = template.Must(template.New("index").Funcs(template.FuncMap{
	"num": formatNumber,
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>AQI Predictor - {{.City}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; background: #f8fafc; color: #1f2937; }
.cards { display: flex; gap: 1rem; flex-wrap: wrap; }
.card { background: #fff; border-radius: 8px; padding: 1rem 1.5rem; min-width: 160px; box-shadow: 0 1px 3px rgba(0,0,0,.1); }
.card h3 { margin: 0 0 .5rem; font-size: .9rem; color: #6b7280; }
.card .value { font-size: 2rem; font-weight: bold; }
.advice { margin: 1.5rem 0; padding: 1rem; border-left: 6px solid; background: #fff; }
.note { color: #b45309; }
iframe { border: 0; width: 100%; height: 520px; }
button { padding: .5rem 1rem; margin-right: .5rem; }
</style>
</head>
<body>
<h1>Air Quality Forecast: {{.City}}</h1>

<div class="cards">
  <div class="card" style="border-top: 6px solid {{.Current.Color}}">
    <h3>Current AQI</h3>
    <div class="value">{{num .Current.USAQI}}</div>
    <div>{{.Current.Category}}</div>
  </div>
  <div class="card"><h3>PM2.5 (µg/m³)</h3><div class="value">{{num .Current.PM25}}</div></div>
  <div class="card"><h3>PM10 (µg/m³)</h3><div class="value">{{num .Current.PM10}}</div></div>
  <div class="card"><h3>Last update</h3><div>{{.Current.Time}}</div><div>{{.Current.Source}}</div></div>
</div>

<div class="advice" style="border-color: {{.Current.Color}}">
  <strong>Health recommendation:</strong> {{.Current.Recommendation}}
</div>

<h2>3-Day Forecast</h2>
{{if .Forecast}}
<div class="cards">
  {{range .Forecast}}
  <div class="card">
    <h3>{{.DayName}} {{.Date.Format "2006-01-02"}}</h3>
    <div class="value">{{printf "%.0f" .PredictedAQI}}</div>
    <div>{{.Category}}</div>
  </div>
  {{end}}
</div>
<p>Source: {{.ForecastSource}}</p>
{{else}}
<p>No forecast available.</p>
{{end}}

<h2>AQI Trend (Last 7 Days)</h2>
{{if .Synthetic}}<p class="note">No data collected yet, showing sample data.</p>{{end}}
<iframe src="/charts/daily?days=7"></iframe>
<img src="/charts/trend.png?hours=168" alt="Hourly AQI trend">

<h2>Model</h2>
{{with .Model}}
<p>Run {{.RunID}} trained {{.TrainedAt.Format "2006-01-02 15:04"}} UTC</p>
<p>MAE {{num .MAE}}, RMSE {{num .RMSE}}, R² {{num .R2}}</p>
<iframe src="/api/v1/model?format=html"></iframe>
{{else}}
<p>No trained model yet.</p>
{{end}}

<h2>Actions</h2>
<button onclick="run('/api/v1/collect')">Collect data</button>
<button onclick="run('/api/v1/train')">Train model</button>
<pre id="result"></pre>
<script>
function run(path) {
  document.getElementById('result').textContent = 'Running...';
  fetch(path, {method: 'POST'})
    .then(function (r) { return r.json(); })
    .then(function (body) {
      document.getElementById('result').textContent = body.message;
      if (body.code === 0) { location.reload(); }
    });
}
</script>
</body>
</html>
`))
