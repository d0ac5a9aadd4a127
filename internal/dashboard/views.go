package dashboard

import (
	"time"

	"github.com/smukkama/aqi-predictor/internal/app"
	"github.com/smukkama/aqi-predictor/internal/aqi"
	"github.com/smukkama/aqi-predictor/internal/features"
	"github.com/smukkama/aqi-predictor/internal/model"
	"github.com/smukkama/aqi-predictor/internal/protocol"
)

// JSON has no NaN, so missing values are sent as null
func optional(v float64) *float64 {
	if aqi.IsMissing(v) {
		return nil
	}
	return &v
}

type currentView struct {
	USAQI          *float64     `json:"us_aqi"`
	PM25           *float64     `json:"pm2_5"`
	PM10           *float64     `json:"pm10"`
	Time           string       `json:"time"`
	Source         string       `json:"source"`
	Category       aqi.Category `json:"category"`
	Color          string       `json:"color"`
	Recommendation string       `json:"recommendation"`
}

func newCurrentView(snap *protocol.Snapshot, source string) currentView {
	category := aqi.CategoryOf(snap.USAQI)
	return currentView{
		USAQI:          optional(snap.USAQI),
		PM25:           optional(snap.PM25),
		PM10:           optional(snap.PM10),
		Time:           snap.Time,
		Source:         source,
		Category:       category,
		Color:          category.Color(),
		Recommendation: category.Recommendation(),
	}
}

type recordView struct {
	Timestamp time.Time    `json:"timestamp"`
	PM25      *float64     `json:"pm2_5"`
	PM10      *float64     `json:"pm10"`
	Ozone     *float64     `json:"ozone"`
	AQI       *float64     `json:"aqi"`
	Category  aqi.Category `json:"aqi_category"`
}

type historyView struct {
	Synthetic bool         `json:"synthetic"`
	Count     int          `json:"count"`
	Records   []recordView `json:"records"`
}

func newHistoryView(records []aqi.Record, synthetic bool) historyView {
	out := historyView{Synthetic: synthetic, Count: len(records), Records: make([]recordView, len(records))}
	for i, r := range records {
		out.Records[i] = recordView{
			Timestamp: r.Timestamp,
			PM25:      optional(r.PM25),
			PM10:      optional(r.PM10),
			Ozone:     optional(r.Ozone),
			AQI:       optional(r.AQI),
			Category:  r.Category,
		}
	}
	return out
}

type dailyRowView struct {
	Date        string   `json:"date"`
	DayName     string   `json:"day_name"`
	DailyAvgAQI *float64 `json:"daily_avg_aqi"`
	DailyMaxAQI *float64 `json:"daily_max_aqi"`
	DailyMinAQI *float64 `json:"daily_min_aqi"`
	DailyStdAQI *float64 `json:"daily_std_aqi"`
	PM25Mean    *float64 `json:"pm2_5_mean"`
	PM10Mean    *float64 `json:"pm10_mean"`
	OzoneMean   *float64 `json:"ozone_mean"`
	DayOfWeek   int      `json:"day_of_week"`
	PrevDayAQI  *float64 `json:"prev_day_aqi"`
	PrevWeekAQI *float64 `json:"prev_week_aqi"`
	NextDayAQI  *float64 `json:"next_day_aqi"`
	Samples     int      `json:"samples"`
}

type dailyView struct {
	Synthetic bool           `json:"synthetic"`
	Rows      []dailyRowView `json:"rows"`
}

func newDailyView(rows []features.DailyRow, synthetic bool) dailyView {
	out := dailyView{Synthetic: synthetic, Rows: make([]dailyRowView, len(rows))}
	for i, r := range rows {
		out.Rows[i] = dailyRowView{
			Date:        r.Date.Format(protocol.DateLayout),
			DayName:     r.DayName,
			DailyAvgAQI: optional(r.DailyAvgAQI),
			DailyMaxAQI: optional(r.DailyMaxAQI),
			DailyMinAQI: optional(r.DailyMinAQI),
			DailyStdAQI: optional(r.DailyStdAQI),
			PM25Mean:    optional(r.PM25Mean),
			PM10Mean:    optional(r.PM10Mean),
			OzoneMean:   optional(r.OzoneMean),
			DayOfWeek:   r.DayOfWeek,
			PrevDayAQI:  optional(r.PrevDayAQI),
			PrevWeekAQI: optional(r.PrevWeekAQI),
			NextDayAQI:  optional(r.NextDayAQI),
			Samples:     r.Samples,
		}
	}
	return out
}

type forecastView struct {
	Days           []model.Day `json:"days"`
	RunID          string      `json:"run_id,omitempty"`
	SnapshotSource string      `json:"snapshot_source"`
	Cached         bool        `json:"cached"`
}

func newForecastView(result *app.ForecastResult) forecastView {
	return forecastView{
		Days:           result.Days,
		RunID:          result.RunID,
		SnapshotSource: result.Snapshot,
		Cached:         result.Cached,
	}
}

type modelView struct {
	RunID       string             `json:"run_id"`
	TrainedAt   time.Time          `json:"trained_at"`
	Target      string             `json:"target"`
	Columns     []string           `json:"columns"`
	Params      model.Params       `json:"params"`
	Metrics     model.Metrics      `json:"metrics"`
	Importances []model.Importance `json:"importances"`
}

func newModelView(m *model.Model) modelView {
	return modelView{
		RunID:       m.RunID,
		TrainedAt:   m.TrainedAt,
		Target:      m.Target,
		Columns:     m.Columns,
		Params:      m.Params,
		Metrics:     m.Metrics,
		Importances: m.Importances,
	}
}

type collectView struct {
	RunID    string       `json:"run_id"`
	Records  int          `json:"records"`
	RawPath  string       `json:"raw_path,omitempty"`
	From     *time.Time   `json:"from,omitempty"`
	To       *time.Time   `json:"to,omitempty"`
	AvgAQI   *float64     `json:"avg_aqi"`
	MaxAQI   *float64     `json:"max_aqi"`
	Snapshot *currentView `json:"snapshot,omitempty"`
}

func newCollectView(result *app.CollectResult) collectView {
	out := collectView{
		RunID:   result.RunID,
		Records: result.Summary.Count,
		RawPath: result.RawPath,
		AvgAQI:  optional(result.Summary.AvgAQI),
		MaxAQI:  optional(result.Summary.MaxAQI),
	}
	if result.Summary.Count > 0 {
		from, to := result.Summary.From, result.Summary.To
		out.From, out.To = &from, &to
	}
	if result.Snapshot != nil {
		v := newCurrentView(result.Snapshot, app.SourceFile)
		out.Snapshot = &v
	}
	return out
}

type trainView struct {
	Mode        string             `json:"mode"`
	Rows        int                `json:"rows"`
	RunID       string             `json:"run_id"`
	Metrics     model.Metrics      `json:"metrics"`
	Importances []model.Importance `json:"importances"`
}

func newTrainView(result *app.TrainResult) trainView {
	return trainView{
		Mode:        result.Mode,
		Rows:        result.Rows,
		RunID:       result.Model.RunID,
		Metrics:     result.Model.Metrics,
		Importances: result.Model.Importances,
	}
}
