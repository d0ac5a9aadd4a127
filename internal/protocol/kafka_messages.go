package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/smukkama/aqi-predictor/internal/aqi"
)

// DateLayout is the calendar date format used on the wire
const DateLayout = "2006-01-02"

// ObservationData carries one reading. Missing values are null.
type ObservationData struct {
	Timestamp string   `json:"timestamp"`
	PM25      *float64 `json:"pm2_5"`
	PM10      *float64 `json:"pm10"`
	Ozone     *float64 `json:"ozone"`
	AQI       *float64 `json:"aqi"`
	Category  string   `json:"aqi_category"`
}

// ObservationMessage is the Kafka message for one collected record
type ObservationMessage struct {
	Type       MessageType     `json:"type"`
	RunID      string          `json:"run_id"`
	City       string          `json:"city"`
	Latitude   float64         `json:"latitude"`
	Longitude  float64         `json:"longitude"`
	ReceivedAt time.Time       `json:"received_at"`
	Data       ObservationData `json:"data"`
}

// NewObservationMessage wraps a record for publishing
func NewObservationMessage(rec aqi.Record, runID string, receivedAt time.Time) *ObservationMessage {
	return &ObservationMessage{
		Type:       MsgTypeObservation,
		RunID:      runID,
		City:       rec.City,
		Latitude:   rec.Latitude,
		Longitude:  rec.Longitude,
		ReceivedAt: receivedAt,
		Data: ObservationData{
			Timestamp: rec.Timestamp.Format(time.RFC3339),
			PM25:      optional(rec.PM25),
			PM10:      optional(rec.PM10),
			Ozone:     optional(rec.Ozone),
			AQI:       optional(rec.AQI),
			Category:  string(rec.Category),
		},
	}
}

// Record converts the message back to a record. AQI is recomputed from pm2.5.
func (m *ObservationMessage) Record() (aqi.Record, error) {
	ts, err := time.Parse(time.RFC3339, m.Data.Timestamp)
	if err != nil {
		return aqi.Record{}, fmt.Errorf("invalid observation timestamp: %w", err)
	}
	return aqi.NewRecord(aqi.Observation{
		Timestamp: ts,
		PM25:      valueOf(m.Data.PM25),
		PM10:      valueOf(m.Data.PM10),
		Ozone:     valueOf(m.Data.Ozone),
		City:      m.City,
		Latitude:  m.Latitude,
		Longitude: m.Longitude,
	}), nil
}

// PredictionMessage is the Kafka message for one forecast day
type PredictionMessage struct {
	Type         MessageType `json:"type"`
	RunID        string      `json:"run_id,omitempty"`
	City         string      `json:"city"`
	GeneratedAt  time.Time   `json:"generated_at"`
	TargetDate   string      `json:"target_date"`
	PredictedAQI float64     `json:"predicted_aqi"`
	Category     string      `json:"category"`
	Source       string      `json:"source"`
}

// NewPredictionMessage wraps one forecast day for publishing
func NewPredictionMessage(city, runID string, generatedAt, targetDate time.Time, predicted float64, source string) *PredictionMessage {
	return &PredictionMessage{
		Type:         MsgTypePrediction,
		RunID:        runID,
		City:         city,
		GeneratedAt:  generatedAt,
		TargetDate:   targetDate.Format(DateLayout),
		PredictedAQI: predicted,
		Category:     string(aqi.CategoryOf(predicted)),
		Source:       source,
	}
}

// Target parses the target date in loc
func (m *PredictionMessage) Target(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, m.TargetDate, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid target date: %w", err)
	}
	return t, nil
}

// EncodeObservationMessage encodes an ObservationMessage to JSON
func EncodeObservationMessage(msg *ObservationMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeObservationMessage decodes JSON to ObservationMessage
func DecodeObservationMessage(data []byte) (*ObservationMessage, error) {
	var msg ObservationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// EncodePredictionMessage encodes a PredictionMessage to JSON
func EncodePredictionMessage(msg *PredictionMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodePredictionMessage decodes JSON to PredictionMessage
func DecodePredictionMessage(data []byte) (*PredictionMessage, error) {
	var msg PredictionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
