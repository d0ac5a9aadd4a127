package protocol

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// MessageType tags every message published to Kafka or MQTT
type MessageType string

const (
	MsgTypeObservation MessageType = "observation"
	MsgTypePrediction  MessageType = "prediction"
	MsgTypeSnapshot    MessageType = "snapshot"
)

// BaseMessage is the common structure for all messages
type BaseMessage struct {
	Type MessageType `json:"type"`
}

// SnapshotTimeLayout is the minute-resolution local time the air-quality API reports
const SnapshotTimeLayout = "2006-01-02T15:04"

// Snapshot is the latest current conditions, also stored as current_aqi.json
type Snapshot struct {
	USAQI float64 `json:"us_aqi"`
	PM25  float64 `json:"pm2_5"`
	PM10  float64 `json:"pm10"`
	Time  string  `json:"time"`
}

type snapshotJSON struct {
	USAQI *float64 `json:"us_aqi"`
	PM25  *float64 `json:"pm2_5"`
	PM10  *float64 `json:"pm10"`
	Time  string   `json:"time"`
}

// MarshalJSON writes missing readings as null
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotJSON{
		USAQI: optional(s.USAQI),
		PM25:  optional(s.PM25),
		PM10:  optional(s.PM10),
		Time:  s.Time,
	})
}

// UnmarshalJSON reads null readings back as NaN
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw snapshotJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Snapshot{
		USAQI: valueOf(raw.USAQI),
		PM25:  valueOf(raw.PM25),
		PM10:  valueOf(raw.PM10),
		Time:  raw.Time,
	}
	return nil
}

// PlaceholderSnapshot is shown when no snapshot can be read
func PlaceholderSnapshot(now time.Time) *Snapshot {
	return &Snapshot{
		USAQI: 145,
		PM25:  45.2,
		PM10:  78.5,
		Time:  now.Format(SnapshotTimeLayout),
	}
}

// ParseTime reads the snapshot time in loc. Both the API layout and RFC3339 are accepted.
func (s *Snapshot) ParseTime(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation(SnapshotTimeLayout, s.Time, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s.Time)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid snapshot time %q: %w", s.Time, err)
	}
	return t.In(loc), nil
}

// SnapshotMessage wraps a snapshot for MQTT
type SnapshotMessage struct {
	Type     MessageType `json:"type"`
	City     string      `json:"city"`
	Snapshot Snapshot    `json:"snapshot"`
}

// ParseMessage parses a JSON payload into the appropriate message type
func ParseMessage(data []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	switch base.Type {
	case MsgTypeObservation:
		var msg ObservationMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid observation message: %w", err)
		}
		if err := validateObservation(&msg); err != nil {
			return nil, err
		}
		return &msg, nil

	case MsgTypePrediction:
		var msg PredictionMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid prediction message: %w", err)
		}
		if err := validatePrediction(&msg); err != nil {
			return nil, err
		}
		return &msg, nil

	case MsgTypeSnapshot:
		var msg SnapshotMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid snapshot message: %w", err)
		}
		if msg.Snapshot.Time == "" {
			return nil, fmt.Errorf("snapshot time is required")
		}
		return &msg, nil

	default:
		return nil, fmt.Errorf("unknown message type: %s", base.Type)
	}
}

// validateObservation validates an observation message
func validateObservation(msg *ObservationMessage) error {
	if msg.City == "" {
		return fmt.Errorf("city is required")
	}
	if msg.Data.Timestamp == "" {
		return fmt.Errorf("timestamp is required")
	}
	if _, err := time.Parse(time.RFC3339, msg.Data.Timestamp); err != nil {
		return fmt.Errorf("invalid timestamp format (must be RFC3339): %w", err)
	}
	return nil
}

// validatePrediction validates a prediction message
func validatePrediction(msg *PredictionMessage) error {
	if msg.City == "" {
		return fmt.Errorf("city is required")
	}
	if _, err := time.Parse(DateLayout, msg.TargetDate); err != nil {
		return fmt.Errorf("invalid target date (must be YYYY-MM-DD): %w", err)
	}
	return nil
}

// EncodeMessage encodes a message to JSON
func EncodeMessage(msg interface{}) ([]byte, error) {
	return json.Marshal(msg)
}

// optional converts a missing reading to a JSON null
func optional(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// valueOf converts a JSON null back to a missing reading
func valueOf(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}
