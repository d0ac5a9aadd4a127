package queue

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/smukkama/aqi-predictor/internal/protocol"
)

// BatchPublisher is the part of Producer the encoders need
type BatchPublisher interface {
	PublishBatch(ctx context.Context, messages []kafka.Message) error
}

// ObservationBatch encodes observation messages keyed by city
func ObservationBatch(msgs []*protocol.ObservationMessage) ([]kafka.Message, error) {
	out := make([]kafka.Message, 0, len(msgs))
	for _, m := range msgs {
		value, err := protocol.EncodeObservationMessage(m)
		if err != nil {
			return nil, fmt.Errorf("failed to encode observation: %w", err)
		}
		out = append(out, kafka.Message{Key: []byte(CityKey(m.City)), Value: value})
	}
	return out, nil
}

// PredictionBatch encodes prediction messages keyed by city
func PredictionBatch(msgs []*protocol.PredictionMessage) ([]kafka.Message, error) {
	out := make([]kafka.Message, 0, len(msgs))
	for _, m := range msgs {
		value, err := protocol.EncodePredictionMessage(m)
		if err != nil {
			return nil, fmt.Errorf("failed to encode prediction: %w", err)
		}
		out = append(out, kafka.Message{Key: []byte(CityKey(m.City)), Value: value})
	}
	return out, nil
}

// PublishObservations encodes and writes a batch of observations
func PublishObservations(ctx context.Context, p BatchPublisher, msgs []*protocol.ObservationMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	batch, err := ObservationBatch(msgs)
	if err != nil {
		return err
	}
	return p.PublishBatch(ctx, batch)
}

// PublishPredictions encodes and writes a batch of predictions
func PublishPredictions(ctx context.Context, p BatchPublisher, msgs []*protocol.PredictionMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	batch, err := PredictionBatch(msgs)
	if err != nil {
		return err
	}
	return p.PublishBatch(ctx, batch)
}
