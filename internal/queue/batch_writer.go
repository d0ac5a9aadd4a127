package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/smukkama/aqi-predictor/internal/database"
	"github.com/smukkama/aqi-predictor/internal/protocol"
)

// MessageSource is the part of Consumer the writer reads from
type MessageSource interface {
	Consume(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msgs ...kafka.Message) error
}

// Sink persists decoded messages
type Sink interface {
	UpsertLocation(ctx context.Context, loc *database.Location) (int64, error)
	InsertObservations(ctx context.Context, observations []*database.Observation) (int, error)
	InsertPredictions(ctx context.Context, predictions []*database.Prediction) error
}

// BatchWriter consumes from Kafka and batch-writes to database
type BatchWriter struct {
	consumer      MessageSource
	db            Sink
	batchSize     int
	flushInterval time.Duration
	locations     map[string]int64
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

// NewBatchWriter creates a new batch writer
func NewBatchWriter(consumer MessageSource, db Sink, batchSize int, flushInterval time.Duration) *BatchWriter {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &BatchWriter{
		consumer:      consumer,
		db:            db,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		locations:     make(map[string]int64),
		stopCh:        make(chan struct{}),
	}
}

// Start begins consuming and writing to database
func (bw *BatchWriter) Start(ctx context.Context) error {
	bw.wg.Add(1)
	go bw.run(ctx)
	return nil
}

// Stop stops the batch writer gracefully
func (bw *BatchWriter) Stop() {
	close(bw.stopCh)
	bw.wg.Wait()
}

func (bw *BatchWriter) run(ctx context.Context) {
	defer bw.wg.Done()

	var batch []kafka.Message
	ticker := time.NewTicker(bw.flushInterval)
	defer ticker.Stop()

	consumeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	msgChan := make(chan kafka.Message, 10)
	go func() {
		for {
			msg, err := bw.consumer.Consume(consumeCtx)
			if err != nil {
				if consumeCtx.Err() != nil {
					return
				}
				fmt.Printf("Consumer error: %v\n", err)
				time.Sleep(time.Second)
				continue
			}
			select {
			case msgChan <- msg:
			case <-consumeCtx.Done():
				return
			}
		}
	}()

	for {
		// A batch that failed to flush stays pending; stop reading until it
		// goes through so it cannot grow without bound.
		in := msgChan
		if len(batch) >= bw.batchSize {
			in = nil
		}

		select {
		case <-bw.stopCh:
			// Flush remaining batch before stopping
			if len(batch) > 0 {
				bw.flush(ctx, batch)
			}
			return

		case <-ctx.Done():
			return

		case <-ticker.C:
			if len(batch) > 0 {
				fmt.Printf("Flush interval reached (%d messages), flushing...\n", len(batch))
				batch = bw.flushOrKeep(ctx, batch)
			}

		case msg := <-in:
			batch = append(batch, msg)

			if len(batch) >= bw.batchSize {
				fmt.Printf("Batch full (%d messages), flushing...\n", len(batch))
				batch = bw.flushOrKeep(ctx, batch)
			}
		}
	}
}

// flushOrKeep returns nil once the batch is written, or the batch itself
// to be retried on the next tick
func (bw *BatchWriter) flushOrKeep(ctx context.Context, batch []kafka.Message) []kafka.Message {
	if _, err := bw.flush(ctx, batch); err != nil {
		fmt.Printf("Keeping %d messages for retry in %v\n", len(batch), bw.flushInterval)
		return batch
	}
	return nil
}

// flush writes a batch and commits its offsets. Undecodable messages are
// skipped and committed with the rest; on a failed write nothing is
// committed and the error is returned.
func (bw *BatchWriter) flush(ctx context.Context, batch []kafka.Message) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	var observations []*database.Observation
	var predictions []*database.Prediction
	for _, msg := range batch {
		obs, pred, err := bw.processMessage(ctx, msg)
		if err != nil {
			fmt.Printf("Failed to process message (partition=%d, offset=%d): %v\n", msg.Partition, msg.Offset, err)
			continue
		}
		if obs != nil {
			observations = append(observations, obs)
		}
		if pred != nil {
			predictions = append(predictions, pred)
		}
	}

	written, err := bw.db.InsertObservations(ctx, observations)
	if err != nil {
		fmt.Printf("Failed to write observations: %v\n", err)
		return 0, err
	}
	if err := bw.db.InsertPredictions(ctx, predictions); err != nil {
		fmt.Printf("Failed to write predictions: %v\n", err)
		return written, err
	}

	if err := bw.consumer.Commit(ctx, batch...); err != nil {
		fmt.Printf("Failed to commit offsets: %v\n", err)
	}

	fmt.Printf("Flushed %d observations and %d predictions to database\n", written, len(predictions))
	return written + len(predictions), nil
}

var errUnsupportedMessage = errors.New("unsupported message type")

func (bw *BatchWriter) processMessage(ctx context.Context, msg kafka.Message) (*database.Observation, *database.Prediction, error) {
	parsed, err := protocol.ParseMessage(msg.Value)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode message: %w", err)
	}

	switch m := parsed.(type) {
	case *protocol.ObservationMessage:
		rec, err := m.Record()
		if err != nil {
			return nil, nil, err
		}
		locationID, err := bw.locationID(ctx, m.City, m.Latitude, m.Longitude)
		if err != nil {
			return nil, nil, err
		}
		return database.NewObservation(locationID, rec, m.RunID, m.ReceivedAt), nil, nil

	case *protocol.PredictionMessage:
		target, err := m.Target(time.UTC)
		if err != nil {
			return nil, nil, err
		}
		locationID, err := bw.locationID(ctx, m.City, 0, 0)
		if err != nil {
			return nil, nil, err
		}
		pred := &database.Prediction{
			LocationID:   locationID,
			TargetDate:   target,
			PredictedAQI: m.PredictedAQI,
			Category:     m.Category,
			Source:       m.Source,
			GeneratedAt:  m.GeneratedAt,
		}
		if m.RunID != "" {
			runID := m.RunID
			pred.RunID = &runID
		}
		return nil, pred, nil

	default:
		return nil, nil, fmt.Errorf("%w: %T", errUnsupportedMessage, parsed)
	}
}

// locationID resolves a city, creating it on first sight
func (bw *BatchWriter) locationID(ctx context.Context, city string, lat, lon float64) (int64, error) {
	if id, ok := bw.locations[city]; ok {
		return id, nil
	}

	loc := &database.Location{CityName: city}
	if lat != 0 || lon != 0 {
		loc.Lat = &lat
		loc.Lon = &lon
	}
	id, err := bw.db.UpsertLocation(ctx, loc)
	if err != nil {
		return 0, fmt.Errorf("failed to create location: %w", err)
	}
	bw.locations[city] = id
	return id, nil
}
