package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/smukkama/aqi-predictor/internal/aqi"
	"github.com/smukkama/aqi-predictor/internal/database"
	"github.com/smukkama/aqi-predictor/internal/protocol"
)

type fakeSource struct {
	committed []kafka.Message
}

func (s *fakeSource) Consume(ctx context.Context) (kafka.Message, error) {
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (s *fakeSource) Commit(ctx context.Context, msgs ...kafka.Message) error {
	s.committed = append(s.committed, msgs...)
	return nil
}

type fakeSink struct {
	locations    []*database.Location
	observations []*database.Observation
	predictions  []*database.Prediction
	err          error
}

func (s *fakeSink) UpsertLocation(ctx context.Context, loc *database.Location) (int64, error) {
	s.locations = append(s.locations, loc)
	return int64(len(s.locations)), nil
}

func (s *fakeSink) InsertObservations(ctx context.Context, observations []*database.Observation) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.observations = append(s.observations, observations...)
	return len(observations), nil
}

func (s *fakeSink) InsertPredictions(ctx context.Context, predictions []*database.Prediction) error {
	if s.err != nil {
		return s.err
	}
	s.predictions = append(s.predictions, predictions...)
	return nil
}

// queuedSource hands out pending messages, then blocks; done closes once
// want messages are committed
type queuedSource struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []kafka.Message
	want      int
	done      chan struct{}
}

func (s *queuedSource) Consume(ctx context.Context) (kafka.Message, error) {
	s.mu.Lock()
	if len(s.pending) > 0 {
		msg := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()
		return msg, nil
	}
	s.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (s *queuedSource) Commit(ctx context.Context, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.committed)
	s.committed = append(s.committed, msgs...)
	if before < s.want && len(s.committed) >= s.want {
		close(s.done)
	}
	return nil
}

// flakySink fails the first failures observation writes
type flakySink struct {
	fakeSink
	failures int
	attempts int
}

func (s *flakySink) InsertObservations(ctx context.Context, observations []*database.Observation) (int, error) {
	s.attempts++
	if s.failures > 0 {
		s.failures--
		return 0, errors.New("db down")
	}
	return s.fakeSink.InsertObservations(ctx, observations)
}

type fakePublisher struct {
	batches [][]kafka.Message
}

func (p *fakePublisher) PublishBatch(ctx context.Context, messages []kafka.Message) error {
	p.batches = append(p.batches, messages)
	return nil
}

func observationMessages(t *testing.T, n int) []kafka.Message {
	t.Helper()
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	msgs := make([]*protocol.ObservationMessage, n)
	for i := range msgs {
		rec := aqi.NewRecord(aqi.Observation{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			PM25:      20 + float64(i),
			PM10:      aqi.Missing(),
			Ozone:     50,
			City:      "Karachi",
			Latitude:  24.86,
			Longitude: 67.0,
		})
		msgs[i] = protocol.NewObservationMessage(rec, "run-1", start)
	}
	batch, err := ObservationBatch(msgs)
	if err != nil {
		t.Fatalf("ObservationBatch failed: %v", err)
	}
	return batch
}

func TestPartitionForCity(t *testing.T) {
	a := PartitionForCity("Karachi", 6)
	b := PartitionForCity(" karachi ", 6)
	if a != b {
		t.Errorf("Expected same partition for same city, got %d and %d", a, b)
	}
	if a < 0 || a >= 6 {
		t.Errorf("Partition %d out of range", a)
	}
	if PartitionForCity("Karachi", 0) != 0 {
		t.Error("Expected partition 0 without partitions")
	}
}

func TestCityBalancer(t *testing.T) {
	partitions := []int{0, 1, 2, 3, 4, 5}
	msg := kafka.Message{Key: []byte(CityKey("Karachi"))}

	got := cityBalancer{}.Balance(msg, partitions...)
	if want := PartitionForCity("Karachi", len(partitions)); got != want {
		t.Errorf("Expected partition %d, got %d", want, got)
	}
	if again := (cityBalancer{}).Balance(msg, partitions...); again != got {
		t.Errorf("Expected stable partition, got %d then %d", got, again)
	}
	if p := (cityBalancer{}).Balance(msg, 7); p != 7 {
		t.Errorf("Expected the only partition 7, got %d", p)
	}
}

func TestObservationBatch_KeyedByCity(t *testing.T) {
	batch := observationMessages(t, 2)
	if len(batch) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(batch))
	}
	if string(batch[0].Key) != "karachi" {
		t.Errorf("Expected key karachi, got %s", batch[0].Key)
	}
}

func TestPublishPredictions(t *testing.T) {
	p := &fakePublisher{}
	if err := PublishPredictions(context.Background(), p, nil); err != nil {
		t.Fatalf("PublishPredictions failed: %v", err)
	}
	if len(p.batches) != 0 {
		t.Error("Expected nothing published for an empty batch")
	}

	msg := protocol.NewPredictionMessage("Karachi", "", time.Now(), time.Now().AddDate(0, 0, 1), 95, "heuristic")
	if err := PublishPredictions(context.Background(), p, []*protocol.PredictionMessage{msg}); err != nil {
		t.Fatalf("PublishPredictions failed: %v", err)
	}
	if len(p.batches) != 1 || len(p.batches[0]) != 1 {
		t.Fatalf("Expected one batch of one message, got %v", p.batches)
	}
}

func TestFlush_WritesAndCommits(t *testing.T) {
	source := &fakeSource{}
	sink := &fakeSink{}
	bw := NewBatchWriter(source, sink, 10, time.Second)

	batch := observationMessages(t, 3)
	pred, _ := PredictionBatch([]*protocol.PredictionMessage{
		protocol.NewPredictionMessage("Karachi", "run-2", time.Now(), time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), 120, "model"),
	})
	batch = append(batch, pred...)
	batch = append(batch, kafka.Message{Value: []byte(`{"type":"unknown"}`)})

	written, err := bw.flush(context.Background(), batch)
	if err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	if written != 4 {
		t.Errorf("Expected 4 rows written, got %d", written)
	}
	if len(sink.locations) != 1 {
		t.Errorf("Expected location to be resolved once, got %d", len(sink.locations))
	}
	if sink.locations[0].Lat == nil || *sink.locations[0].Lat != 24.86 {
		t.Errorf("Expected latitude to be stored, got %v", sink.locations[0].Lat)
	}
	if len(sink.observations) != 3 || sink.observations[0].PM10 != nil {
		t.Errorf("Unexpected observations: %+v", sink.observations)
	}
	if len(sink.predictions) != 1 || *sink.predictions[0].RunID != "run-2" {
		t.Errorf("Unexpected predictions: %+v", sink.predictions)
	}
	if len(source.committed) != len(batch) {
		t.Errorf("Expected %d commits, got %d", len(batch), len(source.committed))
	}
}

func TestFlush_WriteFailureSkipsCommit(t *testing.T) {
	source := &fakeSource{}
	sink := &fakeSink{err: errors.New("db down")}
	bw := NewBatchWriter(source, sink, 10, time.Second)

	if _, err := bw.flush(context.Background(), observationMessages(t, 2)); err == nil {
		t.Fatal("Expected write error")
	}
	if len(source.committed) != 0 {
		t.Errorf("Expected no commits after a failed write, got %d", len(source.committed))
	}
}

func TestBatchWriter_StartStop(t *testing.T) {
	bw := NewBatchWriter(&fakeSource{}, &fakeSink{}, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := bw.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		bw.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestBatchWriter_RetriesFailedBatch(t *testing.T) {
	source := &queuedSource{pending: observationMessages(t, 4), want: 4, done: make(chan struct{})}
	sink := &flakySink{failures: 1}
	bw := NewBatchWriter(source, sink, 2, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := bw.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case <-source.done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected all messages to be committed")
	}
	bw.Stop()

	if len(sink.observations) != 4 {
		t.Errorf("Expected 4 stored observations, got %d", len(sink.observations))
	}
	if sink.attempts < 3 {
		t.Errorf("Expected the failed batch to be written again, got %d attempts", sink.attempts)
	}
	if len(source.committed) != 4 {
		t.Errorf("Expected 4 commits, got %d", len(source.committed))
	}
}
