// Package app wires the collector, feature engineering, trainer and the
// optional sinks into the pipeline operations the binaries run.
package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/smukkama/aqi-predictor/internal/aqi"
	"github.com/smukkama/aqi-predictor/internal/cache"
	"github.com/smukkama/aqi-predictor/internal/collector"
	"github.com/smukkama/aqi-predictor/internal/database"
	"github.com/smukkama/aqi-predictor/internal/model"
	"github.com/smukkama/aqi-predictor/internal/mqtt"
	"github.com/smukkama/aqi-predictor/internal/protocol"
	"github.com/smukkama/aqi-predictor/internal/queue"
	"github.com/smukkama/aqi-predictor/internal/storage"
	"github.com/smukkama/aqi-predictor/pkg/config"
)

// Fetcher retrieves observations from the air-quality API
type Fetcher interface {
	FetchCurrent(ctx context.Context) (*protocol.Snapshot, error)
	FetchHistory(ctx context.Context, days int) ([]aqi.Observation, error)
}

// SnapshotCache holds the latest snapshot and forecast per city
type SnapshotCache interface {
	SetSnapshot(ctx context.Context, city string, snap *protocol.Snapshot) error
	GetSnapshot(ctx context.Context, city string) (*protocol.Snapshot, error)
	SetForecast(ctx context.Context, city string, f *cache.Forecast) error
	GetForecast(ctx context.Context, city string) (*cache.Forecast, error)
}

// SnapshotPublisher pushes the latest snapshot to subscribers
type SnapshotPublisher interface {
	PublishSnapshot(city string, snap *protocol.Snapshot) error
}

// Repository is the part of the database the pipeline writes to
type Repository interface {
	UpsertLocation(ctx context.Context, loc *database.Location) (int64, error)
	InsertObservations(ctx context.Context, observations []*database.Observation) (int, error)
	RecentDailyFeatures(ctx context.Context, locationID int64, limit int) ([]database.DailyFeature, error)
	InsertModelRun(ctx context.Context, run *database.ModelRun) error
	InsertPredictions(ctx context.Context, predictions []*database.Prediction) error
}

// Sinks are the optional outputs. A nil sink is skipped; a failing sink
// is logged and skipped.
type Sinks struct {
	Cache        SnapshotCache
	Observations queue.BatchPublisher
	Predictions  queue.BatchPublisher
	MQTT         SnapshotPublisher
	DB           Repository
}

// Pipeline runs collection, training and forecasting for one city
type Pipeline struct {
	cfg      *config.Config
	fetch    Fetcher
	raw      *storage.RawStore
	snapshot *storage.SnapshotFile
	sinks    Sinks
	loc      *time.Location
	now      func() time.Time

	mu         sync.Mutex
	locationID int64
}

// New creates a pipeline over the configured data directory
func New(cfg *config.Config, fetch Fetcher, sinks Sinks) *Pipeline {
	loc := cfg.Location.Load()
	p := &Pipeline{
		cfg:      cfg,
		fetch:    fetch,
		raw:      storage.NewRawStore(cfg.Data.RawDir(), cfg.Location.Slug(), loc),
		snapshot: storage.NewSnapshotFile(cfg.Data.SnapshotPath()),
		sinks:    sinks,
		loc:      loc,
		now:      time.Now,
	}
	// Run files are named by the pipeline's clock
	p.raw.SetClock(func() time.Time { return p.now() })
	return p
}

// Open creates a pipeline with the real collector and every sink the
// configuration enables. Sinks that cannot connect are left out. The
// returned function closes whatever was opened.
func Open(ctx context.Context, cfg *config.Config) (*Pipeline, func()) {
	var sinks Sinks
	var closers []func()

	if cfg.Redis.Enabled {
		store, err := cache.New(ctx, cfg.Redis)
		if err != nil {
			log.Printf("Redis unavailable, snapshot cache disabled: %v", err)
		} else {
			sinks.Cache = store
			closers = append(closers, func() { store.Close() })
		}
	}

	if cfg.Kafka.Enabled {
		obs := queue.NewProducer(cfg.Kafka, cfg.Kafka.TopicObservations)
		pred := queue.NewProducer(cfg.Kafka, cfg.Kafka.TopicPredictions)
		sinks.Observations = obs
		sinks.Predictions = pred
		closers = append(closers, func() { obs.Close() }, func() { pred.Close() })
	}

	if cfg.MQTT.Enabled() {
		pub, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			log.Printf("MQTT unavailable, snapshot publishing disabled: %v", err)
		} else {
			sinks.MQTT = pub
			closers = append(closers, pub.Close)
		}
	}

	if cfg.Database.Enabled {
		db, err := database.Connect(cfg.Database.ConnectionString())
		if err != nil {
			log.Printf("Database unavailable, persistence disabled: %v", err)
		} else {
			sinks.DB = db
			closers = append(closers, func() { db.Close() })
		}
	}

	p := New(cfg, collector.New(cfg.Location, cfg.Collector), sinks)
	return p, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}

// Config returns the pipeline configuration
func (p *Pipeline) Config() *config.Config {
	return p.cfg
}

// Location returns the configured timezone
func (p *Pipeline) Location() *time.Location {
	return p.loc
}

// LoadModel reads the persisted model
func (p *Pipeline) LoadModel() (*model.Model, error) {
	return model.Load(p.cfg.Model.Path)
}

var errNoRepository = errors.New("no database configured")

// dbLocation returns the city's location id, creating it on first use
func (p *Pipeline) dbLocation(ctx context.Context) (int64, error) {
	if p.sinks.DB == nil {
		return 0, errNoRepository
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.locationID != 0 {
		return p.locationID, nil
	}

	lat, lon, tz := p.cfg.Location.Latitude, p.cfg.Location.Longitude, p.cfg.Location.Timezone
	id, err := p.sinks.DB.UpsertLocation(ctx, &database.Location{
		CityName: p.cfg.Location.CityName,
		Lat:      &lat,
		Lon:      &lon,
		Timezone: &tz,
	})
	if err != nil {
		return 0, err
	}
	p.locationID = id
	return id, nil
}
