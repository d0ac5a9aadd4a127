package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smukkama/aqi-predictor/internal/model"
	"github.com/smukkama/aqi-predictor/internal/protocol"
	"github.com/smukkama/aqi-predictor/pkg/config"
)

// ErrMiss is returned when a key is absent or expired
var ErrMiss = errors.New("cache miss")

// SnapshotKey is the Redis key holding a city's latest snapshot
func SnapshotKey(city string) string {
	return fmt.Sprintf("aqi:snapshot:%s", city)
}

// ForecastKey is the Redis key holding a city's latest forecast
func ForecastKey(city string) string {
	return fmt.Sprintf("aqi:forecast:%s", city)
}

// Store keeps the latest snapshot and forecast per city in Redis
type Store struct {
	redis *redis.Client
	ttl   time.Duration
}

// New connects to Redis and verifies the connection
func New(ctx context.Context, cfg config.RedisConfig) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewStore(client, cfg.TTL), nil
}

// NewStore wraps an existing client
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{redis: client, ttl: ttl}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.redis.Close()
}

func (s *Store) set(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := s.redis.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s in Redis: %w", key, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string, v interface{}) error {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("failed to get %s from Redis: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}

// SetSnapshot stores the latest snapshot for city
func (s *Store) SetSnapshot(ctx context.Context, city string, snap *protocol.Snapshot) error {
	return s.set(ctx, SnapshotKey(city), snap)
}

// GetSnapshot returns the cached snapshot or ErrMiss
func (s *Store) GetSnapshot(ctx context.Context, city string) (*protocol.Snapshot, error) {
	var snap protocol.Snapshot
	if err := s.get(ctx, SnapshotKey(city), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Forecast is a published forecast as kept in the cache
type Forecast struct {
	RunID       string      `json:"run_id,omitempty"`
	GeneratedAt time.Time   `json:"generated_at"`
	Days        []model.Day `json:"days"`
}

// SetForecast stores the latest published forecast for city
func (s *Store) SetForecast(ctx context.Context, city string, f *Forecast) error {
	return s.set(ctx, ForecastKey(city), f)
}

// GetForecast returns the cached forecast or ErrMiss
func (s *Store) GetForecast(ctx context.Context, city string) (*Forecast, error) {
	var f Forecast
	if err := s.get(ctx, ForecastKey(city), &f); err != nil {
		return nil, err
	}
	return &f, nil
}
