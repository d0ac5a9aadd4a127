package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smukkama/aqi-predictor/internal/protocol"
	"github.com/smukkama/aqi-predictor/pkg/config"
)

func TestKeys(t *testing.T) {
	if got := SnapshotKey("karachi"); got != "aqi:snapshot:karachi" {
		t.Errorf("Expected aqi:snapshot:karachi, got %s", got)
	}
	if got := ForecastKey("karachi"); got != "aqi:forecast:karachi" {
		t.Errorf("Expected aqi:forecast:karachi, got %s", got)
	}
}

func TestNewStore_DefaultTTL(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	s := NewStore(client, 0)
	if s.ttl != 24*time.Hour {
		t.Errorf("Expected default TTL 24h, got %v", s.ttl)
	}
	if s := NewStore(client, time.Hour); s.ttl != time.Hour {
		t.Errorf("Expected TTL 1h, got %v", s.ttl)
	}
}

func TestNew_UnreachableServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := New(ctx, config.RedisConfig{Addr: "127.0.0.1:1", TTL: time.Hour})
	if err == nil {
		t.Fatal("Expected connection error")
	}
}

func TestSetSnapshot_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	s := NewStore(client, time.Hour)
	if err := s.SetSnapshot(ctx, "karachi", &protocol.Snapshot{USAQI: 100, Time: "2024-06-01T00:00"}); err == nil {
		t.Error("Expected error writing to an unreachable server")
	}
}

func TestGetForecast_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewStore(client, time.Hour).GetForecast(ctx, "karachi")
	if err == nil || errors.Is(err, ErrMiss) {
		t.Errorf("Expected connection error, got %v", err)
	}
}
