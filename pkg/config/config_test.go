package config

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Location.CityName != "Karachi" {
		t.Errorf("Expected city Karachi, got %s", cfg.Location.CityName)
	}
	if cfg.Model.RandomSeed != 42 {
		t.Errorf("Expected seed 42, got %d", cfg.Model.RandomSeed)
	}
	if cfg.Model.EnsembleSize != 100 {
		t.Errorf("Expected ensemble size 100, got %d", cfg.Model.EnsembleSize)
	}
	if cfg.Collector.HistoryTimeout != 30*time.Second {
		t.Errorf("Expected history timeout 30s, got %v", cfg.Collector.HistoryTimeout)
	}
	if cfg.Collector.LookbackDays != 3 {
		t.Errorf("Expected lookback 3 days, got %d", cfg.Collector.LookbackDays)
	}
	if len(cfg.Kafka.Brokers) != 1 || cfg.Kafka.Brokers[0] != "localhost:9092" {
		t.Errorf("Expected default broker list, got %v", cfg.Kafka.Brokers)
	}
	if cfg.MQTT.Enabled() {
		t.Error("MQTT should be disabled without a broker")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CITY_NAME", "Lahore")
	t.Setenv("CITY_LATITUDE", "31.5204")
	t.Setenv("MODEL_ENSEMBLE_SIZE", "25")
	t.Setenv("MODEL_FEATURE_MODE", "hourly")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Location.CityName != "Lahore" {
		t.Errorf("Expected city Lahore, got %s", cfg.Location.CityName)
	}
	if cfg.Location.Latitude != 31.5204 {
		t.Errorf("Expected latitude 31.5204, got %v", cfg.Location.Latitude)
	}
	if cfg.Model.EnsembleSize != 25 {
		t.Errorf("Expected ensemble size 25, got %d", cfg.Model.EnsembleSize)
	}
	if cfg.Model.FeatureMode != "hourly" {
		t.Errorf("Expected hourly feature mode, got %s", cfg.Model.FeatureMode)
	}
	if len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("Expected 2 brokers, got %v", cfg.Kafka.Brokers)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"MODEL_ENSEMBLE_SIZE", "0", "MODEL_ENSEMBLE_SIZE"},
		{"MODEL_FEATURE_MODE", "weekly", "MODEL_FEATURE_MODE"},
		{"MODEL_LABEL_MODE", "tomorrow", "MODEL_LABEL_MODE"},
		{"CITY_LATITUDE", "123", "CITY_LATITUDE"},
		{"LOOKBACK_DAYS", "0", "LOOKBACK_DAYS"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load(context.Background())
			if err == nil {
				t.Fatalf("Expected error for %s=%s", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}

func TestLocationConfig_Slug(t *testing.T) {
	loc := LocationConfig{CityName: " New Delhi "}
	if got := loc.Slug(); got != "new_delhi" {
		t.Errorf("Expected new_delhi, got %s", got)
	}
}

func TestLocationConfig_LoadFallsBackToUTC(t *testing.T) {
	loc := LocationConfig{Timezone: "Not/AZone"}
	if got := loc.Load(); got != time.UTC {
		t.Errorf("Expected UTC fallback, got %v", got)
	}
}
