package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Location  LocationConfig
	Collector CollectorConfig
	Data      DataConfig
	Model     ModelConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	MQTT      MQTTConfig
	Dashboard DashboardConfig
	Schedule  ScheduleConfig
}

// LocationConfig identifies the single city the pipeline runs for
type LocationConfig struct {
	CityName  string  `env:"CITY_NAME, default=Karachi"`
	Latitude  float64 `env:"CITY_LATITUDE, default=24.8607"`
	Longitude float64 `env:"CITY_LONGITUDE, default=67.0011"`
	Timezone  string  `env:"CITY_TIMEZONE, default=Asia/Karachi"`
}

// Slug is the lowercase city name used in file names and keys
func (l LocationConfig) Slug() string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(l.CityName)), " ", "_")
}

// Load returns the configured timezone, falling back to UTC
func (l LocationConfig) Load() *time.Location {
	loc, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type CollectorConfig struct {
	BaseURL        string        `env:"AIR_QUALITY_URL, default=https://air-quality-api.open-meteo.com/v1/air-quality"`
	LookbackDays   int           `env:"LOOKBACK_DAYS, default=3"`
	CurrentTimeout time.Duration `env:"COLLECTOR_CURRENT_TIMEOUT, default=10s"`
	HistoryTimeout time.Duration `env:"COLLECTOR_HISTORY_TIMEOUT, default=30s"`
}

type DataConfig struct {
	Dir string `env:"DATA_DIR, default=data"`
}

func (d DataConfig) RawDir() string {
	return filepath.Join(d.Dir, "raw")
}

func (d DataConfig) SnapshotPath() string {
	return filepath.Join(d.Dir, "processed", "current_aqi.json")
}

type ModelConfig struct {
	Path           string  `env:"MODEL_PATH, default=models/aqi_model.json"`
	RandomSeed     int64   `env:"MODEL_RANDOM_SEED, default=42"`
	EnsembleSize   int     `env:"MODEL_ENSEMBLE_SIZE, default=100"`
	MaxDepth       int     `env:"MODEL_MAX_DEPTH, default=0"`
	MinSamplesLeaf int     `env:"MODEL_MIN_SAMPLES_LEAF, default=1"`
	TestFraction   float64 `env:"MODEL_TEST_FRACTION, default=0.2"`
	// FeatureMode selects the training table: daily or hourly
	FeatureMode string `env:"MODEL_FEATURE_MODE, default=daily"`
	// LabelMode selects the hourly label: next_day or shifted_group
	LabelMode string `env:"MODEL_LABEL_MODE, default=next_day"`
}

type DatabaseConfig struct {
	Enabled       bool   `env:"DB_ENABLED, default=false"`
	Host          string `env:"DB_HOST, default=localhost"`
	Port          int    `env:"DB_PORT, default=5432"`
	User          string `env:"DB_USER, default=aqi_user"`
	Password      string `env:"DB_PASSWORD, default=aqi_pass"`
	DBName        string `env:"DB_NAME, default=aqi_db"`
	SSLMode       string `env:"DB_SSLMODE, default=disable"`
	MigrationsDir string `env:"DB_MIGRATIONS_DIR, default=migrations"`
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Enabled  bool          `env:"REDIS_ENABLED, default=false"`
	Addr     string        `env:"REDIS_ADDR, default=localhost:6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB, default=0"`
	TTL      time.Duration `env:"REDIS_SNAPSHOT_TTL, default=24h"`
}

type KafkaConfig struct {
	Enabled           bool          `env:"KAFKA_ENABLED, default=false"`
	Brokers           []string      `env:"KAFKA_BROKERS, default=localhost:9092"`
	TopicObservations string        `env:"KAFKA_TOPIC_OBSERVATIONS, default=aqi.observations.raw"`
	TopicPredictions  string        `env:"KAFKA_TOPIC_PREDICTIONS, default=aqi.predictions"`
	GroupID           string        `env:"KAFKA_GROUP_ID, default=aqi-dbwriter"`
	Partitions        int           `env:"KAFKA_PARTITIONS, default=3"`
	ReplicationFactor int           `env:"KAFKA_REPLICATION_FACTOR, default=1"`
	BatchSize         int           `env:"KAFKA_BATCH_SIZE, default=100"`
	FlushInterval     time.Duration `env:"KAFKA_FLUSH_INTERVAL, default=5s"`
}

type MQTTConfig struct {
	Broker   string `env:"MQTT_BROKER"`
	ClientID string `env:"MQTT_CLIENT_ID, default=aqi-predictor"`
	Username string `env:"MQTT_USERNAME"`
	Password string `env:"MQTT_PASSWORD"`
	// TopicPattern has {city} replaced with the city slug
	TopicPattern string `env:"MQTT_TOPIC, default=aqi/{city}/current"`
}

func (m MQTTConfig) Enabled() bool {
	return m.Broker != ""
}

type DashboardConfig struct {
	Port    int    `env:"DASHBOARD_PORT, default=8501"`
	Host    string `env:"DASHBOARD_HOST, default=0.0.0.0"`
	GinMode string `env:"GIN_MODE, default=release"`
}

func (d DashboardConfig) Addr() string {
	return fmt.Sprintf("%s:%d", d.Host, d.Port)
}

type ScheduleConfig struct {
	CollectDelay time.Duration `env:"SCHEDULE_COLLECT_DELAY, default=5m"`
	DailyTime    string        `env:"SCHEDULE_DAILY_TIME, default=00:05"`
}

func Load(ctx context.Context) (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Location.CityName) == "" {
		return fmt.Errorf("invalid config: CITY_NAME is required")
	}
	if c.Location.Latitude < -90 || c.Location.Latitude > 90 {
		return fmt.Errorf("invalid config: CITY_LATITUDE %v out of range", c.Location.Latitude)
	}
	if c.Location.Longitude < -180 || c.Location.Longitude > 180 {
		return fmt.Errorf("invalid config: CITY_LONGITUDE %v out of range", c.Location.Longitude)
	}
	if c.Collector.LookbackDays < 1 {
		return fmt.Errorf("invalid config: LOOKBACK_DAYS must be at least 1")
	}
	if c.Model.EnsembleSize < 1 {
		return fmt.Errorf("invalid config: MODEL_ENSEMBLE_SIZE must be at least 1")
	}
	if c.Model.TestFraction <= 0 || c.Model.TestFraction >= 1 {
		return fmt.Errorf("invalid config: MODEL_TEST_FRACTION must be in (0, 1)")
	}
	switch c.Model.FeatureMode {
	case "daily", "hourly":
	default:
		return fmt.Errorf("invalid config: MODEL_FEATURE_MODE %q (expected daily or hourly)", c.Model.FeatureMode)
	}
	switch c.Model.LabelMode {
	case "next_day", "shifted_group":
	default:
		return fmt.Errorf("invalid config: MODEL_LABEL_MODE %q (expected next_day or shifted_group)", c.Model.LabelMode)
	}
	return nil
}
