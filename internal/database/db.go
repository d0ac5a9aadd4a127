package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// DB wraps the database connection
type DB struct {
	*sqlx.DB
}

// Connect establishes a connection to the database
func Connect(connectionString string) (*DB, error) {
	db, err := sqlx.Connect("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	return &DB{db}, nil
}

// MigrationFiles lists the .sql files of dir in execution order
func MigrationFiles(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".sql") {
			sqlFiles = append(sqlFiles, file.Name())
		}
	}
	sort.Strings(sqlFiles)
	return sqlFiles, nil
}

// RunMigrations executes all SQL migration files in order
func (db *DB) RunMigrations(migrationsDir string) error {
	sqlFiles, err := MigrationFiles(migrationsDir)
	if err != nil {
		return err
	}

	for _, filename := range sqlFiles {
		fmt.Printf("Running migration: %s\n", filename)

		content, err := os.ReadFile(filepath.Join(migrationsDir, filename))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}
	}

	fmt.Println("All migrations completed successfully")
	return nil
}

// UpsertLocation inserts or updates a location and returns its id.
// NULL coordinates never overwrite stored ones.
func (db *DB) UpsertLocation(ctx context.Context, loc *Location) (int64, error) {
	query := `
		INSERT INTO locations (city_name, lat, lon, timezone)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (city_name) DO UPDATE
		SET lat = COALESCE(EXCLUDED.lat, locations.lat),
		    lon = COALESCE(EXCLUDED.lon, locations.lon),
		    timezone = COALESCE(EXCLUDED.timezone, locations.timezone),
		    updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`
	var id int64
	if err := db.QueryRowxContext(ctx, query, loc.CityName, loc.Lat, loc.Lon, loc.Timezone).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to upsert location: %w", err)
	}
	loc.ID = id
	return id, nil
}

// InsertObservations writes a batch in one transaction. A reading already
// stored for the same hour is overwritten.
func (db *DB) InsertObservations(ctx context.Context, observations []*Observation) (int, error) {
	if len(observations) == 0 {
		return 0, nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO observations (
			location_id, observed_at, pm2_5, pm10, ozone, aqi, aqi_category, run_id, received_at
		) VALUES (
			:location_id, :observed_at, :pm2_5, :pm10, :ozone, :aqi, :aqi_category, :run_id, :received_at
		)
		ON CONFLICT (location_id, observed_at) DO UPDATE
		SET pm2_5 = EXCLUDED.pm2_5,
		    pm10 = EXCLUDED.pm10,
		    ozone = EXCLUDED.ozone,
		    aqi = EXCLUDED.aqi,
		    aqi_category = EXCLUDED.aqi_category,
		    run_id = EXCLUDED.run_id,
		    received_at = EXCLUDED.received_at
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare observation insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range observations {
		if _, err := stmt.ExecContext(ctx, o); err != nil {
			return 0, fmt.Errorf("failed to insert observation at %s: %w", o.ObservedAt.Format(time.RFC3339), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit observations: %w", err)
	}
	return len(observations), nil
}

// ObservationsBetween returns readings in [from, to) ordered by time
func (db *DB) ObservationsBetween(ctx context.Context, locationID int64, from, to time.Time) ([]Observation, error) {
	query := `
		SELECT id, location_id, observed_at, pm2_5, pm10, ozone, aqi, aqi_category, run_id, received_at
		FROM observations
		WHERE location_id = $1 AND observed_at >= $2 AND observed_at < $3
		ORDER BY observed_at
	`
	var out []Observation
	if err := db.SelectContext(ctx, &out, query, locationID, from, to); err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	return out, nil
}

// UpsertDailyFeature writes one aggregated date
func (db *DB) UpsertDailyFeature(ctx context.Context, d *DailyFeature) error {
	query := `
		INSERT INTO daily_features (
			location_id, date, daily_avg_aqi, daily_max_aqi, daily_min_aqi, daily_std_aqi,
			pm2_5_mean, pm10_mean, ozone_mean, day_of_week, day_name,
			prev_day_aqi, prev_week_aqi, next_day_aqi, samples
		) VALUES (
			:location_id, :date, :daily_avg_aqi, :daily_max_aqi, :daily_min_aqi, :daily_std_aqi,
			:pm2_5_mean, :pm10_mean, :ozone_mean, :day_of_week, :day_name,
			:prev_day_aqi, :prev_week_aqi, :next_day_aqi, :samples
		)
		ON CONFLICT (location_id, date) DO UPDATE
		SET daily_avg_aqi = EXCLUDED.daily_avg_aqi,
		    daily_max_aqi = EXCLUDED.daily_max_aqi,
		    daily_min_aqi = EXCLUDED.daily_min_aqi,
		    daily_std_aqi = EXCLUDED.daily_std_aqi,
		    pm2_5_mean = EXCLUDED.pm2_5_mean,
		    pm10_mean = EXCLUDED.pm10_mean,
		    ozone_mean = EXCLUDED.ozone_mean,
		    prev_day_aqi = EXCLUDED.prev_day_aqi,
		    prev_week_aqi = EXCLUDED.prev_week_aqi,
		    next_day_aqi = EXCLUDED.next_day_aqi,
		    samples = EXCLUDED.samples,
		    updated_at = CURRENT_TIMESTAMP
	`
	if _, err := db.NamedExecContext(ctx, query, d); err != nil {
		return fmt.Errorf("failed to upsert daily feature for %s: %w", d.Date.Format("2006-01-02"), err)
	}
	return nil
}

// RecentDailyFeatures returns up to limit most recent dates, oldest first
func (db *DB) RecentDailyFeatures(ctx context.Context, locationID int64, limit int) ([]DailyFeature, error) {
	query := `
		SELECT * FROM (
			SELECT id, location_id, date, daily_avg_aqi, daily_max_aqi, daily_min_aqi, daily_std_aqi,
			       pm2_5_mean, pm10_mean, ozone_mean, day_of_week, day_name,
			       prev_day_aqi, prev_week_aqi, next_day_aqi, samples, created_at, updated_at
			FROM daily_features
			WHERE location_id = $1
			ORDER BY date DESC
			LIMIT $2
		) recent
		ORDER BY date
	`
	var out []DailyFeature
	if err := db.SelectContext(ctx, &out, query, locationID, limit); err != nil {
		return nil, fmt.Errorf("failed to query daily features: %w", err)
	}
	return out, nil
}

// InsertModelRun records a training run
func (db *DB) InsertModelRun(ctx context.Context, run *ModelRun) error {
	query := `
		INSERT INTO model_runs (
			run_id, trained_at, feature_mode, columns, train_rows, test_rows,
			mae, rmse, r2, importances, model_path
		) VALUES (
			:run_id, :trained_at, :feature_mode, :columns, :train_rows, :test_rows,
			:mae, :rmse, :r2, :importances, :model_path
		)
		ON CONFLICT (run_id) DO NOTHING
	`
	if _, err := db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("failed to insert model run: %w", err)
	}
	return nil
}

// InsertPredictions writes forecast days in one transaction
func (db *DB) InsertPredictions(ctx context.Context, predictions []*Prediction) error {
	if len(predictions) == 0 {
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO predictions (
			location_id, run_id, target_date, predicted_aqi, category, source, generated_at
		) VALUES (
			:location_id, :run_id, :target_date, :predicted_aqi, :category, :source, :generated_at
		)
		ON CONFLICT (location_id, target_date, generated_at) DO NOTHING
	`
	for _, p := range predictions {
		if _, err := tx.NamedExecContext(ctx, query, p); err != nil {
			return fmt.Errorf("failed to insert prediction for %s: %w", p.TargetDate.Format("2006-01-02"), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit predictions: %w", err)
	}
	return nil
}
