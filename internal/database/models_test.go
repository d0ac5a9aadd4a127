package database

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smukkama/aqi-predictor/internal/aqi"
	"github.com/smukkama/aqi-predictor/internal/features"
)

func TestNullable(t *testing.T) {
	if Nullable(math.NaN()) != nil {
		t.Error("Expected NaN to map to NULL")
	}
	if p := Nullable(12.5); p == nil || *p != 12.5 {
		t.Errorf("Expected pointer to 12.5, got %v", p)
	}
	if !math.IsNaN(Value(nil)) {
		t.Error("Expected NULL to map to NaN")
	}
}

func TestObservation_RoundTrip(t *testing.T) {
	loc := time.FixedZone("PKT", 5*3600)
	rec := aqi.NewRecord(aqi.Observation{
		Timestamp: time.Date(2024, 6, 1, 13, 0, 0, 0, loc),
		PM25:      40,
		PM10:      aqi.Missing(),
		Ozone:     61,
		City:      "Karachi",
	})

	o := NewObservation(7, rec, "run-1", time.Now())
	if o.LocationID != 7 || o.PM10 != nil || *o.PM25 != 40 {
		t.Errorf("Unexpected stored observation: %+v", o)
	}
	if o.RunID == nil || *o.RunID != "run-1" {
		t.Errorf("Expected run id run-1, got %v", o.RunID)
	}
	if NewObservation(7, rec, "", time.Now()).RunID != nil {
		t.Error("Expected empty run id to map to NULL")
	}

	// the driver returns UTC
	o.ObservedAt = o.ObservedAt.UTC()
	back := o.Record("Karachi", loc)
	if !back.Timestamp.Equal(rec.Timestamp) || back.Timestamp.Hour() != 13 {
		t.Errorf("Expected %v, got %v", rec.Timestamp, back.Timestamp)
	}
	if back.AQI != rec.AQI || back.Category != rec.Category {
		t.Errorf("Expected aqi %v/%s, got %v/%s", rec.AQI, rec.Category, back.AQI, back.Category)
	}
	if !math.IsNaN(back.PM10) {
		t.Errorf("Expected missing pm10, got %v", back.PM10)
	}
}

func TestDailyFeature_RoundTrip(t *testing.T) {
	rows := features.SampleDaily(3, 1, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	row := rows[0]

	d := NewDailyFeature(3, row)
	if d.PrevWeekAQI != nil {
		t.Errorf("Expected NULL prev_week_aqi, got %v", *d.PrevWeekAQI)
	}

	back := d.Row()
	if back.DailyAvgAQI != row.DailyAvgAQI || back.DayName != row.DayName || back.Samples != row.Samples {
		t.Errorf("Expected %+v, got %+v", row, back)
	}
	if !math.IsNaN(back.PrevWeekAQI) {
		t.Errorf("Expected missing prev_week_aqi, got %v", back.PrevWeekAQI)
	}
}

func TestMigrationFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_more.sql", "001_init.sql", "README.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("-- x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "003_dir.sql"), 0755); err != nil {
		t.Fatal(err)
	}

	files, err := MigrationFiles(dir)
	if err != nil {
		t.Fatalf("MigrationFiles failed: %v", err)
	}
	if len(files) != 2 || files[0] != "001_init.sql" || files[1] != "002_more.sql" {
		t.Errorf("Expected [001_init.sql 002_more.sql], got %v", files)
	}

	if _, err := MigrationFiles(filepath.Join(dir, "missing")); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestRepositoryMigrationsPresent(t *testing.T) {
	files, err := MigrationFiles(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("MigrationFiles failed: %v", err)
	}
	if len(files) == 0 || files[0] != "001_init.sql" {
		t.Errorf("Expected 001_init.sql first, got %v", files)
	}
}
