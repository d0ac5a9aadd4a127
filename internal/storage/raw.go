// Package storage keeps the pipeline's file outputs: one raw CSV per
// collection run and the current-conditions snapshot.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/smukkama/aqi-predictor/internal/aqi"
)

// ErrNoRawData is returned by Latest when no run file exists
var ErrNoRawData = errors.New("no raw data files")

// Raw CSV column names
const (
	ColTimestamp = "timestamp"
	ColPM25      = "pm2_5"
	ColPM10      = "pm10"
	ColOzone     = "ozone"
	ColCity      = "city"
	ColLatitude  = "latitude"
	ColLongitude = "longitude"
	ColAQI       = "aqi"
	ColCategory  = "aqi_category"
)

// rawColumns is the run file column order
var rawColumns = []string{
	ColTimestamp, ColPM25, ColPM10, ColOzone, ColCity, ColLatitude, ColLongitude, ColAQI, ColCategory,
}

// accepted timestamp layouts, in order
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// RawStore writes and reads run files under one directory
type RawStore struct {
	dir  string
	slug string
	loc  *time.Location
	now  func() time.Time
}

// NewRawStore creates a store. slug prefixes file names; loc interprets
// timestamps that carry no offset.
func NewRawStore(dir, slug string, loc *time.Location) *RawStore {
	if loc == nil {
		loc = time.UTC
	}
	return &RawStore{dir: dir, slug: slug, loc: loc, now: time.Now}
}

// maxRunsPerMinute bounds the _NN suffixes tried for runs within one minute
const maxRunsPerMinute = 99

// SetClock replaces the clock that names run files
func (s *RawStore) SetClock(now func() time.Time) {
	s.now = now
}

// FileName is the run file name for t
func (s *RawStore) FileName(t time.Time) string {
	return fmt.Sprintf("%s_aqi_%s.csv", s.slug, t.Format("20060102_1504"))
}

// freePath returns the first unused name for a run at t. Later runs in the
// same minute get _02, _03 and so on, which still sort after the first.
func (s *RawStore) freePath(t time.Time) (string, error) {
	base := strings.TrimSuffix(s.FileName(t), ".csv")
	for n := 1; n <= maxRunsPerMinute; n++ {
		name := base + ".csv"
		if n > 1 {
			name = fmt.Sprintf("%s_%02d.csv", base, n)
		}
		path := filepath.Join(s.dir, name)
		_, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check raw file: %w", err)
		}
	}
	return "", fmt.Errorf("more than %d runs in the minute of %s", maxRunsPerMinute, t.Format("2006-01-02 15:04"))
}

// Save writes records to a new run file and returns its path. The file is
// written under a temporary name and only renamed into place once complete.
func (s *RawStore) Save(records []aqi.Record) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create raw data directory: %w", err)
	}

	n := len(records)
	cols := make(map[string][]string)
	for _, name := range rawColumns {
		cols[name] = make([]string, n)
	}
	for i, r := range records {
		cols[ColTimestamp][i] = r.Timestamp.Format(time.RFC3339)
		cols[ColPM25][i] = formatFloat(r.PM25)
		cols[ColPM10][i] = formatFloat(r.PM10)
		cols[ColOzone][i] = formatFloat(r.Ozone)
		cols[ColCity][i] = r.City
		cols[ColLatitude][i] = formatFloat(r.Latitude)
		cols[ColLongitude][i] = formatFloat(r.Longitude)
		cols[ColAQI][i] = formatFloat(r.AQI)
		cols[ColCategory][i] = string(r.Category)
	}

	// Numbers are pre-formatted: float series print with only six decimals
	columns := make([]series.Series, len(rawColumns))
	for j, name := range rawColumns {
		columns[j] = series.New(cols[name], series.String, name)
	}
	df := dataframe.New(columns...)
	if df.Err != nil {
		return "", fmt.Errorf("failed to build raw table: %w", df.Err)
	}

	f, err := os.CreateTemp(s.dir, "."+s.slug+"_aqi_*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create raw file: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if err := df.WriteCSV(f); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write raw file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write raw file: %w", err)
	}

	path, err := s.freePath(s.now().In(s.loc))
	if err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to move raw file into place: %w", err)
	}
	return path, nil
}

// Latest returns the newest run file for the store's city
func (s *RawStore) Latest() (string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, s.slug+"_aqi_*.csv"))
	if err != nil {
		return "", fmt.Errorf("failed to list raw files: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoRawData, s.dir)
	}
	// Names embed YYYYMMDD_HHMM and a two-digit run suffix, so lexical
	// order is chronological
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// LoadLatest reads the newest run file
func (s *RawStore) LoadLatest() ([]aqi.Record, string, error) {
	path, err := s.Latest()
	if err != nil {
		return nil, "", err
	}
	records, err := s.Load(path)
	return records, path, err
}

// Load parses a run file back into records sorted by timestamp. The AQI
// is recomputed when the file has no aqi column.
func (s *RawStore) Load(path string) ([]aqi.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open raw file: %w", err)
	}
	defer f.Close()

	df := dataframe.ReadCSV(f,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("failed to parse raw file %s: %w", path, df.Err)
	}

	has := make(map[string]bool)
	for _, name := range df.Names() {
		has[name] = true
	}
	for _, required := range []string{ColTimestamp, ColPM25} {
		if !has[required] {
			return nil, fmt.Errorf("raw file %s has no %s column", path, required)
		}
	}

	column := func(name string) []string {
		if !has[name] {
			return nil
		}
		return df.Col(name).Records()
	}
	ts := column(ColTimestamp)
	pm25 := column(ColPM25)
	pm10 := column(ColPM10)
	ozone := column(ColOzone)
	city := column(ColCity)
	lat := column(ColLatitude)
	lon := column(ColLongitude)
	index := column(ColAQI)

	records := make([]aqi.Record, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		t, err := s.parseTime(ts[i])
		if err != nil {
			return nil, fmt.Errorf("row %d of %s: %w", i, path, err)
		}
		obs := aqi.Observation{
			Timestamp: t,
			PM25:      at(pm25, i),
			PM10:      at(pm10, i),
			Ozone:     at(ozone, i),
			Latitude:  at(lat, i),
			Longitude: at(lon, i),
		}
		if city != nil {
			obs.City = city[i]
		}

		rec := aqi.NewRecord(obs)
		if index != nil {
			rec.AQI = at(index, i)
			rec.Category = aqi.CategoryOf(rec.AQI)
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(a, b int) bool {
		return records[a].Timestamp.Before(records[b].Timestamp)
	})
	return records, nil
}

func (s *RawStore) parseTime(v string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, v, s.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", v)
}

func formatFloat(v float64) string {
	if aqi.IsMissing(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// at parses column value i; absent columns and unparsable cells are missing
func at(values []string, i int) float64 {
	if values == nil {
		return aqi.Missing()
	}
	v, err := strconv.ParseFloat(values[i], 64)
	if err != nil {
		return aqi.Missing()
	}
	return v
}
