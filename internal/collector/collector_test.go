package collector

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smukkama/aqi-predictor/pkg/config"
)

func newTestCollector(url string) *Collector {
	c := New(
		config.LocationConfig{CityName: "Karachi", Latitude: 24.8607, Longitude: 67.0011, Timezone: "UTC"},
		config.CollectorConfig{BaseURL: url, LookbackDays: 3, CurrentTimeout: 2 * time.Second, HistoryTimeout: 2 * time.Second},
	)
	c.now = func() time.Time { return time.Date(2024, 6, 4, 10, 0, 0, 0, time.UTC) }
	return c
}

func TestFetchCurrent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("current") != "pm2_5,pm10,us_aqi,european_aqi" {
			t.Errorf("Unexpected current param: %s", q.Get("current"))
		}
		if q.Get("latitude") != "24.8607" || q.Get("timezone") != "UTC" {
			t.Errorf("Unexpected location params: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"current":{"time":"2024-06-04T10:00","pm2_5":40.1,"pm10":80.5,"us_aqi":112,"european_aqi":55}}`))
	}))
	defer server.Close()

	snap, err := newTestCollector(server.URL).FetchCurrent(context.Background())
	if err != nil {
		t.Fatalf("FetchCurrent failed: %v", err)
	}
	if snap.USAQI != 112 || snap.PM25 != 40.1 || snap.PM10 != 80.5 {
		t.Errorf("Unexpected snapshot: %+v", snap)
	}
	if snap.Time != "2024-06-04T10:00" {
		t.Errorf("Expected time 2024-06-04T10:00, got %s", snap.Time)
	}
}

func TestFetchCurrent_ComputesMissingIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"current":{"time":"2024-06-04T10:00","pm2_5":10,"pm10":20,"us_aqi":null}}`))
	}))
	defer server.Close()

	snap, err := newTestCollector(server.URL).FetchCurrent(context.Background())
	if err != nil {
		t.Fatalf("FetchCurrent failed: %v", err)
	}
	if math.Abs(snap.USAQI-41.67) > 0.01 {
		t.Errorf("Expected computed AQI ~41.67, got %v", snap.USAQI)
	}
}

func TestFetchCurrent_NullReading(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"current":{"time":"2024-06-04T10:00","pm2_5":43.1,"pm10":null,"us_aqi":120}}`))
	}))
	defer server.Close()

	snap, err := newTestCollector(server.URL).FetchCurrent(context.Background())
	if err != nil {
		t.Fatalf("FetchCurrent failed: %v", err)
	}
	if !math.IsNaN(snap.PM10) {
		t.Errorf("Expected null pm10 as NaN, got %v", snap.PM10)
	}
	if snap.USAQI != 120 || snap.PM25 != 43.1 {
		t.Errorf("Unexpected snapshot: %+v", snap)
	}
}

func TestFetchHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("start_date") != "2024-06-01" || q.Get("end_date") != "2024-06-04" {
			t.Errorf("Unexpected date range: %s..%s", q.Get("start_date"), q.Get("end_date"))
		}
		if q.Get("hourly") != "pm2_5,pm10,ozone" {
			t.Errorf("Unexpected hourly param: %s", q.Get("hourly"))
		}
		w.Write([]byte(`{"hourly":{
			"time":["2024-06-01T00:00","2024-06-01T01:00","2024-06-01T02:00"],
			"pm2_5":[10,null,30],
			"pm10":[20,25,null],
			"ozone":[50,60,70]}}`))
	}))
	defer server.Close()

	obs, err := newTestCollector(server.URL).FetchHistory(context.Background(), 3)
	if err != nil {
		t.Fatalf("FetchHistory failed: %v", err)
	}
	if len(obs) != 3 {
		t.Fatalf("Expected 3 observations, got %d", len(obs))
	}

	if want := time.Date(2024, 6, 1, 1, 0, 0, 0, time.UTC); !obs[1].Timestamp.Equal(want) {
		t.Errorf("Expected %v, got %v", want, obs[1].Timestamp)
	}
	if !math.IsNaN(obs[1].PM25) {
		t.Errorf("Expected null pm2.5 as NaN, got %v", obs[1].PM25)
	}
	if !math.IsNaN(obs[2].PM10) {
		t.Errorf("Expected null pm10 as NaN, got %v", obs[2].PM10)
	}
	if obs[0].City != "Karachi" || obs[0].Latitude != 24.8607 {
		t.Errorf("Expected location attached, got %+v", obs[0])
	}
	if obs[2].Ozone != 70 {
		t.Errorf("Expected ozone 70, got %v", obs[2].Ozone)
	}
}

func TestFetch_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestCollector(server.URL).FetchHistory(context.Background(), 3)

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Expected *FetchError, got %v", err)
	}
	if fe.StatusCode != http.StatusServiceUnavailable || fe.Op != OpHistory {
		t.Errorf("Expected history/503, got %s/%d", fe.Op, fe.StatusCode)
	}
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Errorf("Expected ErrUnexpectedStatus, got %v", err)
	}
}

func TestFetch_BadBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>oops</html>`))
	}))
	defer server.Close()

	_, err := newTestCollector(server.URL).FetchCurrent(context.Background())
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Op != OpCurrent {
		t.Fatalf("Expected current FetchError, got %v", err)
	}
}

func TestFetch_MismatchedArrays(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"hourly":{"time":["2024-06-01T00:00"],"pm2_5":[1,2],"pm10":[3]}}`))
	}))
	defer server.Close()

	_, err := newTestCollector(server.URL).FetchHistory(context.Background(), 1)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Expected FetchError, got %v", err)
	}
}

func TestFetch_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestCollector(url).FetchCurrent(context.Background())
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Expected FetchError, got %v", err)
	}
	if fe.StatusCode != 0 {
		t.Errorf("Expected no status on transport error, got %d", fe.StatusCode)
	}
}
