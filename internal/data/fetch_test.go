package data_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/replaylab/sim-backend/internal/data"
	"go.uber.org/zap"
)

func TestFetchDaily(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "ETHUSDT" {
			t.Errorf("Unexpected symbol %q", got)
		}
		if got := r.URL.Query().Get("interval"); got != "1d" {
			t.Errorf("Unexpected interval %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		// openTime, open, high, low, close, volume
		w.Write([]byte(`[
			[1704067200000, "2280.50", "2310.00", "2260.25", "2295.75", "1000"],
			[1704153600000, "2295.75", "2340.10", "2290.00", "2330.40", "1100"],
			[1704240000000, "bogus", "2340.10", "2290.00", "2330.40", "900"]
		]`))
	}))
	defer ts.Close()

	fetcher := data.NewFetcher(zap.NewNop(), ts.URL)
	points, err := fetcher.FetchDaily(context.Background(), "ETHUSDT", 3)
	if err != nil {
		t.Fatalf("FetchDaily failed: %v", err)
	}

	// The malformed third kline is skipped, not fatal.
	if len(points) != 2 {
		t.Fatalf("Expected 2 parsed bars, got %d", len(points))
	}

	first := points[0]
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !first.Date.Equal(want) {
		t.Errorf("Expected open time %s, got %s", want, first.Date)
	}
	if first.Open.String() != "2280.5" {
		t.Errorf("Unexpected open price %s", first.Open)
	}
	if first.High.String() != "2310" {
		t.Errorf("Unexpected high price %s", first.High)
	}
}

func TestFetchDailyServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	fetcher := data.NewFetcher(zap.NewNop(), ts.URL)
	if _, err := fetcher.FetchDaily(context.Background(), "ETHUSDT", 3); err == nil {
		t.Fatal("Expected an error for a non-200 response")
	}
}
