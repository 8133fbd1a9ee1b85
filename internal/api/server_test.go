package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/replaylab/sim-backend/internal/api"
	"github.com/replaylab/sim-backend/internal/data"
	"github.com/replaylab/sim-backend/internal/simulator"
	"github.com/replaylab/sim-backend/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := zap.NewNop()
	store, err := data.NewStore(logger, t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	config := &types.ServerConfig{WebSocketPath: "/ws"}
	server := api.NewServer(logger, config, store, simulator.NewEngine(logger))

	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return ts
}

func runRequestBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	req := api.RunRequest{
		Params: types.SimulationParams{
			StartingCapital:         decimal.NewFromInt(10000),
			PositionSizePercent:     decimal.NewFromInt(1),
			Leverage:                decimal.NewFromInt(100),
			StopLossAmount:          decimal.NewFromInt(200),
			MinPriceMovementPercent: decimal.NewFromFloat(0.3),
			DailyFeePercent:         decimal.NewFromFloat(0.1),
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(req); err != nil {
		t.Fatalf("Failed to encode request: %v", err)
	}
	return &buf
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("Health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestGetSymbols(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/data/symbols")
	if err != nil {
		t.Fatalf("Symbols request failed: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Symbols []string `json:"symbols"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	found := false
	for _, symbol := range body.Symbols {
		if symbol == data.SeedSymbol {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected the bundled symbol in %v", body.Symbols)
	}
}

func TestGetHistoryUnknownSymbol(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/data/history/UNKNOWN")
	if err != nil {
		t.Fatalf("History request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for an unknown symbol, got %d", resp.StatusCode)
	}
}

func TestRunSimulationLifecycle(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/v1/simulations", "application/json", runRequestBody(t))
	if err != nil {
		t.Fatalf("Simulation request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var result types.SimulationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	if result.ID == "" {
		t.Fatal("Expected a run ID")
	}
	if len(result.EquityCurve) == 0 {
		t.Error("Expected a non-empty equity curve from the bundled series")
	}

	// The stored run is retrievable by ID.
	getResp, err := http.Get(fmt.Sprintf("%s/api/v1/simulations/%s", ts.URL, result.ID))
	if err != nil {
		t.Fatalf("Get run request failed: %v", err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 for a stored run, got %d", getResp.StatusCode)
	}

	tradesResp, err := http.Get(fmt.Sprintf("%s/api/v1/simulations/%s/trades", ts.URL, result.ID))
	if err != nil {
		t.Fatalf("Get trades request failed: %v", err)
	}
	defer tradesResp.Body.Close()
	if tradesResp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 for the trade ledger, got %d", tradesResp.StatusCode)
	}

	var trades struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(tradesResp.Body).Decode(&trades); err != nil {
		t.Fatalf("Failed to decode trades: %v", err)
	}
	if trades.Count != result.TradeCount {
		t.Errorf("Trade ledger count %d does not match run's %d", trades.Count, result.TradeCount)
	}
}

func TestRunSimulationInvalidParams(t *testing.T) {
	ts := newTestServer(t)

	req := api.RunRequest{
		Params: types.SimulationParams{
			StartingCapital: decimal.NewFromInt(-1),
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(req); err != nil {
		t.Fatalf("Failed to encode request: %v", err)
	}

	resp, err := http.Post(ts.URL+"/api/v1/simulations", "application/json", &buf)
	if err != nil {
		t.Fatalf("Simulation request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for invalid params, got %d", resp.StatusCode)
	}
}

func TestGetRunNotFound(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/simulations/no-such-run")
	if err != nil {
		t.Fatalf("Get run request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for an unknown run, got %d", resp.StatusCode)
	}
}

func TestRunSweepEndpoint(t *testing.T) {
	ts := newTestServer(t)

	params := types.SimulationParams{
		StartingCapital:         decimal.NewFromInt(10000),
		PositionSizePercent:     decimal.NewFromInt(1),
		Leverage:                decimal.NewFromInt(100),
		StopLossAmount:          decimal.NewFromInt(200),
		MinPriceMovementPercent: decimal.NewFromFloat(0.3),
		DailyFeePercent:         decimal.NewFromFloat(0.1),
	}
	wider := params
	wider.MinPriceMovementPercent = decimal.NewFromFloat(0.5)

	req := api.SweepRequest{ParamSets: []types.SimulationParams{params, wider}}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(req); err != nil {
		t.Fatalf("Failed to encode request: %v", err)
	}

	resp, err := http.Post(ts.URL+"/api/v1/simulations/sweep", "application/json", &buf)
	if err != nil {
		t.Fatalf("Sweep request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Count   int                     `json:"count"`
		Results []simulator.SweepResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Count != 2 || len(body.Results) != 2 {
		t.Fatalf("Expected 2 sweep results, got count=%d len=%d", body.Count, len(body.Results))
	}
}

func TestRunSweepEmptyParamSets(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/v1/simulations/sweep", "application/json",
		bytes.NewBufferString(`{"paramSets": []}`))
	if err != nil {
		t.Fatalf("Sweep request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for an empty sweep, got %d", resp.StatusCode)
	}
}
