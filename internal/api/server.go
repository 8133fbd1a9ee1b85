// Package api provides the HTTP and WebSocket server.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/replaylab/sim-backend/internal/data"
	"github.com/replaylab/sim-backend/internal/simulator"
	"github.com/replaylab/sim-backend/pkg/types"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Server is the HTTP/WebSocket API server
type Server struct {
	mu         sync.RWMutex
	logger     *zap.Logger
	config     *types.ServerConfig
	router     *mux.Router
	httpServer *http.Server
	store      *data.Store
	validator  *data.SeriesValidator
	engine     *simulator.Engine
	hub        *Hub
	runs       map[string]*types.SimulationResult
}

// RunRequest is the body of a simulation request. A zero start/end
// leaves that side of the series unbounded; an empty symbol replays the
// bundled dataset.
type RunRequest struct {
	Symbol string                 `json:"symbol,omitempty"`
	Start  time.Time              `json:"start,omitempty"`
	End    time.Time              `json:"end,omitempty"`
	Params types.SimulationParams `json:"params"`
}

// SweepRequest is the body of a parameter sweep request.
type SweepRequest struct {
	Symbol    string                   `json:"symbol,omitempty"`
	Start     time.Time                `json:"start,omitempty"`
	End       time.Time                `json:"end,omitempty"`
	ParamSets []types.SimulationParams `json:"paramSets"`
	Workers   int                      `json:"workers,omitempty"`
}

// NewServer creates a new API server
func NewServer(logger *zap.Logger, config *types.ServerConfig, store *data.Store, engine *simulator.Engine) *Server {
	server := &Server{
		logger:    logger,
		config:    config,
		router:    mux.NewRouter(),
		store:     store,
		validator: data.NewSeriesValidator(logger),
		engine:    engine,
		hub:       NewHub(logger),
		runs:      make(map[string]*types.SimulationResult),
	}

	server.setupRoutes()
	return server
}

// Router returns the underlying router for route registration
func (s *Server) Router() *mux.Router {
	return s.router
}

// setupRoutes configures HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/v1/health", s.handleHealth).Methods("GET")

	s.router.HandleFunc("/api/v1/data/symbols", s.handleGetSymbols).Methods("GET")
	s.router.HandleFunc("/api/v1/data/history/{symbol}", s.handleGetHistory).Methods("GET")

	s.router.HandleFunc("/api/v1/simulations", s.handleRunSimulation).Methods("POST")
	s.router.HandleFunc("/api/v1/simulations/sweep", s.handleRunSweep).Methods("POST")
	s.router.HandleFunc("/api/v1/simulations/{id}", s.handleGetRun).Methods("GET")
	s.router.HandleFunc("/api/v1/simulations/{id}/trades", s.handleGetRunTrades).Methods("GET")

	if s.config.EnableMetrics {
		s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	s.router.HandleFunc(s.config.WebSocketPath, s.hub.ServeWS)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	handler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(s.router)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	go s.hub.Run()

	s.logger.Info("Starting API server", zap.String("addr", addr))

	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// handleGetSymbols returns available symbols
func (s *Server) handleGetSymbols(w http.ResponseWriter, r *http.Request) {
	symbols := s.store.GetAvailableSymbols()
	writeJSON(w, map[string]interface{}{
		"symbols": symbols,
	})
}

// handleGetHistory returns the stored series for a symbol
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	symbol := vars["symbol"]

	start, end, err := parseDateRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	series, err := s.store.LoadSeries(r.Context(), symbol, start, end)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	writeJSON(w, map[string]interface{}{
		"symbol": symbol,
		"bars":   series,
		"count":  len(series),
	})
}

// handleRunSimulation runs one simulation synchronously. A single run
// is a one-pass loop over an in-memory series, so there is no need for
// background execution; the result is stored for later retrieval and a
// completion event is broadcast to WebSocket clients.
func (s *Server) handleRunSimulation(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	series, status, err := s.loadValidatedSeries(r.Context(), req.Symbol, req.Start, req.End)
	if err != nil {
		simulationsTotal.WithLabelValues("rejected").Inc()
		http.Error(w, err.Error(), status)
		return
	}

	started := time.Now()
	result, err := s.engine.Run(req.Params, series)
	if err != nil {
		simulationsTotal.WithLabelValues("rejected").Inc()
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	simulationsTotal.WithLabelValues("completed").Inc()
	simulationDuration.Observe(time.Since(started).Seconds())
	simulationTrades.Observe(float64(result.TradeCount))

	s.mu.Lock()
	s.runs[result.ID] = result
	s.mu.Unlock()

	s.hub.BroadcastRunCompleted(result)

	writeJSON(w, result)
}

// handleRunSweep replays several parameter sets against one series.
func (s *Server) handleRunSweep(w http.ResponseWriter, r *http.Request) {
	var req SweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.ParamSets) == 0 {
		http.Error(w, "paramSets must not be empty", http.StatusBadRequest)
		return
	}

	series, status, err := s.loadValidatedSeries(r.Context(), req.Symbol, req.Start, req.End)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}

	results, err := s.engine.RunSweep(r.Context(), req.ParamSets, series, req.Workers)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	for _, sr := range results {
		if sr.Result != nil {
			s.runs[sr.Result.ID] = sr.Result
			simulationsTotal.WithLabelValues("completed").Inc()
		} else {
			simulationsTotal.WithLabelValues("rejected").Inc()
		}
	}
	s.mu.Unlock()

	writeJSON(w, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

// handleGetRun returns a stored simulation result
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	s.mu.RLock()
	result, ok := s.runs[id]
	s.mu.RUnlock()

	if !ok {
		http.Error(w, "Simulation not found", http.StatusNotFound)
		return
	}

	writeJSON(w, result)
}

// handleGetRunTrades returns the trade ledger of a stored run
func (s *Server) handleGetRunTrades(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	s.mu.RLock()
	result, ok := s.runs[id]
	s.mu.RUnlock()

	if !ok {
		http.Error(w, "Simulation not found", http.StatusNotFound)
		return
	}

	writeJSON(w, map[string]interface{}{
		"id":     id,
		"trades": result.Trades,
		"count":  len(result.Trades),
	})
}

// loadValidatedSeries resolves the requested series and runs the
// quality checks that gate a simulation.
func (s *Server) loadValidatedSeries(ctx context.Context, symbol string, start, end time.Time) ([]types.PricePoint, int, error) {
	if symbol == "" {
		symbol = data.SeedSymbol
	}

	series, err := s.store.LoadSeries(ctx, symbol, start, end)
	if err != nil {
		return nil, http.StatusNotFound, err
	}

	report := s.validator.Validate(symbol, series)
	if !report.IsUsable {
		return nil, http.StatusUnprocessableEntity,
			fmt.Errorf("series for %s failed validation with %d issue(s)", symbol, len(report.Issues))
	}

	return series, http.StatusOK, nil
}

func parseDateRange(r *http.Request) (start, end time.Time, err error) {
	if v := r.URL.Query().Get("start"); v != "" {
		start, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date: %w", err)
		}
	}
	if v := r.URL.Query().Get("end"); v != "" {
		end, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date: %w", err)
		}
	}
	return start, end, nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
