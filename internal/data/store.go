// Package data provides price series storage and loading.
package data

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/replaylab/sim-backend/pkg/types"
	"go.uber.org/zap"
)

// SeedSymbol is the symbol of the bundled static dataset. It is always
// available, so the simulator can run with no external I/O at all.
const SeedSymbol = "ETH/USD"

//go:embed seed/eth_usd_daily.json
var seedSeries []byte

// Store provides access to daily price series, one JSON file per symbol.
type Store struct {
	mu       sync.RWMutex
	logger   *zap.Logger
	dataDir  string
	cache    map[string][]types.PricePoint
	metadata map[string]*SeriesMetadata
}

// SeriesMetadata describes the available range for a symbol
type SeriesMetadata struct {
	Symbol    string    `json:"symbol"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	BarCount  int       `json:"barCount"`
}

// NewStore creates a new price series store
func NewStore(logger *zap.Logger, dataDir string) (*Store, error) {
	store := &Store{
		logger:   logger,
		dataDir:  dataDir,
		cache:    make(map[string][]types.PricePoint),
		metadata: make(map[string]*SeriesMetadata),
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	if err := store.loadMetadata(); err != nil {
		logger.Warn("Failed to load metadata", zap.Error(err))
	}

	if err := store.loadSeed(); err != nil {
		return nil, fmt.Errorf("failed to load bundled series: %w", err)
	}

	return store, nil
}

// LoadSeries loads the daily series for a symbol, optionally restricted
// to [start, end]. Zero start/end values leave that side unbounded.
func (s *Store) LoadSeries(ctx context.Context, symbol string, start, end time.Time) ([]types.PricePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.cache[symbol]; ok {
		return filterByDateRange(cached, start, end), nil
	}

	filename := filepath.Join(s.dataDir, seriesFilename(symbol))
	raw, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no series available for symbol %s", symbol)
		}
		return nil, fmt.Errorf("failed to read series file: %w", err)
	}

	var points []types.PricePoint
	if err := json.Unmarshal(raw, &points); err != nil {
		return nil, fmt.Errorf("failed to parse series for %s: %w", symbol, err)
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	s.cache[symbol] = points
	return filterByDateRange(points, start, end), nil
}

// SaveSeries persists a series and refreshes cache and metadata.
func (s *Store) SaveSeries(symbol string, points []types.PricePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sorted := make([]types.PricePoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	raw, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal series: %w", err)
	}

	filename := filepath.Join(s.dataDir, seriesFilename(symbol))
	if err := os.WriteFile(filename, raw, 0644); err != nil {
		return fmt.Errorf("failed to write series file: %w", err)
	}

	s.cache[symbol] = sorted
	s.updateMetadata(symbol, sorted)

	if err := s.saveMetadata(); err != nil {
		s.logger.Warn("Failed to save metadata", zap.Error(err))
	}

	return nil
}

// GetAvailableSymbols returns all symbols with a known series.
func (s *Store) GetAvailableSymbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool, len(s.metadata)+len(s.cache))
	symbols := make([]string, 0, len(s.metadata)+len(s.cache))
	for symbol := range s.metadata {
		if !seen[symbol] {
			seen[symbol] = true
			symbols = append(symbols, symbol)
		}
	}
	for symbol := range s.cache {
		if !seen[symbol] {
			seen[symbol] = true
			symbols = append(symbols, symbol)
		}
	}
	sort.Strings(symbols)
	return symbols
}

// GetDataRange returns the available date range for a symbol.
func (s *Store) GetDataRange(symbol string) (start, end time.Time, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if meta, ok := s.metadata[symbol]; ok {
		return meta.StartDate, meta.EndDate, nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("no series available for symbol %s", symbol)
}

// ClearCache drops all cached series except the bundled one.
func (s *Store) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()

	seed := s.cache[SeedSymbol]
	s.cache = make(map[string][]types.PricePoint)
	if seed != nil {
		s.cache[SeedSymbol] = seed
	}
}

// loadSeed parses the embedded dataset into the cache.
func (s *Store) loadSeed() error {
	var points []types.PricePoint
	if err := json.Unmarshal(seedSeries, &points); err != nil {
		return err
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[SeedSymbol] = points
	s.updateMetadata(SeedSymbol, points)
	return nil
}

// updateMetadata refreshes the range entry for a symbol (must hold lock).
func (s *Store) updateMetadata(symbol string, points []types.PricePoint) {
	if len(points) == 0 {
		return
	}
	s.metadata[symbol] = &SeriesMetadata{
		Symbol:    symbol,
		StartDate: points[0].Date,
		EndDate:   points[len(points)-1].Date,
		BarCount:  len(points),
	}
}

func (s *Store) loadMetadata() error {
	filename := filepath.Join(s.dataDir, "metadata.json")

	raw, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var metadata map[string]*SeriesMetadata
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return err
	}

	s.metadata = metadata
	return nil
}

func (s *Store) saveMetadata() error {
	filename := filepath.Join(s.dataDir, "metadata.json")

	raw, err := json.MarshalIndent(s.metadata, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filename, raw, 0644)
}

func filterByDateRange(points []types.PricePoint, start, end time.Time) []types.PricePoint {
	filtered := make([]types.PricePoint, 0, len(points))
	for _, p := range points {
		if !start.IsZero() && p.Date.Before(start) {
			continue
		}
		if !end.IsZero() && p.Date.After(end) {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}

func seriesFilename(symbol string) string {
	safe := strings.NewReplacer("/", "-", " ", "_").Replace(symbol)
	return fmt.Sprintf("%s_1d.json", safe)
}
