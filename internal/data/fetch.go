// Package data provides the optional HTTP kline acquisition path.
// Fetching is fully decoupled from the simulation: the engine only ever
// sees series that are already resident in the Store.
package data

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/replaylab/sim-backend/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultFetchBaseURL is the public Binance REST endpoint.
const DefaultFetchBaseURL = "https://api.binance.com"

// Fetcher retrieves daily klines from an exchange REST API.
type Fetcher struct {
	logger  *zap.Logger
	client  *http.Client
	baseURL string
}

// NewFetcher creates a kline fetcher. An empty baseURL falls back to
// the default public endpoint.
func NewFetcher(logger *zap.Logger, baseURL string) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultFetchBaseURL
	}
	return &Fetcher{
		logger:  logger,
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
	}
}

// FetchDaily retrieves up to limit daily bars for an exchange symbol
// (e.g. "ETHUSDT") and converts them into PricePoints.
func (f *Fetcher) FetchDaily(ctx context.Context, symbol string, limit int) ([]types.PricePoint, error) {
	if limit <= 0 || limit > 1000 {
		limit = 500
	}

	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", f.baseURL, url.Values{
		"symbol":   {symbol},
		"interval": {"1d"},
		"limit":    {fmt.Sprintf("%d", limit)},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build kline request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kline request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kline request returned status %d", resp.StatusCode)
	}

	// Klines arrive as arrays: [openTime, open, high, low, close, ...]
	var raw [][]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode kline response: %w", err)
	}

	points := make([]types.PricePoint, 0, len(raw))
	for _, k := range raw {
		if len(k) < 5 {
			continue
		}
		openTime, ok := k[0].(float64)
		if !ok {
			continue
		}
		open, err1 := parsePrice(k[1])
		high, err2 := parsePrice(k[2])
		low, err3 := parsePrice(k[3])
		closePrice, err4 := parsePrice(k[4])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			f.logger.Warn("Skipping malformed kline", zap.String("symbol", symbol))
			continue
		}

		points = append(points, types.PricePoint{
			Date:  time.UnixMilli(int64(openTime)).UTC(),
			Open:  open,
			High:  high,
			Low:   low,
			Close: closePrice,
		})
	}

	f.logger.Info("Fetched daily klines",
		zap.String("symbol", symbol),
		zap.Int("bars", len(points)),
	)

	return points, nil
}

func parsePrice(v interface{}) (decimal.Decimal, error) {
	s, ok := v.(string)
	if !ok {
		return decimal.Zero, fmt.Errorf("price field is not a string")
	}
	return decimal.NewFromString(s)
}
