// Package types provides parameter and configuration types for the simulation backend.
package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EntryMode selects which entry signals the simulator acts on
type EntryMode string

const (
	EntryModeLongOnly  EntryMode = "long_only"
	EntryModeLongShort EntryMode = "long_short"
)

// ExitMode selects the exit policy applied to open positions
type ExitMode string

const (
	ExitModeTrailingStop          ExitMode = "trailing_stop"
	ExitModeFixedStop             ExitMode = "fixed_stop"
	ExitModeTakeProfitAndTrailing ExitMode = "take_profit_and_trailing"
)

// PositionModel selects how many positions may be open at once
type PositionModel string

const (
	PositionModelSingle     PositionModel = "single"
	PositionModelConcurrent PositionModel = "concurrent"
)

// SimulationParams is the full parameter record for one simulation run.
// Validation is a pure predicate checked before any simulation work; an
// invalid record aborts the run with no partial result.
type SimulationParams struct {
	StartingCapital         decimal.Decimal `json:"startingCapital"`
	PositionSizePercent     decimal.Decimal `json:"positionSizePercent"` // (0,100]
	Leverage                decimal.Decimal `json:"leverage"`            // (0,200]
	StopLossAmount          decimal.Decimal `json:"stopLossAmount"`      // > 0, dollar-denominated
	MinPriceMovementPercent decimal.Decimal `json:"minPriceMovementPercent"`
	DailyFeePercent         decimal.Decimal `json:"dailyFeePercent"`
	TakeProfitAmount        decimal.Decimal `json:"takeProfitAmount,omitempty"`
	EntryMode               EntryMode       `json:"entryMode,omitempty"`
	ExitMode                ExitMode        `json:"exitMode,omitempty"`
	PositionModel           PositionModel   `json:"positionModel,omitempty"`
	MaxOpenPositions        int             `json:"maxOpenPositions,omitempty"`
}

// Normalized returns a copy with empty policy flags replaced by the
// canonical defaults: long-only entries, trailing-stop exits, one
// position at a time.
func (p SimulationParams) Normalized() SimulationParams {
	if p.EntryMode == "" {
		p.EntryMode = EntryModeLongOnly
	}
	if p.ExitMode == "" {
		p.ExitMode = ExitModeTrailingStop
	}
	if p.PositionModel == "" {
		p.PositionModel = PositionModelSingle
	}
	if p.PositionModel == PositionModelSingle {
		p.MaxOpenPositions = 1
	}
	return p
}

// Validate checks the parameter record against its documented ranges.
func (p SimulationParams) Validate() error {
	if !p.StartingCapital.IsPositive() {
		return fmt.Errorf("startingCapital must be positive, got %s", p.StartingCapital)
	}
	if !p.PositionSizePercent.IsPositive() || p.PositionSizePercent.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("positionSizePercent must be in (0,100], got %s", p.PositionSizePercent)
	}
	if !p.Leverage.IsPositive() || p.Leverage.GreaterThan(decimal.NewFromInt(200)) {
		return fmt.Errorf("leverage must be in (0,200], got %s", p.Leverage)
	}
	if !p.StopLossAmount.IsPositive() {
		return fmt.Errorf("stopLossAmount must be positive, got %s", p.StopLossAmount)
	}
	if p.MinPriceMovementPercent.IsNegative() {
		return fmt.Errorf("minPriceMovementPercent must not be negative, got %s", p.MinPriceMovementPercent)
	}
	if p.DailyFeePercent.IsNegative() {
		return fmt.Errorf("dailyFeePercent must not be negative, got %s", p.DailyFeePercent)
	}

	switch p.EntryMode {
	case "", EntryModeLongOnly, EntryModeLongShort:
	default:
		return fmt.Errorf("unknown entryMode %q", p.EntryMode)
	}

	switch p.ExitMode {
	case "", ExitModeTrailingStop, ExitModeFixedStop:
	case ExitModeTakeProfitAndTrailing:
		if !p.TakeProfitAmount.IsPositive() {
			return fmt.Errorf("takeProfitAmount must be positive for exitMode %q", p.ExitMode)
		}
	default:
		return fmt.Errorf("unknown exitMode %q", p.ExitMode)
	}

	switch p.PositionModel {
	case "", PositionModelSingle:
	case PositionModelConcurrent:
		if p.MaxOpenPositions < 1 {
			return fmt.Errorf("maxOpenPositions must be at least 1 for the concurrent model, got %d", p.MaxOpenPositions)
		}
	default:
		return fmt.Errorf("unknown positionModel %q", p.PositionModel)
	}

	return nil
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `json:"host" mapstructure:"host"`
	Port           int           `json:"port" mapstructure:"port"`
	WebSocketPath  string        `json:"websocketPath" mapstructure:"websocket_path"`
	ReadTimeout    time.Duration `json:"readTimeout" mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `json:"writeTimeout" mapstructure:"write_timeout"`
	MaxConnections int           `json:"maxConnections" mapstructure:"max_connections"`
	EnableMetrics  bool          `json:"enableMetrics" mapstructure:"enable_metrics"`
}

// DataConfig represents price series storage configuration
type DataConfig struct {
	DataDir      string `json:"dataDir" mapstructure:"data_dir"`
	FetchBaseURL string `json:"fetchBaseUrl" mapstructure:"fetch_base_url"`
}
