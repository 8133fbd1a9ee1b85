// Package types provides shared type definitions for the simulation backend.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeSide represents the direction of a position
type TradeSide string

const (
	TradeSideLong  TradeSide = "long"
	TradeSideShort TradeSide = "short"
)

// ExitReason explains why a position was closed
type ExitReason string

const (
	ExitReasonTrailingStop ExitReason = "trailing_stop"
	ExitReasonFixedStop    ExitReason = "fixed_stop"
	ExitReasonTakeProfit   ExitReason = "take_profit"
	ExitReasonEndOfSeries  ExitReason = "end_of_series"
)

// PricePoint represents a single daily price observation.
// Series are ordered chronologically with no duplicate dates and are
// never mutated by the simulator.
type PricePoint struct {
	Date  time.Time       `json:"date"`
	Open  decimal.Decimal `json:"open"`
	High  decimal.Decimal `json:"high"`
	Low   decimal.Decimal `json:"low"`
	Close decimal.Decimal `json:"close"`
}

// ClosedTrade is the immutable ledger record of one completed position.
type ClosedTrade struct {
	ID                string          `json:"id"`
	Side              TradeSide       `json:"side"`
	EntryDate         time.Time       `json:"entryDate"`
	EntryPrice        decimal.Decimal `json:"entryPrice"`
	ExitDate          time.Time       `json:"exitDate"`
	ExitPrice         decimal.Decimal `json:"exitPrice"`
	HighestPrice      decimal.Decimal `json:"highestPrice"`
	BaseAmount        decimal.Decimal `json:"baseAmount"`
	LeveragedExposure decimal.Decimal `json:"leveragedExposure"`
	PnL               decimal.Decimal `json:"pnl"`
	FeesPaid          decimal.Decimal `json:"feesPaid"`
	HoldingDays       int             `json:"holdingDays"`
	CapitalAtEntry    decimal.Decimal `json:"capitalAtEntry"`
	CapitalAfterClose decimal.Decimal `json:"capitalAfterClose"`
	Reason            ExitReason      `json:"reason"`
}

// EquityCurvePoint represents a point on the equity curve
type EquityCurvePoint struct {
	Date   time.Time       `json:"date"`
	Equity decimal.Decimal `json:"equity"`
	Cash   decimal.Decimal `json:"cash"`
}

// RunMetrics represents summary statistics derived from a completed run
type RunMetrics struct {
	SuccessRate          decimal.Decimal `json:"successRate"`
	WinningTrades        int             `json:"winningTrades"`
	LosingTrades         int             `json:"losingTrades"`
	MaxDrawdown          decimal.Decimal `json:"maxDrawdown"` // fraction in [0,1)
	MaxDrawdownDate      time.Time       `json:"maxDrawdownDate"`
	MaxConsecutiveLosses int             `json:"maxConsecutiveLosses"`
	AvgProfitPerTrade    decimal.Decimal `json:"avgProfitPerTrade"`
	TotalReturn          decimal.Decimal `json:"totalReturn"`
	SharpeRatio          decimal.Decimal `json:"sharpeRatio"`
	ProfitFactor         decimal.Decimal `json:"profitFactor"`
	LargestWin           decimal.Decimal `json:"largestWin"`
	LargestLoss          decimal.Decimal `json:"largestLoss"`
}

// SimulationResult is the full output of one simulation run
type SimulationResult struct {
	ID            string             `json:"id"`
	Params        *SimulationParams  `json:"params"`
	FinalCapital  decimal.Decimal    `json:"finalCapital"`
	TotalPnL      decimal.Decimal    `json:"totalPnl"`
	TotalFees     decimal.Decimal    `json:"totalFees"`
	TradeCount    int                `json:"tradeCount"`
	SkippedTrades int                `json:"skippedTrades"`
	EquityCurve   []EquityCurvePoint `json:"equityCurve"`
	Trades        []ClosedTrade      `json:"trades"`
	Metrics       *RunMetrics        `json:"metrics"`
	StartedAt     time.Time          `json:"startedAt"`
	CompletedAt   time.Time          `json:"completedAt"`
	Duration      time.Duration      `json:"duration"`
}
