// Package simulator provides the core replay simulation engine.
package simulator

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/replaylab/sim-backend/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	hundred = decimal.NewFromInt(100)

	// minTradingCapital is the floor below which entry signals are
	// counted as skipped instead of opening a position.
	minTradingCapital = decimal.NewFromInt(100)

	// minBaseAmount rejects dust positions.
	minBaseAmount = decimal.NewFromInt(1)
)

// Engine replays a parameter record against a historical price series.
// A single Engine is safe to reuse across runs; each run keeps all of
// its state in locals, so concurrent Run calls are independent.
type Engine struct {
	logger *zap.Logger
	agg    *Aggregator
}

// NewEngine creates a new simulation engine
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{
		logger: logger,
		agg:    NewAggregator(),
	}
}

// Run executes one simulation over the given series.
// The series is consumed read-only and must be chronologically ordered;
// params are validated up front and an invalid record aborts the run
// with no partial result.
func (e *Engine) Run(params types.SimulationParams, series []types.PricePoint) (*types.SimulationResult, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation params: %w", err)
	}
	p := params.Normalized()

	startedAt := time.Now()

	cash := p.StartingCapital
	totalFees := decimal.Zero
	totalPnL := decimal.Zero
	skipped := 0

	var open []*position
	trades := make([]types.ClosedTrade, 0)
	curve := make([]types.EquityCurvePoint, 0, len(series))

	for i := range series {
		bar := series[i]

		// Fees accrue once per distinct calendar date, detected by
		// date change rather than a fixed calendar step.
		if i > 0 && !sameDay(series[i-1].Date, bar.Date) {
			cash, totalFees = accrueDailyFees(p, open, cash, totalFees)
		}

		// Exit checks run before entries so a position never opens and
		// closes on the same bar.
		var still []*position
		for _, pos := range open {
			pos.updateWatermark(bar)
			exitPrice, reason, hit := pos.checkExit(p, bar)
			if !hit {
				still = append(still, pos)
				continue
			}
			pnl := pos.realizedPnL(exitPrice)
			cash = cash.Add(pos.baseAmount).Add(pnl)
			totalPnL = totalPnL.Add(pnl)
			trades = append(trades, pos.close(bar.Date, exitPrice, pnl, reason, cash))
		}
		open = still

		// Entry rule needs the previous bar's open for the move signal.
		if i > 0 && len(open) < p.MaxOpenPositions {
			if side, fired := entrySignal(p, series[i-1].Open, bar.Open); fired {
				if cash.LessThan(minTradingCapital) {
					skipped++
				} else {
					baseAmount := p.PositionSizePercent.Div(hundred).Mul(cash)
					if baseAmount.GreaterThan(cash) {
						baseAmount = cash
					}
					if baseAmount.LessThan(minBaseAmount) {
						skipped++
					} else {
						capitalAtEntry := cash
						cash = cash.Sub(baseAmount)
						open = append(open, newPosition(side, bar, baseAmount, baseAmount.Mul(p.Leverage), capitalAtEntry))
					}
				}
			}
		}

		// Equity marks open positions to the day's close. Accrued fees
		// already left cash on the day they were charged and are not
		// subtracted again here.
		equity := cash
		for _, pos := range open {
			equity = equity.Add(pos.baseAmount).Add(pos.unrealizedPnL(bar.Close))
		}
		curve = append(curve, types.EquityCurvePoint{Date: bar.Date, Equity: equity, Cash: cash})

		// Capital exhaustion is terminal, not an error. A close can push
		// cash below zero when the leveraged loss exceeds what is left.
		if !cash.IsPositive() && len(open) == 0 {
			break
		}
	}

	// Force-close anything still open at the last available price so the
	// ledger accounts for every position ever opened.
	if len(open) > 0 {
		last := series[len(series)-1]
		for _, pos := range open {
			pnl := pos.realizedPnL(last.Close)
			cash = cash.Add(pos.baseAmount).Add(pnl)
			totalPnL = totalPnL.Add(pnl)
			trades = append(trades, pos.close(last.Date, last.Close, pnl, types.ExitReasonEndOfSeries, cash))
		}
		open = nil
	}

	metrics := e.agg.Aggregate(trades, curve, p.StartingCapital)

	completedAt := time.Now()
	result := &types.SimulationResult{
		ID:            uuid.New().String(),
		Params:        &p,
		FinalCapital:  cash,
		TotalPnL:      totalPnL,
		TotalFees:     totalFees,
		TradeCount:    len(trades),
		SkippedTrades: skipped,
		EquityCurve:   curve,
		Trades:        trades,
		Metrics:       metrics,
		StartedAt:     startedAt,
		CompletedAt:   completedAt,
		Duration:      completedAt.Sub(startedAt),
	}

	e.logger.Info("Simulation completed",
		zap.String("id", result.ID),
		zap.Int("bars", len(series)),
		zap.Int("trades", result.TradeCount),
		zap.Int("skipped", result.SkippedTrades),
		zap.String("finalCapital", result.FinalCapital.String()),
	)

	return result, nil
}

// accrueDailyFees charges the daily fee for every open position, in open
// order. A position that cannot be charged in full pays what positive
// cash remains (nothing when cash is zero or below), and no further
// positions are charged that day. Collected fees are never negative.
func accrueDailyFees(p types.SimulationParams, open []*position, cash, totalFees decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	for _, pos := range open {
		fee := p.DailyFeePercent.Div(hundred).Mul(pos.baseAmount)
		if !fee.IsPositive() {
			continue
		}
		if cash.GreaterThanOrEqual(fee) {
			cash = cash.Sub(fee)
			totalFees = totalFees.Add(fee)
			pos.fees = pos.fees.Add(fee)
			continue
		}
		partial := decimal.Max(cash, decimal.Zero)
		totalFees = totalFees.Add(partial)
		pos.fees = pos.fees.Add(partial)
		cash = cash.Sub(partial)
		break
	}
	return cash, totalFees
}

// entrySignal evaluates the open-over-open move against the threshold.
// Long entries fire on a move of at least +threshold; short entries, only
// in long/short mode, fire on the symmetric downside move.
func entrySignal(p types.SimulationParams, prevOpen, currOpen decimal.Decimal) (types.TradeSide, bool) {
	if !prevOpen.IsPositive() {
		return "", false
	}
	move := currOpen.Sub(prevOpen).Div(prevOpen).Mul(hundred)
	if move.GreaterThanOrEqual(p.MinPriceMovementPercent) {
		return types.TradeSideLong, true
	}
	if p.EntryMode == types.EntryModeLongShort && move.LessThanOrEqual(p.MinPriceMovementPercent.Neg()) {
		return types.TradeSideShort, true
	}
	return "", false
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
