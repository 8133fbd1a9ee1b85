// Package simulator provides summary metrics for completed runs.
package simulator

import (
	"math"
	"time"

	"github.com/replaylab/sim-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// tradingDaysPerYear annualizes the Sharpe-like ratio.
const tradingDaysPerYear = 252

// Aggregator derives summary statistics from a trade ledger and equity
// curve. Degenerate inputs (empty ledger, single-point curve) produce
// neutral values, never NaN.
type Aggregator struct{}

// NewAggregator creates a new metrics aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Aggregate calculates all run metrics
func (a *Aggregator) Aggregate(
	trades []types.ClosedTrade,
	curve []types.EquityCurvePoint,
	startingCapital decimal.Decimal,
) *types.RunMetrics {
	metrics := &types.RunMetrics{}

	var winning, losing int
	var totalWins, totalLosses decimal.Decimal
	var largestWin, largestLoss decimal.Decimal
	var totalPnL decimal.Decimal

	consecutive := 0
	for _, trade := range trades {
		totalPnL = totalPnL.Add(trade.PnL)
		if trade.PnL.GreaterThan(decimal.Zero) {
			winning++
			totalWins = totalWins.Add(trade.PnL)
			if trade.PnL.GreaterThan(largestWin) {
				largestWin = trade.PnL
			}
		} else if trade.PnL.LessThan(decimal.Zero) {
			losing++
			totalLosses = totalLosses.Add(trade.PnL.Abs())
			if trade.PnL.Abs().GreaterThan(largestLoss) {
				largestLoss = trade.PnL.Abs()
			}
		}

		if trade.PnL.LessThan(decimal.Zero) {
			consecutive++
			if consecutive > metrics.MaxConsecutiveLosses {
				metrics.MaxConsecutiveLosses = consecutive
			}
		} else {
			consecutive = 0
		}
	}

	metrics.WinningTrades = winning
	metrics.LosingTrades = losing
	metrics.LargestWin = largestWin
	metrics.LargestLoss = largestLoss

	totalTrades := len(trades)
	if totalTrades > 0 {
		metrics.SuccessRate = decimal.NewFromInt(int64(winning)).Div(decimal.NewFromInt(int64(totalTrades)))
		metrics.AvgProfitPerTrade = totalPnL.Div(decimal.NewFromInt(int64(totalTrades)))
	}

	// Profit factor: avgWin*winRate / (avgLoss*(1-winRate)). Left at
	// zero when the denominator degenerates.
	if winning > 0 && losing > 0 {
		avgWin := totalWins.Div(decimal.NewFromInt(int64(winning)))
		avgLoss := totalLosses.Div(decimal.NewFromInt(int64(losing)))
		lossRate := decimal.NewFromInt(1).Sub(metrics.SuccessRate)
		denom := avgLoss.Mul(lossRate)
		if !denom.IsZero() {
			metrics.ProfitFactor = avgWin.Mul(metrics.SuccessRate).Div(denom)
		}
	}

	if len(curve) > 0 && !startingCapital.IsZero() {
		finalEquity := curve[len(curve)-1].Equity
		metrics.TotalReturn = finalEquity.Sub(startingCapital).Div(startingCapital)
	}

	metrics.MaxDrawdown, metrics.MaxDrawdownDate = a.maxDrawdown(curve)

	// Sharpe-like ratio over day-over-day equity returns, annualized.
	returns := a.dailyReturns(curve)
	if len(returns) > 1 {
		avg := mean(returns)
		dev := stdDevPop(returns)
		if dev > 0 {
			metrics.SharpeRatio = decimal.NewFromFloat(avg / dev * math.Sqrt(tradingDaysPerYear))
		}
	}

	return metrics
}

// maxDrawdown tracks the running peak of the equity curve and returns
// the deepest peak-to-point drop as a fraction in [0,1).
func (a *Aggregator) maxDrawdown(curve []types.EquityCurvePoint) (decimal.Decimal, time.Time) {
	if len(curve) == 0 {
		return decimal.Zero, time.Time{}
	}

	var maxDD decimal.Decimal
	var maxDDDate time.Time
	peak := curve[0].Equity

	for _, point := range curve {
		if point.Equity.GreaterThan(peak) {
			peak = point.Equity
		}
		if peak.IsZero() {
			continue
		}
		dd := peak.Sub(point.Equity).Div(peak)
		if dd.GreaterThan(maxDD) {
			maxDD = dd
			maxDDDate = point.Date
		}
	}

	return maxDD, maxDDDate
}

// dailyReturns converts the equity curve into day-over-day returns.
func (a *Aggregator) dailyReturns(curve []types.EquityCurvePoint) []float64 {
	if len(curve) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev.IsZero() {
			continue
		}
		ret := curve[i].Equity.Sub(prev).Div(prev)
		retFloat, _ := ret.Float64()
		returns = append(returns, retFloat)
	}

	return returns
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDevPop is the population standard deviation.
func stdDevPop(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sumSquares float64
	for _, v := range values {
		diff := v - m
		sumSquares += diff * diff
	}
	return math.Sqrt(sumSquares / float64(len(values)))
}
