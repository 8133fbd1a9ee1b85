// Package simulator provides open-position state for the replay engine.
package simulator

import (
	"time"

	"github.com/google/uuid"
	"github.com/replaylab/sim-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// position is the transient state of one open position. It is created
// when the entry rule fires, mutated daily (watermark tracking and fee
// accrual), and converted into a ClosedTrade exactly once.
type position struct {
	id             string
	side           types.TradeSide
	entryDate      time.Time
	entryPrice     decimal.Decimal
	watermark      decimal.Decimal // best price since entry: highest for longs, lowest for shorts
	baseAmount     decimal.Decimal
	exposure       decimal.Decimal
	fees           decimal.Decimal
	capitalAtEntry decimal.Decimal
}

// newPosition opens a position at the bar's open price. The watermark
// starts at the bar's own extreme since the entry fill happens during
// that bar.
func newPosition(side types.TradeSide, bar types.PricePoint, baseAmount, exposure, capitalAtEntry decimal.Decimal) *position {
	watermark := decimal.Max(bar.Open, bar.High)
	if side == types.TradeSideShort {
		watermark = decimal.Min(bar.Open, bar.Low)
	}
	return &position{
		id:             uuid.New().String(),
		side:           side,
		entryDate:      bar.Date,
		entryPrice:     bar.Open,
		watermark:      watermark,
		baseAmount:     baseAmount,
		exposure:       exposure,
		fees:           decimal.Zero,
		capitalAtEntry: capitalAtEntry,
	}
}

// updateWatermark advances the best-price-since-entry mark with the
// current bar's extreme.
func (pos *position) updateWatermark(bar types.PricePoint) {
	if pos.side == types.TradeSideShort {
		if bar.Low.LessThan(pos.watermark) {
			pos.watermark = bar.Low
		}
		return
	}
	if bar.High.GreaterThan(pos.watermark) {
		pos.watermark = bar.High
	}
}

// checkExit applies the configured exit policy against the day's worst
// intraday price. The returned price is the synthetic fill at which the
// dollar stop (or take-profit) amount would exactly trigger, not the
// actual daily extreme.
func (pos *position) checkExit(p types.SimulationParams, bar types.PricePoint) (decimal.Decimal, types.ExitReason, bool) {
	if p.ExitMode == types.ExitModeTakeProfitAndTrailing {
		if price, hit := pos.checkTakeProfit(p.TakeProfitAmount, bar); hit {
			return price, types.ExitReasonTakeProfit, true
		}
	}

	switch p.ExitMode {
	case types.ExitModeFixedStop:
		if price, hit := pos.checkStopFrom(pos.entryPrice, p.StopLossAmount, bar); hit {
			return price, types.ExitReasonFixedStop, true
		}
	default: // trailing, alone or combined with take-profit
		if price, hit := pos.checkStopFrom(pos.watermark, p.StopLossAmount, bar); hit {
			return price, types.ExitReasonTrailingStop, true
		}
	}

	return decimal.Zero, "", false
}

// checkStopFrom measures the dollar loss from a reference price to the
// day's adverse extreme and reconstructs the exact trigger price.
func (pos *position) checkStopFrom(ref, stopAmount decimal.Decimal, bar types.PricePoint) (decimal.Decimal, bool) {
	ratio := stopAmount.Div(pos.exposure)
	if pos.side == types.TradeSideShort {
		loss := pos.exposure.Mul(bar.High.Sub(ref)).Div(ref)
		if loss.GreaterThanOrEqual(stopAmount) {
			return ref.Mul(decimal.NewFromInt(1).Add(ratio)), true
		}
		return decimal.Zero, false
	}
	loss := pos.exposure.Mul(ref.Sub(bar.Low)).Div(ref)
	if loss.GreaterThanOrEqual(stopAmount) {
		return ref.Mul(decimal.NewFromInt(1).Sub(ratio)), true
	}
	return decimal.Zero, false
}

// checkTakeProfit measures the dollar gain from entry to the day's
// favorable extreme.
func (pos *position) checkTakeProfit(tpAmount decimal.Decimal, bar types.PricePoint) (decimal.Decimal, bool) {
	ratio := tpAmount.Div(pos.exposure)
	if pos.side == types.TradeSideShort {
		gain := pos.exposure.Mul(pos.entryPrice.Sub(bar.Low)).Div(pos.entryPrice)
		if gain.GreaterThanOrEqual(tpAmount) {
			return pos.entryPrice.Mul(decimal.NewFromInt(1).Sub(ratio)), true
		}
		return decimal.Zero, false
	}
	gain := pos.exposure.Mul(bar.High.Sub(pos.entryPrice)).Div(pos.entryPrice)
	if gain.GreaterThanOrEqual(tpAmount) {
		return pos.entryPrice.Mul(decimal.NewFromInt(1).Add(ratio)), true
	}
	return decimal.Zero, false
}

// realizedPnL computes the leveraged P&L at an exit price, excluding
// fees. Fees were already deducted from cash day by day and must not be
// subtracted from the returned principal again.
func (pos *position) realizedPnL(exitPrice decimal.Decimal) decimal.Decimal {
	if pos.side == types.TradeSideShort {
		return pos.exposure.Mul(pos.entryPrice.Sub(exitPrice)).Div(pos.entryPrice)
	}
	return pos.exposure.Mul(exitPrice.Sub(pos.entryPrice)).Div(pos.entryPrice)
}

// unrealizedPnL marks the position to a close price.
func (pos *position) unrealizedPnL(closePrice decimal.Decimal) decimal.Decimal {
	return pos.realizedPnL(closePrice)
}

// close converts the position into its immutable ledger record.
func (pos *position) close(exitDate time.Time, exitPrice, pnl decimal.Decimal, reason types.ExitReason, capitalAfterClose decimal.Decimal) types.ClosedTrade {
	holdingDays := int(exitDate.Sub(pos.entryDate).Hours() / 24)
	if holdingDays < 0 {
		holdingDays = 0
	}
	return types.ClosedTrade{
		ID:                pos.id,
		Side:              pos.side,
		EntryDate:         pos.entryDate,
		EntryPrice:        pos.entryPrice,
		ExitDate:          exitDate,
		ExitPrice:         exitPrice,
		HighestPrice:      pos.watermark,
		BaseAmount:        pos.baseAmount,
		LeveragedExposure: pos.exposure,
		PnL:               pnl,
		FeesPaid:          pos.fees,
		HoldingDays:       holdingDays,
		CapitalAtEntry:    pos.capitalAtEntry,
		CapitalAfterClose: capitalAfterClose,
		Reason:            reason,
	}
}
