// Package data provides integrity validation for price series.
// A series that reaches the simulator must be chronologically ordered,
// free of duplicate dates, and internally consistent bar by bar.
package data

import (
	"fmt"
	"time"

	"github.com/replaylab/sim-backend/pkg/types"
	"go.uber.org/zap"
)

// SeriesValidator checks a price series before it is handed to the
// simulation engine.
type SeriesValidator struct {
	logger *zap.Logger

	// MaxGapMovePercent flags suspicious open-over-close gaps between
	// consecutive bars. Gaps are warnings, not rejections.
	MaxGapMovePercent float64
}

// SeriesIssue describes one problem found in a series
type SeriesIssue struct {
	Severity string    `json:"severity"` // "critical" or "warning"
	Date     time.Time `json:"date"`
	BarIndex int       `json:"barIndex"`
	Message  string    `json:"message"`
}

// SeriesReport summarizes a validation pass
type SeriesReport struct {
	Symbol    string        `json:"symbol"`
	TotalBars int           `json:"totalBars"`
	Issues    []SeriesIssue `json:"issues"`
	IsUsable  bool          `json:"isUsable"`
}

// NewSeriesValidator creates a validator with crypto-market defaults
func NewSeriesValidator(logger *zap.Logger) *SeriesValidator {
	return &SeriesValidator{
		logger:            logger,
		MaxGapMovePercent: 20,
	}
}

// Validate runs all checks. The report is usable when no critical
// issue was found; warnings alone do not block a run.
func (v *SeriesValidator) Validate(symbol string, series []types.PricePoint) *SeriesReport {
	report := &SeriesReport{
		Symbol:    symbol,
		TotalBars: len(series),
		Issues:    make([]SeriesIssue, 0),
	}

	for i, bar := range series {
		v.checkBar(report, i, bar)
		if i == 0 {
			continue
		}
		prev := series[i-1]

		if !bar.Date.After(prev.Date) {
			severity := "critical"
			msg := "bar out of chronological order"
			if bar.Date.Equal(prev.Date) {
				msg = "duplicate date"
			}
			report.Issues = append(report.Issues, SeriesIssue{
				Severity: severity,
				Date:     bar.Date,
				BarIndex: i,
				Message:  msg,
			})
		}

		if prev.Close.IsPositive() && v.MaxGapMovePercent > 0 {
			gap := bar.Open.Sub(prev.Close).Div(prev.Close).Abs().InexactFloat64() * 100
			if gap > v.MaxGapMovePercent {
				report.Issues = append(report.Issues, SeriesIssue{
					Severity: "warning",
					Date:     bar.Date,
					BarIndex: i,
					Message:  fmt.Sprintf("gap of %.1f%% from previous close", gap),
				})
			}
		}
	}

	report.IsUsable = true
	for _, issue := range report.Issues {
		if issue.Severity == "critical" {
			report.IsUsable = false
			break
		}
	}

	if !report.IsUsable {
		v.logger.Warn("Series failed validation",
			zap.String("symbol", symbol),
			zap.Int("bars", report.TotalBars),
			zap.Int("issues", len(report.Issues)),
		)
	}

	return report
}

// checkBar validates a single bar's internal OHLC consistency.
func (v *SeriesValidator) checkBar(report *SeriesReport, i int, bar types.PricePoint) {
	critical := func(msg string) {
		report.Issues = append(report.Issues, SeriesIssue{
			Severity: "critical",
			Date:     bar.Date,
			BarIndex: i,
			Message:  msg,
		})
	}

	if !bar.Open.IsPositive() || !bar.High.IsPositive() || !bar.Low.IsPositive() || !bar.Close.IsPositive() {
		critical("non-positive price")
		return
	}
	if bar.High.LessThan(bar.Low) {
		critical("high below low")
	}
	if bar.High.LessThan(bar.Open) || bar.High.LessThan(bar.Close) {
		critical("high below open or close")
	}
	if bar.Low.GreaterThan(bar.Open) || bar.Low.GreaterThan(bar.Close) {
		critical("low above open or close")
	}
}
