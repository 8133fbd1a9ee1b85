package data_test

import (
	"testing"
	"time"

	"github.com/replaylab/sim-backend/internal/data"
	"github.com/replaylab/sim-backend/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func ohlc(date time.Time, open, high, low, close float64) types.PricePoint {
	return types.PricePoint{
		Date:  date,
		Open:  decimal.NewFromFloat(open),
		High:  decimal.NewFromFloat(high),
		Low:   decimal.NewFromFloat(low),
		Close: decimal.NewFromFloat(close),
	}
}

func TestValidateCleanSeries(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	series := []types.PricePoint{
		ohlc(base, 100, 101, 99, 100.5),
		ohlc(base.AddDate(0, 0, 1), 100.6, 102, 100.2, 101.8),
		ohlc(base.AddDate(0, 0, 2), 101.9, 103, 101.5, 102.4),
	}

	validator := data.NewSeriesValidator(zap.NewNop())
	report := validator.Validate("ETH/USD", series)

	if !report.IsUsable {
		t.Errorf("Expected a clean series to be usable, issues: %v", report.Issues)
	}
	if len(report.Issues) != 0 {
		t.Errorf("Expected no issues, got %d", len(report.Issues))
	}
	if report.TotalBars != 3 {
		t.Errorf("Expected 3 bars in the report, got %d", report.TotalBars)
	}
}

func TestValidateRejectsBrokenBars(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		series []types.PricePoint
	}{
		{"non-positive price", []types.PricePoint{
			ohlc(base, 100, 101, 0, 100.5),
		}},
		{"high below low", []types.PricePoint{
			ohlc(base, 100, 99, 101, 100),
		}},
		{"high below close", []types.PricePoint{
			ohlc(base, 100, 100.5, 99, 102),
		}},
		{"low above open", []types.PricePoint{
			ohlc(base, 99, 101, 100, 100.5),
		}},
		{"duplicate date", []types.PricePoint{
			ohlc(base, 100, 101, 99, 100.5),
			ohlc(base, 100.5, 101.5, 100, 101),
		}},
		{"out of order", []types.PricePoint{
			ohlc(base.AddDate(0, 0, 1), 100, 101, 99, 100.5),
			ohlc(base, 100.5, 101.5, 100, 101),
		}},
	}

	validator := data.NewSeriesValidator(zap.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := validator.Validate("ETH/USD", tt.series)
			if report.IsUsable {
				t.Error("Expected a critical issue to make the series unusable")
			}
		})
	}
}

func TestValidateGapIsWarningOnly(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	series := []types.PricePoint{
		ohlc(base, 100, 101, 99, 100),
		// 30% gap up from the previous close.
		ohlc(base.AddDate(0, 0, 1), 130, 131, 129, 130.5),
	}

	validator := data.NewSeriesValidator(zap.NewNop())
	report := validator.Validate("ETH/USD", series)

	if !report.IsUsable {
		t.Error("Expected a gap warning not to block the series")
	}
	if len(report.Issues) != 1 || report.Issues[0].Severity != "warning" {
		t.Fatalf("Expected exactly one warning, got %v", report.Issues)
	}
}
