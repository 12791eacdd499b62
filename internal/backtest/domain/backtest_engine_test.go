package domain_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/etfarb/internal/backtest/domain"
	"github.com/wyfcoding/etfarb/internal/backtest/infrastructure"
	"github.com/wyfcoding/etfarb/internal/calendar"
	"github.com/wyfcoding/etfarb/internal/engineconfig"
	"github.com/wyfcoding/etfarb/internal/quote"
	"github.com/wyfcoding/etfarb/internal/strategy"
)

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		panic(err)
	}
	return t
}

func newSeries() *infrastructure.HistoricalSeries {
	s := infrastructure.NewHistoricalSeries()

	s.SeedBar("600519", mustDate("2026-03-05T14:05:00"), quote.Quote{
		Code: "600519", Name: "Moutai", Price: decimal.NewFromFloat(1980.0),
		ChangePct: decimal.NewFromFloat(0.0999), IsLimitUp: true,
		Amount: decimal.NewFromFloat(1.98e9), SealAmount: decimal.NewFromFloat(1.5e9),
		Timestamp: mustDate("2026-03-05T14:05:00"),
	})
	s.SeedBar("510300", mustDate("2026-03-05T14:05:00"), quote.Quote{
		Code: "510300", Name: "CSI 300 ETF", Price: decimal.NewFromFloat(3.9),
		Amount: decimal.NewFromFloat(8e8), Timestamp: mustDate("2026-03-05T14:05:00"),
	})

	s.SeedSnapshot("510300", "CSI 300 ETF", mustDate("2026-01-01T00:00:00"), []quote.Holding{
		{StockCode: "600519", ETFCode: "510300", Weight: decimal.NewFromFloat(0.085), Rank: 5},
	})
	return s
}

func newTestDriver(series *infrastructure.HistoricalSeries) *domain.Driver {
	regs, err := strategy.NewRegistries()
	if err != nil {
		panic(err)
	}
	return domain.NewDriver(series, series, regs, strategy.DefaultEvaluationConfig(), calendar.DefaultSessions())
}

func TestDriverRunCanonicalLimitUp(t *testing.T) {
	series := newSeries()
	driver := newTestDriver(series)

	cfg := domain.BacktestConfig{
		StartDate:     mustDate("2026-03-05T00:00:00"),
		EndDate:       mustDate("2026-03-05T23:59:59"),
		Granularity:   domain.GranularityDaily,
		EngineConfig:  engineconfig.Balanced(),
		Securities:    []string{"600519"},
		Interpolation: domain.InterpolationStep,
		ETFUniverse:   []string{"510300"},
	}

	result, err := driver.Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.Len(t, result.Signals, 1)
	assert.Equal(t, "600519", result.Signals[0].StockCode)
	assert.Equal(t, 1, result.Statistics.TotalSignals)
	assert.Equal(t, 1, result.Statistics.PerDateCounts["2026-03-05"])
}

func TestDriverRunNoTradingDatesInRange(t *testing.T) {
	series := newSeries()
	driver := newTestDriver(series)

	cfg := domain.BacktestConfig{
		StartDate:     mustDate("2025-01-01T00:00:00"),
		EndDate:       mustDate("2025-01-02T00:00:00"),
		Granularity:   domain.GranularityDaily,
		EngineConfig:  engineconfig.Balanced(),
		Securities:    []string{"600519"},
		Interpolation: domain.InterpolationStep,
		ETFUniverse:   []string{"510300"},
	}

	_, err := driver.Run(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestDriverRunReportsProgress(t *testing.T) {
	series := newSeries()
	series.SeedBar("600519", mustDate("2026-03-06T14:05:00"), quote.Quote{
		Code: "600519", Name: "Moutai", Price: decimal.NewFromFloat(1980.0),
		Timestamp: mustDate("2026-03-06T14:05:00"),
	})

	driver := newTestDriver(series)
	cfg := domain.BacktestConfig{
		StartDate:     mustDate("2026-03-05T00:00:00"),
		EndDate:       mustDate("2026-03-06T23:59:59"),
		Granularity:   domain.GranularityDaily,
		EngineConfig:  engineconfig.Balanced(),
		Securities:    []string{"600519"},
		Interpolation: domain.InterpolationStep,
		ETFUniverse:   []string{"510300"},
	}

	var progress []float64
	_, err := driver.Run(context.Background(), cfg, func(p float64) { progress = append(progress, p) })
	require.NoError(t, err)
	require.Len(t, progress, 2)
	assert.Equal(t, 0.5, progress[0])
	assert.Equal(t, 1.0, progress[1])
}

func TestInterpolationLinearBlendsWeight(t *testing.T) {
	series := infrastructure.NewHistoricalSeries()
	series.SeedBar("600519", mustDate("2026-06-15T14:05:00"), quote.Quote{
		Code: "600519", Name: "Moutai", Price: decimal.NewFromFloat(1980.0),
		ChangePct: decimal.NewFromFloat(0.0999), IsLimitUp: true,
		Amount: decimal.NewFromFloat(1.98e9), SealAmount: decimal.NewFromFloat(1.5e9),
		Timestamp: mustDate("2026-06-15T14:05:00"),
	})
	series.SeedBar("510300", mustDate("2026-06-15T14:05:00"), quote.Quote{
		Code: "510300", Name: "CSI 300 ETF", Price: decimal.NewFromFloat(3.9),
		Amount: decimal.NewFromFloat(8e8), Timestamp: mustDate("2026-06-15T14:05:00"),
	})
	series.SeedSnapshot("510300", "CSI 300 ETF", mustDate("2026-01-01T00:00:00"), []quote.Holding{
		{StockCode: "600519", ETFCode: "510300", Weight: decimal.NewFromFloat(0.06), Rank: 5},
	})
	series.SeedSnapshot("510300", "CSI 300 ETF", mustDate("2026-12-31T00:00:00"), []quote.Holding{
		{StockCode: "600519", ETFCode: "510300", Weight: decimal.NewFromFloat(0.10), Rank: 5},
	})

	driver := newTestDriver(series)
	cfg := domain.BacktestConfig{
		StartDate:     mustDate("2026-06-15T00:00:00"),
		EndDate:       mustDate("2026-06-15T23:59:59"),
		Granularity:   domain.GranularityDaily,
		EngineConfig:  engineconfig.Balanced(),
		Securities:    []string{"600519"},
		Interpolation: domain.InterpolationLinear,
		ETFUniverse:   []string{"510300"},
	}

	result, err := driver.Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.Len(t, result.Signals, 1)
	// roughly mid-year between a 6% and 10% snapshot: weight lands strictly
	// between the two endpoints, well above the 5% min_weight gate.
	assert.Contains(t, result.Signals[0].Reason, "weight")
	w, _ := result.Signals[0].Weight.Float64()
	assert.Greater(t, w, 0.06)
	assert.Less(t, w, 0.10)
}
