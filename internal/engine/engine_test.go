package engine

import (
	"context"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/etfarb/internal/calendar"
	"github.com/wyfcoding/etfarb/internal/engineconfig"
	"github.com/wyfcoding/etfarb/internal/mapping"
	"github.com/wyfcoding/etfarb/internal/platform/metrics"
	"github.com/wyfcoding/etfarb/internal/quote"
	"github.com/wyfcoding/etfarb/internal/signal"
	"github.com/wyfcoding/etfarb/internal/strategy"
)

func counterValue(t *testing.T, c interface{ Write(*dto.Metric) error }) float64 {
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func mustTime(s string) time.Time {
	t, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		panic(err)
	}
	return t
}

func newTestEngine(t *testing.T) (*Engine, *signal.InMemoryRepository) {
	regs, err := strategy.NewRegistries()
	require.NoError(t, err)
	resolved, err := engineconfig.Build(engineconfig.Balanced(), regs)
	require.NoError(t, err)

	provider := quote.NewMemoryProvider()
	store := mapping.New()
	repo := signal.NewInMemoryRepository()
	sessions := calendar.DefaultSessions()

	return &Engine{
		Quotes:     provider,
		Mapping:    store,
		Strategy:   resolved,
		Repo:       repo,
		Sessions:   sessions,
		Clock:      calendar.FixedClock{At: mustTime("2026-03-05T14:05:00")},
		Config:     engineconfig.Balanced(),
		EvalConfig: strategy.DefaultEvaluationConfig(),
	}, repo
}

func seedScenario1(e *Engine) *quote.MemoryProvider {
	provider := e.Quotes.(*quote.MemoryProvider)
	provider.SeedQuote(quote.Quote{
		Code:       "600519",
		Name:       "Moutai",
		Price:      decimal.NewFromFloat(1980.0),
		ChangePct:  decimal.NewFromFloat(0.0999),
		IsLimitUp:  true,
		Volume:     1_000_000,
		Amount:     decimal.NewFromFloat(1.98e9),
		Timestamp:  mustTime("2026-03-05T14:05:00"),
		SealAmount: decimal.NewFromFloat(1.5e9),
	})
	provider.SeedQuote(quote.Quote{
		Code:      "510300",
		Name:      "CSI 300 ETF",
		Price:     decimal.NewFromFloat(3.9),
		ChangePct: decimal.NewFromFloat(0.01),
		Amount:    decimal.NewFromFloat(8e8),
		Timestamp: mustTime("2026-03-05T14:05:00"),
	})
	if err := e.Mapping.Rebuild(context.Background(), []string{"510300"}, stubHoldings{}, 10, 0); err != nil {
		panic(err)
	}
	return provider
}

// stubHoldings returns the single holding scenario 1 describes, bypassing
// MemoryProvider's own TopHoldings/ETFName wiring so the test can seed it
// directly against the mapping store under the exact weight/rank given.
type stubHoldings struct{}

func (stubHoldings) TopHoldings(ctx context.Context, etfCode string, topN int) ([]quote.Holding, error) {
	return []quote.Holding{{StockCode: "600519", ETFCode: "510300", Weight: decimal.NewFromFloat(0.085), Rank: 5}}, nil
}

func (stubHoldings) ETFName(ctx context.Context, etfCode string) (string, error) {
	return "CSI 300 ETF", nil
}

func TestScanCanonicalLimitUp(t *testing.T) {
	e, repo := newTestEngine(t)
	seedScenario1(e)

	result, err := e.Scan(context.Background(), []string{"600519"})
	require.NoError(t, err)
	require.Len(t, result.SignalsEmitted, 1)
	assert.Empty(t, result.SignalsRejected)

	s := result.SignalsEmitted[0]
	assert.Equal(t, signal.ConfidenceHigh, s.ConfidenceLevel)
	assert.Equal(t, signal.RiskMedium, s.RiskLevel)
	assert.Contains(t, s.Reason, "weight 8.50%")

	listed, err := repo.List(context.Background(), signal.Filter{})
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestScanRecordsMetrics(t *testing.T) {
	e, _ := newTestEngine(t)
	seedScenario1(e)
	e.Metrics = metrics.New("test")

	_, err := e.Scan(context.Background(), []string{"600519"})
	require.NoError(t, err)

	assert.Equal(t, float64(1), counterValue(t, e.Metrics.ScansTotal))
	assert.Equal(t, float64(1), counterValue(t, e.Metrics.EventsDetected))
	assert.Equal(t, float64(1), counterValue(t, e.Metrics.SignalsEmitted))
	assert.Equal(t, float64(0), counterValue(t, e.Metrics.SignalsRejected))
}

func TestScanFilteredByTime(t *testing.T) {
	e, _ := newTestEngine(t)
	seedScenario1(e)
	e.Clock = calendar.FixedClock{At: mustTime("2026-03-05T14:45:00")}

	result, err := e.Scan(context.Background(), []string{"600519"})
	require.NoError(t, err)
	assert.Empty(t, result.SignalsEmitted)
	require.Len(t, result.SignalsRejected, 1)
	assert.Contains(t, result.SignalsRejected[0].Reason, "time to close 900s < 1800s")
}

func TestScanNoEligibleETF(t *testing.T) {
	e, _ := newTestEngine(t)
	provider := e.Quotes.(*quote.MemoryProvider)
	provider.SeedQuote(quote.Quote{
		Code:      "601012",
		Name:      "LONGi",
		Price:     decimal.NewFromFloat(30.0),
		ChangePct: decimal.NewFromFloat(0.0999),
		IsLimitUp: true,
		Timestamp: mustTime("2026-03-05T14:05:00"),
	})
	require.NoError(t, e.Mapping.Rebuild(context.Background(), []string{"a", "b"}, lowWeightHoldings{}, 10, 0))

	result, err := e.Scan(context.Background(), []string{"601012"})
	require.NoError(t, err)
	assert.Empty(t, result.SignalsEmitted)
	require.Len(t, result.SignalsRejected, 1)
	assert.Equal(t, "no eligible ETF", result.SignalsRejected[0].Reason)
}

type lowWeightHoldings struct{}

func (lowWeightHoldings) TopHoldings(ctx context.Context, etfCode string, topN int) ([]quote.Holding, error) {
	switch etfCode {
	case "a":
		return []quote.Holding{{StockCode: "601012", ETFCode: "a", Weight: decimal.NewFromFloat(0.03), Rank: 1}}, nil
	default:
		return []quote.Holding{{StockCode: "601012", ETFCode: "b", Weight: decimal.NewFromFloat(0.04), Rank: 1}}, nil
	}
}

func (lowWeightHoldings) ETFName(ctx context.Context, etfCode string) (string, error) { return etfCode, nil }
