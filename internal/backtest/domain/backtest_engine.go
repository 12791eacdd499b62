package domain

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/etfarb/internal/apperr"
	"github.com/wyfcoding/etfarb/internal/calendar"
	"github.com/wyfcoding/etfarb/internal/engine"
	"github.com/wyfcoding/etfarb/internal/engineconfig"
	"github.com/wyfcoding/etfarb/internal/mapping"
	"github.com/wyfcoding/etfarb/internal/quote"
	"github.com/wyfcoding/etfarb/internal/signal"
	"github.com/wyfcoding/etfarb/internal/strategy"
)

// BarProvider synthesizes historical quotes (§4.G step 2). It is a provider
// boundary (spec §1 "Out of scope"): this repository supplies only an
// in-memory implementation (infrastructure.HistoricalSeries).
type BarProvider interface {
	// Bars returns every bar timestamp in [start,end] at granularity,
	// already localized to a plausible intraday trading instant — the
	// provider, not the driver, knows what time of day each historical bar
	// represents.
	Bars(ctx context.Context, start, end time.Time, granularity Granularity) ([]time.Time, error)
	// QuoteAt synthesizes code's quote as of t.
	QuoteAt(ctx context.Context, code string, t time.Time) (quote.Quote, error)
}

// Snapshot is one ETF's top holdings as of a quarterly disclosure date.
type Snapshot struct {
	AsOf     time.Time
	Holdings []quote.Holding
}

// SnapshotProvider exposes the quarterly disclosure history a backtest
// interpolates between (§4.G step 3). Another provider-boundary seam.
type SnapshotProvider interface {
	// Snapshots returns etfCode's disclosure snapshots sorted by AsOf
	// ascending.
	Snapshots(ctx context.Context, etfCode string) ([]Snapshot, error)
	ETFName(ctx context.Context, etfCode string) (string, error)
}

// Driver replays the arbitrage engine's pipeline over historical data
// (§4.G). It holds no job state of its own; the application layer owns
// that.
type Driver struct {
	Bars       BarProvider
	Snapshots  SnapshotProvider
	Registries *strategy.Registries
	EvalConfig strategy.EvaluationConfig
	Sessions   calendar.Sessions
}

// NewDriver builds a Driver from its collaborators.
func NewDriver(bars BarProvider, snapshots SnapshotProvider, regs *strategy.Registries, evalCfg strategy.EvaluationConfig, sessions calendar.Sessions) *Driver {
	return &Driver{Bars: bars, Snapshots: snapshots, Registries: regs, EvalConfig: evalCfg, Sessions: sessions}
}

// Run executes cfg deterministically (§4.G "Determinism"): no wall clock or
// RNG enters the pipeline, every bar's clock is pinned to its own
// timestamp, and securities/dates are iterated in a stable order.
// onProgress, if non-nil, is called after each bar with dates_done/dates_total.
func (d *Driver) Run(ctx context.Context, cfg BacktestConfig, onProgress func(float64)) (*BacktestResult, error) {
	resolved, err := engineconfig.Build(cfg.EngineConfig, d.Registries)
	if err != nil {
		return nil, err
	}

	bars, err := d.Bars.Bars(ctx, cfg.StartDate, cfg.EndDate, cfg.Granularity)
	if err != nil {
		return nil, apperr.Dependency("resolve bars: %v", err)
	}
	if len(bars) == 0 {
		return nil, apperr.Validation("no trading dates in [%s, %s]", cfg.StartDate.Format("2006-01-02"), cfg.EndDate.Format("2006-01-02"))
	}

	snapshotsByETF := make(map[string][]Snapshot, len(cfg.ETFUniverse))
	namesByETF := make(map[string]string, len(cfg.ETFUniverse))
	for _, etfCode := range cfg.ETFUniverse {
		snaps, err := d.Snapshots.Snapshots(ctx, etfCode)
		if err != nil {
			return nil, apperr.Dependency("fetch snapshots for %s: %v", etfCode, err)
		}
		snapshotsByETF[etfCode] = snaps
		name, err := d.Snapshots.ETFName(ctx, etfCode)
		if err != nil {
			return nil, apperr.Dependency("resolve etf name for %s: %v", etfCode, err)
		}
		namesByETF[etfCode] = name
	}

	securities := make([]string, len(cfg.Securities))
	copy(securities, cfg.Securities)
	sort.Strings(securities)

	repo := signal.NewInMemoryRepository()
	perDate := make(map[string]int)
	stats := Statistics{PerDateCounts: perDate}

	for i, at := range bars {
		if err := ctx.Err(); err != nil {
			return nil, apperr.New(apperr.KindInternal, "cancelled between bar boundaries")
		}

		store := mapping.New()
		holdingsAt := &interpolatedHoldings{
			snapshots:     snapshotsByETF,
			names:         namesByETF,
			at:            at,
			interpolation: cfg.Interpolation,
		}
		if err := store.Rebuild(ctx, cfg.ETFUniverse, holdingsAt, 10, 0); err != nil {
			return nil, apperr.Dependency("rebuild mapping at %s: %v", at, err)
		}

		barProvider := &pinnedQuoteProvider{bars: d.Bars, at: at}
		e := engine.New(barProvider, store, nil, resolved, repo, d.Sessions, calendar.FixedClock{At: at}, cfg.EngineConfig, d.EvalConfig, 0)

		if _, err := e.Scan(ctx, securities); err != nil {
			return nil, apperr.Dependency("scan at %s: %v", at, err)
		}

		if onProgress != nil {
			onProgress(float64(i+1) / float64(len(bars)))
		}
	}

	allSignals, err := repo.List(ctx, signal.Filter{})
	if err != nil {
		return nil, apperr.Internal(err, "list backtest signals")
	}
	// repo.List returns newest-first; §5 requires (date, intraday_bar,
	// stock_code) ordering regardless of execution order.
	sort.Slice(allSignals, func(i, j int) bool {
		if !allSignals[i].Timestamp.Equal(allSignals[j].Timestamp) {
			return allSignals[i].Timestamp.Before(allSignals[j].Timestamp)
		}
		return allSignals[i].StockCode < allSignals[j].StockCode
	})

	for _, s := range allSignals {
		stats.TotalSignals++
		switch s.ConfidenceLevel {
		case signal.ConfidenceHigh:
			stats.HighConfidenceCount++
		case signal.ConfidenceMedium:
			stats.MediumConfidenceCount++
		case signal.ConfidenceLow:
			stats.LowConfidenceCount++
		}
		perDate[s.Timestamp.Format("2006-01-02")]++
	}

	return &BacktestResult{Statistics: stats, Signals: allSignals, ConfigEcho: cfg}, nil
}

// pinnedQuoteProvider adapts BarProvider to quote.Provider for one instant.
type pinnedQuoteProvider struct {
	bars BarProvider
	at   time.Time
}

func (p *pinnedQuoteProvider) Get(ctx context.Context, code string) (quote.Quote, error) {
	return p.bars.QuoteAt(ctx, code, p.at)
}

func (p *pinnedQuoteProvider) GetBatch(ctx context.Context, codes []string) (map[string]quote.Quote, error) {
	out := make(map[string]quote.Quote, len(codes))
	for _, code := range codes {
		q, err := p.bars.QuoteAt(ctx, code, p.at)
		if err == nil {
			out[code] = q
		}
	}
	return out, nil
}

// interpolatedHoldings adapts a snapshot history to quote.HoldingsProvider
// for one instant, per §4.G step 3's linear/step interpolation.
type interpolatedHoldings struct {
	snapshots     map[string][]Snapshot
	names         map[string]string
	at            time.Time
	interpolation Interpolation
}

func (h *interpolatedHoldings) TopHoldings(ctx context.Context, etfCode string, topN int) ([]quote.Holding, error) {
	snaps := h.snapshots[etfCode]
	if len(snaps) == 0 {
		return nil, apperr.NotFound("no snapshots for %s", etfCode)
	}

	before, after := surroundingSnapshots(snaps, h.at)
	var holdings []quote.Holding
	switch {
	case before == nil:
		holdings = after.Holdings
	case after == nil || h.interpolation == InterpolationStep:
		holdings = before.Holdings
	default:
		holdings = interpolateLinear(*before, *after, h.at)
	}

	if topN > 0 && topN < len(holdings) {
		holdings = holdings[:topN]
	}
	return holdings, nil
}

func (h *interpolatedHoldings) ETFName(ctx context.Context, etfCode string) (string, error) {
	return h.names[etfCode], nil
}

// surroundingSnapshots returns the latest snapshot at-or-before at and the
// earliest snapshot strictly after at, either of which may be nil.
func surroundingSnapshots(snaps []Snapshot, at time.Time) (before, after *Snapshot) {
	for i := range snaps {
		if !snaps[i].AsOf.After(at) {
			before = &snaps[i]
		} else if after == nil {
			after = &snaps[i]
		}
	}
	return before, after
}

// interpolateLinear blends before/after holdings' weights by the fraction of
// elapsed time between the two snapshots' AsOf instants at which at falls.
// The fraction is measured in calendar time; weekends and holidays are not
// excluded, so it is not a trading-day distance. A blended holding takes
// its Rank from the later snapshot. Holdings present in only one snapshot
// are held at that snapshot's value (equivalent to a one-sided step).
func interpolateLinear(before, after Snapshot, at time.Time) []quote.Holding {
	total := after.AsOf.Sub(before.AsOf)
	if total <= 0 {
		return before.Holdings
	}
	frac := at.Sub(before.AsOf).Seconds() / total.Seconds()

	beforeByStock := make(map[string]quote.Holding, len(before.Holdings))
	for _, h := range before.Holdings {
		beforeByStock[h.StockCode] = h
	}
	afterByStock := make(map[string]quote.Holding, len(after.Holdings))
	for _, h := range after.Holdings {
		afterByStock[h.StockCode] = h
	}

	seen := make(map[string]bool)
	out := make([]quote.Holding, 0, len(beforeByStock)+len(afterByStock))
	for code, b := range beforeByStock {
		seen[code] = true
		a, ok := afterByStock[code]
		if !ok {
			out = append(out, b)
			continue
		}
		bw, _ := b.Weight.Float64()
		aw, _ := a.Weight.Float64()
		out = append(out, quote.Holding{
			StockCode: code,
			ETFCode:   b.ETFCode,
			Weight:    decimal.NewFromFloat(bw + (aw-bw)*frac),
			Rank:      a.Rank,
			AsOf:      at,
		})
	}
	for code, a := range afterByStock {
		if seen[code] {
			continue
		}
		out = append(out, a)
	}
	// out is built from two map iterations, so rows sharing a Rank (ties are
	// common: a blended holding taking the later snapshot's rank, or a
	// held-over holding keeping its original rank) land in an order that
	// varies run to run. Break ties by stock code so CSV export is
	// reproducible.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].StockCode < out[j].StockCode
	})
	return out
}

