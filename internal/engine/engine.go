// Package engine implements the Arbitrage Engine (§4.E): the per-security
// scan subroutine, bounded scan concurrency, and the ScanResult aggregate.
// The monitor scheduler and coordinator live alongside it in coordinator.go.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/etfarb/internal/apperr"
	"github.com/wyfcoding/etfarb/internal/cache"
	"github.com/wyfcoding/etfarb/internal/calendar"
	"github.com/wyfcoding/etfarb/internal/engineconfig"
	"github.com/wyfcoding/etfarb/internal/mapping"
	"github.com/wyfcoding/etfarb/internal/platform/logger"
	"github.com/wyfcoding/etfarb/internal/platform/metrics"
	"github.com/wyfcoding/etfarb/internal/quote"
	"github.com/wyfcoding/etfarb/internal/signal"
	"github.com/wyfcoding/etfarb/internal/strategy"
)

// QuoteCache is the subset of cache.Cache[quote.Quote] the engine depends on,
// narrowed so tests can substitute a fake without the generic cache machinery.
type QuoteCache interface {
	GetOrFill(key string, loader cache.Loader[quote.Quote], ttl time.Duration) (quote.Quote, bool, error)
}

// Rejected records why a watched security did not produce a signal.
type Rejected struct {
	StockCode string `json:"stock_code"`
	Reason    string `json:"reason"`
}

// ScanResult is the §4.E scan contract's return value.
type ScanResult struct {
	CandidatesSeen  int                    `json:"candidates_seen"`
	Events          int                    `json:"events"`
	SignalsEmitted  []signal.TradingSignal `json:"signals_emitted"`
	SignalsRejected []Rejected             `json:"signals_rejected"`
	ElapsedMs       int64                  `json:"elapsed_ms"`
}

// Engine orchestrates one scan over a watched set of securities (§4.E).
type Engine struct {
	Quotes      quote.Provider
	Mapping     *mapping.Store
	Cache       QuoteCache
	Strategy    *engineconfig.ResolvedStrategy
	Repo        signal.Repository
	Sessions    calendar.Sessions
	Clock       calendar.Clock
	Config      engineconfig.EngineConfig
	EvalConfig  strategy.EvaluationConfig
	QuoteTTL    time.Duration
	// Notify, if set, is called after a signal is durably inserted. Left nil
	// by New; callers that want notifications (the live monitor, not the
	// backtest driver) set it explicitly after construction.
	Notify func(ctx context.Context, ts *signal.TradingSignal)
	// Metrics, if set, receives scan/signal/cache counters. Left nil by New;
	// the backtest driver never sets it so replayed scans don't pollute the
	// live process's counters.
	Metrics *metrics.Metrics
}

// New builds an Engine from its already-resolved collaborators. The caller
// is responsible for validating Config/Strategy beforehand (engineconfig.Build).
func New(quotes quote.Provider, store *mapping.Store, c QuoteCache, resolved *engineconfig.ResolvedStrategy, repo signal.Repository, sessions calendar.Sessions, clock calendar.Clock, cfg engineconfig.EngineConfig, evalCfg strategy.EvaluationConfig, quoteTTL time.Duration) *Engine {
	return &Engine{
		Quotes:     quotes,
		Mapping:    store,
		Cache:      c,
		Strategy:   resolved,
		Repo:       repo,
		Sessions:   sessions,
		Clock:      clock,
		Config:     cfg,
		EvalConfig: evalCfg,
		QuoteTTL:   quoteTTL,
	}
}

// Scan runs the per-security subroutine over watched with up to
// Config.ScanConcurrency workers in flight, per §4.E "Parallelism".
func (e *Engine) Scan(ctx context.Context, watched []string) (*ScanResult, error) {
	start := time.Now()
	result := &ScanResult{}
	var mu sync.Mutex

	if e.Metrics != nil {
		e.Metrics.ScansTotal.Inc()
		defer func() { e.Metrics.ScanDuration.Observe(time.Since(start).Seconds()) }()
	}

	concurrency := e.Config.ScanConcurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	if concurrency > len(watched) && len(watched) > 0 {
		concurrency = len(watched)
	}

	sem := make(chan struct{}, maxInt(concurrency, 1))
	var wg sync.WaitGroup

	for _, code := range watched {
		code := code
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := e.processOne(ctx, code)

			mu.Lock()
			result.CandidatesSeen++
			if outcome.sawEvent {
				result.Events++
			}
			if outcome.signal != nil {
				result.SignalsEmitted = append(result.SignalsEmitted, *outcome.signal)
			} else if outcome.reason != "" {
				result.SignalsRejected = append(result.SignalsRejected, Rejected{StockCode: code, Reason: outcome.reason})
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	result.ElapsedMs = time.Since(start).Milliseconds()
	return result, nil
}

type subroutineOutcome struct {
	sawEvent bool
	signal   *signal.TradingSignal
	reason   string
}

// processOne is the §4.E "Per-security subroutine", steps 1-8.
func (e *Engine) processOne(ctx context.Context, code string) subroutineOutcome {
	q, err := e.fetchQuote(ctx, code)
	if err != nil {
		logger.Warn(ctx, "quote fetch failed", "stock_code", code, "error", err)
		return subroutineOutcome{reason: "quote unavailable"}
	}

	event, ok := e.Strategy.Detector.Detect(q)
	if !ok {
		return subroutineOutcome{}
	}
	if e.Metrics != nil {
		e.Metrics.EventsDetected.Inc()
	}

	if !e.Strategy.Detector.IsValid(event) {
		return subroutineOutcome{sawEvent: true, reason: "event invalid"}
	}

	entries := e.Mapping.GetETFsFor(code)
	eligible := make([]quote.CandidateETF, 0, len(entries))
	for _, entry := range entries {
		if entry.Weight < e.Config.MinWeight {
			continue
		}
		eligible = append(eligible, e.enrich(ctx, entry))
	}
	if len(eligible) == 0 {
		return subroutineOutcome{sawEvent: true, reason: "no eligible ETF"}
	}

	fund, ok := e.Strategy.Selector.Select(eligible, event)
	if !ok {
		return subroutineOutcome{sawEvent: true, reason: "selector returned none"}
	}

	now := e.Clock.Now()
	secondsToClose, inSession := e.Sessions.SecondsToClose(now)
	draft := strategy.DraftTradingSignal(event, fund, secondsToClose, inSession, e.EvalConfig)
	draft.Reason = e.Strategy.Selector.SelectionReason(fund)

	for _, f := range e.Strategy.Filters {
		pass, reason := f.Filter(event, fund, draft)
		draft.Reason = draft.Reason + "; " + reason
		if !pass {
			if e.Metrics != nil {
				e.Metrics.SignalsRejected.Inc()
			}
			return subroutineOutcome{sawEvent: true, reason: reason}
		}
	}

	ts := &signal.TradingSignal{
		Timestamp:       now,
		StockCode:       draft.StockCode,
		StockName:       draft.StockName,
		StockPrice:      decimal.NewFromFloat(draft.StockPrice),
		ETFCode:         draft.ETFCode,
		ETFName:         draft.ETFName,
		Weight:          decimal.NewFromFloat(draft.Weight),
		EventType:       draft.EventType,
		ConfidenceLevel: draft.ConfidenceLevel,
		ConfidenceScore: draft.ConfidenceScore,
		RiskLevel:       draft.RiskLevel,
		Reason:          draft.Reason,
		Breakdown:       draft.Breakdown,
	}
	// §7 "storage write retried once": a single transient failure does not
	// drop a signal that already passed every filter.
	if err := e.Repo.Insert(ctx, ts); err != nil {
		logger.Warn(ctx, "signal insert failed, retrying once", "stock_code", code, "error", err)
		if err = e.Repo.Insert(ctx, ts); err != nil {
			logger.Error(ctx, "signal insert failed after retry", "stock_code", code, "error", err)
			return subroutineOutcome{sawEvent: true, reason: "storage error"}
		}
	}

	if e.Metrics != nil {
		e.Metrics.SignalsEmitted.Inc()
	}

	if e.Notify != nil {
		e.Notify(ctx, ts)
	}

	return subroutineOutcome{sawEvent: true, signal: ts}
}

// fetchQuote goes through the TTL cache when one is configured.
func (e *Engine) fetchQuote(ctx context.Context, code string) (quote.Quote, error) {
	if e.Cache == nil {
		return e.Quotes.Get(ctx, code)
	}
	v, filled, err := e.Cache.GetOrFill("q:"+code, func() (quote.Quote, error) {
		return e.Quotes.Get(ctx, code)
	}, e.QuoteTTL)
	if e.Metrics != nil && err == nil {
		if filled {
			e.Metrics.CacheMisses.Inc()
		} else {
			e.Metrics.CacheHits.Inc()
		}
	}
	return v, err
}

// enrich fills a mapping.Entry's weight/rank into a CandidateETF, fetching
// the ETF's own quote for daily_amount and the mapping store's top10_ratio
// for the risk-concentration check.
func (e *Engine) enrich(ctx context.Context, entry mapping.Entry) quote.CandidateETF {
	c := quote.CandidateETF{
		ETFCode:    entry.ETFCode,
		ETFName:    entry.ETFName,
		Weight:     decimal.NewFromFloat(entry.Weight),
		Rank:       entry.Rank,
		Top10Ratio: decimal.NewFromFloat(e.Mapping.Top10Ratio(entry.ETFCode)),
	}
	if etfQuote, err := e.fetchQuote(ctx, entry.ETFCode); err == nil {
		c.Quote = &etfQuote
		c.DailyAmount = etfQuote.Amount
	}
	return c
}

// RelatedETFs returns code's eligible ETFs (weight >= Config.MinWeight),
// enriched the same way the scan subroutine enriches them, for §6
// GET /api/stocks/{code}/related-etfs. Returns apperr.NotFound if code is
// unmapped.
func (e *Engine) RelatedETFs(ctx context.Context, code string) ([]quote.CandidateETF, error) {
	if !e.Mapping.Has(code) {
		return nil, apperr.NotFound("stock %q has no mapped ETFs", code)
	}
	entries := e.Mapping.GetETFsFor(code)
	out := make([]quote.CandidateETF, 0, len(entries))
	for _, entry := range entries {
		if entry.Weight < e.Config.MinWeight {
			continue
		}
		out = append(out, e.enrich(ctx, entry))
	}
	return out, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
