// Package quote defines the transient, scan-scoped value types (Quote,
// Holding, MarketEvent, CandidateETF) and the provider-boundary interfaces
// that the arbitrage engine depends on but this repository does not
// implement (spec §1 "Out of scope": raw market-data provider adapters).
package quote

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is an immutable market-data snapshot for one security.
type Quote struct {
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	ChangePct   decimal.Decimal `json:"change_pct"`
	Volume      int64           `json:"volume"`
	Amount      decimal.Decimal `json:"amount"`
	Timestamp   time.Time       `json:"timestamp"`
	IsLimitUp   bool            `json:"is_limit_up"`
	IsLimitDown bool            `json:"is_limit_down"`

	// PrevClose, SealAmount and OpenCount are needed by the LimitUp
	// detector and the draft-signal scorer (§4.D) but are not part of the
	// minimal value described in §3; providers populate them when available.
	PrevClose    decimal.Decimal `json:"prev_close,omitempty"`
	SealAmount   decimal.Decimal `json:"seal_amount,omitempty"`
	OpenCount    int             `json:"open_count,omitempty"`
	IsFirstLimit bool            `json:"is_first_limit,omitempty"`
	LimitTime    time.Time       `json:"limit_time,omitempty"`
}

// Holding is one ETF's position in a stock as of a disclosure snapshot.
type Holding struct {
	StockCode string          `json:"stock_code"`
	ETFCode   string          `json:"etf_code"`
	ETFName   string          `json:"etf_name"`
	Weight    decimal.Decimal `json:"weight"`
	Rank      int             `json:"rank"`
	AsOf      time.Time       `json:"as_of"`
}

// CandidateETF is an ETF eligible to carry a trading signal for a stock,
// optionally enriched with its own latest quote for liquidity scoring.
type CandidateETF struct {
	ETFCode     string          `json:"etf_code"`
	ETFName     string          `json:"etf_name"`
	Weight      decimal.Decimal `json:"weight"`
	Rank        int             `json:"rank"`
	DailyAmount decimal.Decimal `json:"daily_amount"`
	Quote       *Quote          `json:"quote,omitempty"`

	// Top10Ratio is the ETF's total top-10 holdings concentration (the sum
	// of its own top-10 weights, not just this stock's), used by the
	// RiskFilter's concentration check (§4.D risk_level). Populated by the
	// engine when it enriches eligible ETFs from the mapping store.
	Top10Ratio decimal.Decimal `json:"top10_ratio"`
}

// EventType names a MarketEvent variant.
type EventType string

const (
	EventLimitUp   EventType = "limit_up"
	EventBreakout  EventType = "breakout"
	EventMomentum  EventType = "momentum"
)

// MarketEvent is the sum type of detectable events. LimitUp is the only
// variant with real detection logic; Breakout and Momentum are
// framework-present per spec §3 ("room for ... logic TBD") and currently
// have no registered detector.
type MarketEvent struct {
	EventType EventType `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`

	// LimitUp fields, populated when EventType == EventLimitUp.
	StockCode    string          `json:"stock_code"`
	StockName    string          `json:"stock_name"`
	Price        decimal.Decimal `json:"price"`
	ChangePct    decimal.Decimal `json:"change_pct"`
	LimitTime    time.Time       `json:"limit_time"`
	SealAmount   decimal.Decimal `json:"seal_amount"`
	OpenCount    int             `json:"open_count"`
	IsFirstLimit bool            `json:"is_first_limit"`
}

// Provider is the quote-fetch boundary (spec §1 "Out of scope": the raw
// market-data provider adapters). An implementation is injected by the
// caller; this repository supplies only an in-memory fake for tests and
// backtests (see memory.go) and no live (network) implementation.
type Provider interface {
	// Get fetches the latest quote for one security.
	Get(ctx context.Context, code string) (Quote, error)
	// GetBatch fetches quotes for many securities in one round trip.
	GetBatch(ctx context.Context, codes []string) (map[string]Quote, error)
}

// HoldingsProvider is the ETF top-holdings fetch boundary used to build
// the stock↔ETF mapping (§4.C).
type HoldingsProvider interface {
	// TopHoldings returns the ETF's top-N holdings as of its most recent
	// disclosure, ordered by rank ascending.
	TopHoldings(ctx context.Context, etfCode string, topN int) ([]Holding, error)
	// ETFName resolves a code to its display name, used while building
	// CandidateETF entries.
	ETFName(ctx context.Context, etfCode string) (string, error)
}
