// Package strategy implements the three pluggable pipeline stages (§4.D):
// EventDetector → FundSelector → ordered SignalFilter chain, plus the draft
// signal scoring math that runs between selection and filtering.
package strategy

import (
	"github.com/wyfcoding/etfarb/internal/quote"
	"github.com/wyfcoding/etfarb/internal/signal"
)

// EventDetector inspects a quote and reports a MarketEvent, if any.
type EventDetector interface {
	// Detect returns (event, true) if q triggers an event, else (zero, false).
	Detect(q quote.Quote) (quote.MarketEvent, bool)
	// IsValid rejects events whose fields are implausible for their board
	// (e.g. change_pct below the minimum for the inferred limit).
	IsValid(e quote.MarketEvent) bool
}

// FundSelector picks one ETF from an eligible set for a detected event.
// It must return (zero, false) on empty input rather than erroring.
type FundSelector interface {
	Select(eligible []quote.CandidateETF, e quote.MarketEvent) (quote.CandidateETF, bool)
	// SelectionReason explains why fund was chosen, folded into the
	// signal's reason field (§4.D "reason").
	SelectionReason(fund quote.CandidateETF) string
}

// DraftSignal is the pre-filter signal under construction, carrying the
// scoring breakdown and a running reason trail.
type DraftSignal struct {
	StockCode       string
	StockName       string
	StockPrice      float64
	ETFCode         string
	ETFName         string
	Weight          float64
	EventType       string
	ConfidenceScore float64
	ConfidenceLevel signal.ConfidenceLevel
	RiskLevel       signal.RiskLevel
	Breakdown       signal.Breakdown
	Reason          string
	SecondsToClose  int
	IsMarketOpen    bool
}

// SignalFilter gates a draft signal. Filters run in configured order; the
// first to return pass=false short-circuits the chain.
type SignalFilter interface {
	Filter(e quote.MarketEvent, fund quote.CandidateETF, draft DraftSignal) (pass bool, reason string)
	// IsRequired filters may not be globally bypassed; non-required ones may.
	IsRequired() bool
	Name() string
}
