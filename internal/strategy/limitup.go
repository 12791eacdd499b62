package strategy

import (
	"github.com/wyfcoding/etfarb/internal/quote"
)

// LimitUpDetector is the canonical EventDetector for A-share equities.
type LimitUpDetector struct{}

// NewLimitUpDetector builds a LimitUpDetector. It takes no config but keeps
// the factory signature the registry expects.
func NewLimitUpDetector(_ map[string]any) (EventDetector, error) {
	return &LimitUpDetector{}, nil
}

// Detect fires a LimitUp event when the quote's price/change_pct clears the
// security's board ceiling. When the provider already computed IsLimitUp and
// PrevClose is unavailable (zero), that upstream flag is trusted as a
// fallback so providers that only expose the derived boolean still work.
func (d *LimitUpDetector) Detect(q quote.Quote) (quote.MarketEvent, bool) {
	price, _ := q.Price.Float64()
	prevClose, _ := q.PrevClose.Float64()
	changePct, _ := q.ChangePct.Float64()

	limitUp := q.IsLimitUp
	if prevClose > 0 {
		limitUp = IsLimitUp(q.Code, price, prevClose, changePct)
	}
	if !limitUp {
		return quote.MarketEvent{}, false
	}

	return quote.MarketEvent{
		EventType:    quote.EventLimitUp,
		Timestamp:    q.Timestamp,
		StockCode:    q.Code,
		StockName:    q.Name,
		Price:        q.Price,
		ChangePct:    q.ChangePct,
		LimitTime:    q.LimitTime,
		SealAmount:   q.SealAmount,
		OpenCount:    q.OpenCount,
		IsFirstLimit: q.IsFirstLimit,
	}, true
}

// IsValid rejects events whose change_pct is implausible for the stock's
// board — below the board's minimum required move to be a genuine limit-up.
func (d *LimitUpDetector) IsValid(e quote.MarketEvent) bool {
	if e.EventType != quote.EventLimitUp {
		return false
	}
	board := BoardFor(e.StockCode)
	changePct, _ := e.ChangePct.Float64()
	return changePct >= board.Limit-changeEpsilon
}
