package strategy

import (
	"fmt"

	"github.com/wyfcoding/etfarb/internal/quote"
	"github.com/wyfcoding/etfarb/internal/signal"
)

// TimeFilter rejects a draft when too little time remains before the
// session closes, but only while the market is actually open — a backtest
// bar outside trading hours should not be rejected on this basis.
type TimeFilter struct {
	MinTimeToClose int
}

func NewTimeFilter(cfg map[string]any) (SignalFilter, error) {
	f := &TimeFilter{MinTimeToClose: 1800}
	if v, ok := cfg["min_time_to_close"]; ok {
		f.MinTimeToClose = toInt(v, f.MinTimeToClose)
	}
	return f, nil
}

func (f *TimeFilter) Name() string     { return "time" }
func (f *TimeFilter) IsRequired() bool { return false }

func (f *TimeFilter) Filter(_ quote.MarketEvent, _ quote.CandidateETF, draft DraftSignal) (bool, string) {
	if draft.IsMarketOpen && draft.SecondsToClose < f.MinTimeToClose {
		return false, fmt.Sprintf("time to close %ds < %ds", draft.SecondsToClose, f.MinTimeToClose)
	}
	return true, "time to close acceptable"
}

// LiquidityFilter rejects a draft when the selected ETF trades too little.
type LiquidityFilter struct {
	MinDailyAmount float64
}

func NewLiquidityFilter(cfg map[string]any) (SignalFilter, error) {
	f := &LiquidityFilter{MinDailyAmount: 5e7}
	if v, ok := cfg["min_daily_amount"]; ok {
		f.MinDailyAmount = toFloat(v, f.MinDailyAmount)
	}
	return f, nil
}

func (f *LiquidityFilter) Name() string     { return "liquidity" }
func (f *LiquidityFilter) IsRequired() bool { return false }

func (f *LiquidityFilter) Filter(_ quote.MarketEvent, fund quote.CandidateETF, _ DraftSignal) (bool, string) {
	amount, _ := fund.DailyAmount.Float64()
	if amount < f.MinDailyAmount {
		return false, fmt.Sprintf("daily amount %.0f < %.0f", amount, f.MinDailyAmount)
	}
	return true, "liquidity acceptable"
}

// ConfidenceFilter rejects drafts below a minimum confidence_score.
type ConfidenceFilter struct {
	MinConfidence float64
}

func NewConfidenceFilter(cfg map[string]any) (SignalFilter, error) {
	f := &ConfidenceFilter{MinConfidence: 0}
	if v, ok := cfg["min_confidence"]; ok {
		f.MinConfidence = toFloat(v, f.MinConfidence)
	}
	return f, nil
}

func (f *ConfidenceFilter) Name() string     { return "confidence" }
func (f *ConfidenceFilter) IsRequired() bool { return false }

func (f *ConfidenceFilter) Filter(_ quote.MarketEvent, _ quote.CandidateETF, draft DraftSignal) (bool, string) {
	if draft.ConfidenceScore < f.MinConfidence {
		return false, fmt.Sprintf("confidence score %.3f < %.3f", draft.ConfidenceScore, f.MinConfidence)
	}
	return true, "confidence acceptable"
}

// RiskFilter rejects drafts classified as high risk. It is required: global
// config cannot bypass it (§4.D "required filters may not [be bypassed]").
type RiskFilter struct{}

func NewRiskFilter(_ map[string]any) (SignalFilter, error) {
	return &RiskFilter{}, nil
}

func (f *RiskFilter) Name() string     { return "risk" }
func (f *RiskFilter) IsRequired() bool { return true }

func (f *RiskFilter) Filter(_ quote.MarketEvent, _ quote.CandidateETF, draft DraftSignal) (bool, string) {
	if draft.RiskLevel == signal.RiskHigh {
		return false, "risk level high"
	}
	return true, "risk acceptable"
}

func toFloat(v any, fallback float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return fallback
	}
}

func toInt(v any, fallback int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return fallback
	}
}
