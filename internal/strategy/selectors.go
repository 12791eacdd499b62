package strategy

import (
	"fmt"
	"sort"

	"github.com/wyfcoding/etfarb/internal/quote"
)

// HighestWeightSelector returns the eligible ETF with maximal weight, ties
// broken by lower rank then lexicographically lower etf_code.
type HighestWeightSelector struct{}

// NewHighestWeightSelector is the registry factory for "highest_weight".
func NewHighestWeightSelector(_ map[string]any) (FundSelector, error) {
	return &HighestWeightSelector{}, nil
}

func (s *HighestWeightSelector) Select(eligible []quote.CandidateETF, _ quote.MarketEvent) (quote.CandidateETF, bool) {
	if len(eligible) == 0 {
		return quote.CandidateETF{}, false
	}
	sorted := make([]quote.CandidateETF, len(eligible))
	copy(sorted, eligible)
	sort.Slice(sorted, func(i, j int) bool {
		wi, wj := sorted[i].Weight, sorted[j].Weight
		if !wi.Equal(wj) {
			return wi.GreaterThan(wj)
		}
		if sorted[i].Rank != sorted[j].Rank {
			return sorted[i].Rank < sorted[j].Rank
		}
		return sorted[i].ETFCode < sorted[j].ETFCode
	})
	return sorted[0], true
}

func (s *HighestWeightSelector) SelectionReason(fund quote.CandidateETF) string {
	weight, _ := fund.Weight.Float64()
	return fmt.Sprintf("selected %s by highest weight %.2f%%", fund.ETFCode, weight*100)
}

// BestLiquiditySelector returns the eligible ETF with maximal daily_amount.
type BestLiquiditySelector struct{}

// NewBestLiquiditySelector is the registry factory for "best_liquidity".
func NewBestLiquiditySelector(_ map[string]any) (FundSelector, error) {
	return &BestLiquiditySelector{}, nil
}

func (s *BestLiquiditySelector) Select(eligible []quote.CandidateETF, _ quote.MarketEvent) (quote.CandidateETF, bool) {
	if len(eligible) == 0 {
		return quote.CandidateETF{}, false
	}
	best := eligible[0]
	for _, c := range eligible[1:] {
		if c.DailyAmount.GreaterThan(best.DailyAmount) {
			best = c
		}
	}
	return best, true
}

func (s *BestLiquiditySelector) SelectionReason(fund quote.CandidateETF) string {
	amount, _ := fund.DailyAmount.Float64()
	return fmt.Sprintf("selected %s by best liquidity (daily amount %.0f)", fund.ETFCode, amount)
}
