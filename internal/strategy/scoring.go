package strategy

import (
	"fmt"

	"github.com/wyfcoding/etfarb/internal/quote"
	"github.com/wyfcoding/etfarb/internal/signal"
)

// EvaluationConfig mirrors config.SignalEvaluationConfig — kept as its own
// type here so the strategy package has no dependency on the platform
// config package, only on the plain numbers it needs.
type EvaluationConfig struct {
	CutoffHigh          float64
	CutoffMedium        float64
	WeightOrder         float64
	WeightWeight        float64
	WeightLiquidity     float64
	WeightTime          float64
	RiskHighTimeSeconds int
	RiskLowTimeSeconds  int
	RiskTop10RatioHigh  float64
	RiskMorningHour     int
}

// DefaultEvaluationConfig matches the §4.D / §6 defaults.
func DefaultEvaluationConfig() EvaluationConfig {
	return EvaluationConfig{
		CutoffHigh:          0.70,
		CutoffMedium:        0.40,
		WeightOrder:         0.30,
		WeightWeight:        0.30,
		WeightLiquidity:     0.20,
		WeightTime:          0.20,
		RiskHighTimeSeconds: 600,
		RiskLowTimeSeconds:  3600,
		RiskTop10RatioHigh:  0.70,
		RiskMorningHour:     10,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DraftTradingSignal computes the §4.D draft signal: confidence_score from
// four weighted sub-scores, confidence_level from cutoffs, and risk_level
// from the seconds-to-close / concentration / open-count rules.
func DraftTradingSignal(e quote.MarketEvent, fund quote.CandidateETF, secondsToClose int, isMarketOpen bool, cfg EvaluationConfig) DraftSignal {
	weight, _ := fund.Weight.Float64()
	sealAmount, _ := e.SealAmount.Float64()
	dailyAmount, _ := fund.DailyAmount.Float64()
	top10Ratio, _ := fund.Top10Ratio.Float64()
	price, _ := e.Price.Float64()

	sWeight := clamp(weight/0.10, 0, 1)
	sOrder := clamp(sealAmount/1e9, 0, 1)
	sLiquidity := clamp(dailyAmount/5e8, 0, 1)
	sTime := clamp(float64(secondsToClose)/(2*3600), 0, 1)

	score := cfg.WeightOrder*sOrder + cfg.WeightWeight*sWeight + cfg.WeightLiquidity*sLiquidity + cfg.WeightTime*sTime

	var level signal.ConfidenceLevel
	switch {
	case score >= cfg.CutoffHigh:
		level = signal.ConfidenceHigh
	case score >= cfg.CutoffMedium:
		level = signal.ConfidenceMedium
	default:
		level = signal.ConfidenceLow
	}

	risk := riskLevel(secondsToClose, top10Ratio, e.OpenCount, e.LimitTime.Hour(), cfg)

	return DraftSignal{
		StockCode:       e.StockCode,
		StockName:       e.StockName,
		StockPrice:      price,
		ETFCode:         fund.ETFCode,
		ETFName:         fund.ETFName,
		Weight:          weight,
		EventType:       string(e.EventType),
		ConfidenceScore: score,
		ConfidenceLevel: level,
		RiskLevel:       risk,
		Breakdown: signal.Breakdown{
			SOrder:     sOrder,
			SWeight:    sWeight,
			SLiquidity: sLiquidity,
			STime:      sTime,
		},
		Reason:         fmt.Sprintf("weight %.2f%%", weight*100),
		SecondsToClose: secondsToClose,
		IsMarketOpen:   isMarketOpen,
	}
}

// riskLevel implements §4.D: high iff seconds_to_close < risk_high_time_seconds
// OR top10_ratio > risk_top10_ratio_high OR open_count > 2; low iff
// seconds_to_close > risk_low_time_seconds AND first_limit_hour < risk_morning_hour;
// else medium.
func riskLevel(secondsToClose int, top10Ratio float64, openCount int, firstLimitHour int, cfg EvaluationConfig) signal.RiskLevel {
	if secondsToClose < cfg.RiskHighTimeSeconds || top10Ratio > cfg.RiskTop10RatioHigh || openCount > 2 {
		return signal.RiskHigh
	}
	if secondsToClose > cfg.RiskLowTimeSeconds && firstLimitHour < cfg.RiskMorningHour {
		return signal.RiskLow
	}
	return signal.RiskMedium
}
