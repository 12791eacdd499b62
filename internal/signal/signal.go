// Package signal defines the TradingSignal entity (§3) and its append-only
// repository (§4.F): gorm-backed persistence with monotonic ids, newest-first
// listing, and point-in-time snapshot semantics for concurrent writers.
package signal

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConfidenceLevel classifies a draft signal's confidence_score.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// RiskLevel classifies a draft signal's risk posture.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
)

// Breakdown holds the named per-factor sub-scores behind confidence_score.
type Breakdown struct {
	SOrder     float64 `json:"s_order"`
	SWeight    float64 `json:"s_weight"`
	SLiquidity float64 `json:"s_liquidity"`
	STime      float64 `json:"s_time"`
}

// TradingSignal is the immutable-once-persisted output of a successful
// per-security subroutine run (§4.E step 8).
type TradingSignal struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Timestamp       time.Time       `gorm:"index" json:"timestamp"`
	StockCode       string          `gorm:"index;size:6" json:"stock_code"`
	StockName       string          `json:"stock_name"`
	StockPrice      decimal.Decimal `gorm:"type:decimal(18,4)" json:"stock_price"`
	ETFCode         string          `gorm:"index;size:10" json:"etf_code"`
	ETFName         string          `json:"etf_name"`
	Weight          decimal.Decimal `gorm:"type:decimal(9,6)" json:"weight"`
	EventType       string          `json:"event_type"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`
	ConfidenceScore float64         `json:"confidence_score"`
	RiskLevel       RiskLevel       `json:"risk_level"`
	Reason          string          `json:"reason"`
	Breakdown       Breakdown       `gorm:"embedded;embeddedPrefix:breakdown_" json:"breakdown"`
	PayloadJSON     string          `gorm:"type:text" json:"-"`
}

// TableName pins the persisted table name to the §6 "Persisted layout".
func (TradingSignal) TableName() string {
	return "signals"
}

// Filter is the query shape accepted by Repository.List and Repository.Count.
type Filter struct {
	Start     *time.Time
	End       *time.Time
	StockCode string
	ETFCode   string
	EventType string
	Limit     int
	Offset    int
}
