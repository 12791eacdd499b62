// Package domain holds the Backtest Driver's entities (§3 BacktestJob,
// BacktestResult) and the deterministic replay engine (§4.G).
package domain

import (
	"time"

	"github.com/wyfcoding/etfarb/internal/engineconfig"
	"github.com/wyfcoding/etfarb/internal/signal"
)

// Interpolation selects how per-date ETF holdings are derived from the
// surrounding quarterly disclosure snapshots (§4.G step 3).
type Interpolation string

const (
	InterpolationLinear Interpolation = "linear"
	InterpolationStep    Interpolation = "step"
)

// Granularity selects the bar frequency a backtest replays at.
type Granularity string

const (
	GranularityDaily Granularity = "daily"
	Granularity5Min  Granularity = "5m"
)

// BacktestConfig is the §4.G "Inputs" value.
type BacktestConfig struct {
	StartDate     time.Time                  `json:"start_date"`
	EndDate       time.Time                  `json:"end_date"`
	Granularity   Granularity                `json:"granularity"`
	EngineConfig  engineconfig.EngineConfig  `json:"engine_config"`
	Securities    []string                   `json:"securities,omitempty"`
	Interpolation Interpolation              `json:"interpolation"`
	// ETFUniverse names the ETFs whose quarterly snapshots are interpolated
	// to build the per-date mapping. The distilled spec is silent on how the
	// backtest learns its ETF universe; defaulting to "every ETF the
	// watchlist's live mapping currently knows" would make backtests
	// non-deterministic across a running process, so it is an explicit,
	// required input here instead.
	ETFUniverse []string `json:"etf_universe"`
}

// JobStatus is one of the §3 BacktestJob status values.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Statistics summarizes a finished backtest's signal set.
type Statistics struct {
	TotalSignals          int            `json:"total_signals"`
	HighConfidenceCount   int            `json:"high_confidence_count"`
	MediumConfidenceCount int            `json:"medium_confidence_count"`
	LowConfidenceCount    int            `json:"low_confidence_count"`
	PerDateCounts         map[string]int `json:"per_date_counts"`
}

// BacktestResult is the §3 BacktestResult value.
type BacktestResult struct {
	Statistics Statistics             `json:"statistics"`
	Signals    []signal.TradingSignal `json:"signals"`
	ConfigEcho BacktestConfig         `json:"config_echo"`
}

// BacktestJob is the §3 BacktestJob entity, tracked for the server's
// lifetime by a JobRepository.
type BacktestJob struct {
	JobID      string           `json:"job_id"`
	Status     JobStatus        `json:"status"`
	Progress   float64          `json:"progress"`
	Message    string           `json:"message"`
	Config     BacktestConfig   `json:"config"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Result     *BacktestResult  `json:"result,omitempty"`
	Error      string           `json:"error,omitempty"`
}
