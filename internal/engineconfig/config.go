// Package engineconfig defines the typed EngineConfig value (§3, §4.H) and
// the validator that resolves its plugin names against a strategy.Registries
// before the engine is allowed to start.
package engineconfig

import (
	"fmt"

	"github.com/wyfcoding/etfarb/internal/strategy"
)

// EngineConfig is the validated-before-use configuration for one engine
// instance: which plugins to run and the scan-level numeric thresholds.
type EngineConfig struct {
	EventDetector string         `json:"event_detector"`
	FundSelector  string         `json:"fund_selector"`
	SignalFilters []string       `json:"signal_filters"`

	EventConfig   map[string]any            `json:"event_config"`
	FundConfig    map[string]any            `json:"fund_config"`
	FilterConfigs map[string]map[string]any `json:"filter_configs"`

	MinWeight       float64 `json:"min_weight"`
	MinETFVolume    float64 `json:"min_etf_volume"`
	MinOrderAmount  float64 `json:"min_order_amount"`
	ScanInterval    int     `json:"scan_interval"`
	MinTimeToClose  int     `json:"min_time_to_close"`
	ScanConcurrency int     `json:"scan_concurrency"`
}

// Balanced is the default strategy template (§4.H).
func Balanced() EngineConfig {
	return EngineConfig{
		EventDetector:   "limit_up",
		FundSelector:    "highest_weight",
		SignalFilters:   []string{"time", "liquidity", "confidence", "risk"},
		EventConfig:     map[string]any{},
		FundConfig:      map[string]any{},
		FilterConfigs:   map[string]map[string]any{},
		MinWeight:       0.05,
		MinETFVolume:    5e7,
		MinOrderAmount:  1e9,
		ScanInterval:    120,
		MinTimeToClose:  1800,
		ScanConcurrency: 8,
	}
}

// Conservative raises thresholds for lower trade frequency, higher quality.
func Conservative() EngineConfig {
	cfg := Balanced()
	cfg.MinWeight = 0.08
	cfg.MinETFVolume = 8e7
	return cfg
}

// Aggressive lowers thresholds for higher trade frequency.
func Aggressive() EngineConfig {
	cfg := Balanced()
	cfg.MinWeight = 0.03
	cfg.MinETFVolume = 3e7
	return cfg
}

// Template resolves a named strategy template to its EngineConfig, or
// (zero, false) if name is unrecognized.
func Template(name string) (EngineConfig, bool) {
	switch name {
	case "conservative":
		return Conservative(), true
	case "balanced":
		return Balanced(), true
	case "aggressive":
		return Aggressive(), true
	default:
		return EngineConfig{}, false
	}
}

// Validate resolves cfg's plugin names against regs and checks the §4.H
// structural rules. It never mutates cfg.
func Validate(cfg EngineConfig, regs *strategy.Registries) (bool, []string) {
	var errs []string

	if cfg.EventDetector == "" {
		errs = append(errs, "event_detector is required")
	} else if !regs.Detectors.Has(cfg.EventDetector) {
		errs = append(errs, fmt.Sprintf("unknown event_detector %q", cfg.EventDetector))
	}

	if cfg.FundSelector == "" {
		errs = append(errs, "fund_selector is required")
	} else if !regs.Selectors.Has(cfg.FundSelector) {
		errs = append(errs, fmt.Sprintf("unknown fund_selector %q", cfg.FundSelector))
	}

	if len(cfg.SignalFilters) == 0 {
		errs = append(errs, "signal_filters must not be empty: the scan would accept every drafted signal unfiltered")
	}

	seen := make(map[string]bool, len(cfg.SignalFilters))
	for _, name := range cfg.SignalFilters {
		if seen[name] {
			errs = append(errs, fmt.Sprintf("filter %q appears twice in signal_filters", name))
			continue
		}
		seen[name] = true
		if !regs.Filters.Has(name) {
			errs = append(errs, fmt.Sprintf("unknown signal filter %q", name))
		}
	}

	if cfg.MinTimeToClose < 0 {
		errs = append(errs, fmt.Sprintf("min_time_to_close must be >= 0, got %d", cfg.MinTimeToClose))
	}
	if cfg.MinWeight < 0 || cfg.MinWeight > 1 {
		errs = append(errs, fmt.Sprintf("min_weight must be in [0,1], got %v", cfg.MinWeight))
	}
	if cfg.ScanConcurrency <= 0 {
		errs = append(errs, fmt.Sprintf("scan_concurrency must be > 0, got %d", cfg.ScanConcurrency))
	}

	return len(errs) == 0, errs
}

// ResolvedStrategy holds the constructed, ready-to-run plugin instances for
// one validated EngineConfig.
type ResolvedStrategy struct {
	Detector strategy.EventDetector
	Selector strategy.FundSelector
	Filters  []strategy.SignalFilter
}

// Build validates cfg then constructs every named plugin via its factory.
// The engine must refuse to start if this returns an error (§4.H).
func Build(cfg EngineConfig, regs *strategy.Registries) (*ResolvedStrategy, error) {
	if ok, errs := Validate(cfg, regs); !ok {
		return nil, fmt.Errorf("engine config invalid: %v", errs)
	}

	detector, err := regs.Detectors.Build(cfg.EventDetector, cfg.EventConfig)
	if err != nil {
		return nil, fmt.Errorf("build event_detector %q: %w", cfg.EventDetector, err)
	}
	selector, err := regs.Selectors.Build(cfg.FundSelector, cfg.FundConfig)
	if err != nil {
		return nil, fmt.Errorf("build fund_selector %q: %w", cfg.FundSelector, err)
	}

	filters := make([]strategy.SignalFilter, 0, len(cfg.SignalFilters))
	for _, name := range cfg.SignalFilters {
		filterCfg := cfg.FilterConfigs[name]
		f, err := regs.Filters.Build(name, filterCfg)
		if err != nil {
			return nil, fmt.Errorf("build signal_filter %q: %w", name, err)
		}
		filters = append(filters, f)
	}

	return &ResolvedStrategy{Detector: detector, Selector: selector, Filters: filters}, nil
}
