package strategy

import (
	"github.com/wyfcoding/etfarb/internal/registry"
)

// Registries bundles the three named-plugin registries the engine resolves
// configured strategy names against (§4.A/§4.H).
type Registries struct {
	Detectors *registry.Registry[EventDetector]
	Selectors *registry.Registry[FundSelector]
	Filters   *registry.Registry[SignalFilter]
}

// NewRegistries builds the three empty registries and registers every
// built-in plugin into them.
func NewRegistries() (*Registries, error) {
	r := &Registries{
		Detectors: registry.New[EventDetector](),
		Selectors: registry.New[FundSelector](),
		Filters:   registry.New[SignalFilter](),
	}
	if err := RegisterBuiltins(r); err != nil {
		return nil, err
	}
	return r, nil
}

// RegisterBuiltins wires the canonical §4.D plugins into r. Custom plugins
// register into the same registries before the engine starts.
func RegisterBuiltins(r *Registries) error {
	if err := r.Detectors.Register("limit_up", NewLimitUpDetector, registry.Metadata{
		Priority:    100,
		Description: "detects A-share limit-up moves against the board ceiling",
		Version:     "1.0.0",
	}); err != nil {
		return err
	}

	if err := r.Selectors.Register("highest_weight", NewHighestWeightSelector, registry.Metadata{
		Priority:    100,
		Description: "selects the eligible ETF with the largest holding weight",
		Version:     "1.0.0",
	}); err != nil {
		return err
	}
	if err := r.Selectors.Register("best_liquidity", NewBestLiquiditySelector, registry.Metadata{
		Priority:    90,
		Description: "selects the eligible ETF with the largest daily traded amount",
		Version:     "1.0.0",
	}); err != nil {
		return err
	}

	if err := r.Filters.Register("time", NewTimeFilter, registry.Metadata{
		Priority:    100,
		Description: "rejects drafts too close to session close",
		Version:     "1.0.0",
	}); err != nil {
		return err
	}
	if err := r.Filters.Register("liquidity", NewLiquidityFilter, registry.Metadata{
		Priority:    90,
		Description: "rejects drafts whose fund trades too little",
		Version:     "1.0.0",
	}); err != nil {
		return err
	}
	if err := r.Filters.Register("confidence", NewConfidenceFilter, registry.Metadata{
		Priority:    80,
		Description: "rejects drafts below a minimum confidence_score",
		Version:     "1.0.0",
	}); err != nil {
		return err
	}
	if err := r.Filters.Register("risk", NewRiskFilter, registry.Metadata{
		Priority:    70,
		Description: "rejects drafts classified as high risk; always required",
		Version:     "1.0.0",
	}); err != nil {
		return err
	}

	return nil
}
