package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/etfarb/internal/engineconfig"
)

// plugins implements GET /api/plugins (§6 "{evaluators, senders, sources}").
// evaluators is the union of every registered strategy-pipeline plugin
// (event detectors, fund selectors, signal filters) — the things that
// evaluate a quote into a signal. senders is the notification dispatcher's
// registered sender names. sources names the quote.Provider implementations
// this build ships; real market-data adapters are injected by the caller
// (spec §1 "Out of scope"), so this is a fixed, small list rather than a
// registry.
func (h *handlers) plugins(c *gin.Context) {
	evaluators := make([]gin.H, 0)
	for _, m := range h.deps.Registries.Detectors.List() {
		evaluators = append(evaluators, gin.H{"kind": "event_detector", "name": m.Name, "metadata": m.Metadata})
	}
	for _, m := range h.deps.Registries.Selectors.List() {
		evaluators = append(evaluators, gin.H{"kind": "fund_selector", "name": m.Name, "metadata": m.Metadata})
	}
	for _, m := range h.deps.Registries.Filters.List() {
		evaluators = append(evaluators, gin.H{"kind": "signal_filter", "name": m.Name, "metadata": m.Metadata})
	}

	senders := []string{}
	if h.deps.Dispatcher != nil {
		senders = h.deps.Dispatcher.SenderNames()
	}

	c.JSON(http.StatusOK, gin.H{
		"evaluators": evaluators,
		"senders":    senders,
		"sources":    []string{"memory"},
	})
}

// strategies implements GET /api/strategies (§6
// "{event_detectors, fund_selectors, signal_filters}").
func (h *handlers) strategies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"event_detectors": h.deps.Registries.Detectors.List(),
		"fund_selectors":  h.deps.Registries.Selectors.List(),
		"signal_filters":  h.deps.Registries.Filters.List(),
	})
}

// validateStrategies implements GET /api/strategies/validate, resolving the
// query-string-encoded engine config against the registries without
// building it.
func (h *handlers) validateStrategies(c *gin.Context) {
	cfg := engineconfig.EngineConfig{
		EventDetector:   c.Query("event_detector"),
		FundSelector:    c.Query("fund_selector"),
		SignalFilters:   c.QueryArray("signal_filters"),
		MinWeight:       h.deps.Config.Strategy.MinWeight,
		MinTimeToClose:  h.deps.Config.Strategy.MinTimeToClose,
		ScanConcurrency: h.deps.Config.Strategy.ScanConcurrency,
	}
	if cfg.EventDetector == "" {
		cfg.EventDetector = h.deps.Config.Strategy.EventDetector
	}
	if cfg.FundSelector == "" {
		cfg.FundSelector = h.deps.Config.Strategy.FundSelector
	}
	if len(cfg.SignalFilters) == 0 {
		cfg.SignalFilters = h.deps.Config.Strategy.SignalFilters
	}

	ok, errs := engineconfig.Validate(cfg, h.deps.Registries)
	if errs == nil {
		errs = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"ok": ok, "errors": errs})
}
