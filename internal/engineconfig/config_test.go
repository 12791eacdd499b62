package engineconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/etfarb/internal/strategy"
)

func newRegs(t *testing.T) *strategy.Registries {
	regs, err := strategy.NewRegistries()
	require.NoError(t, err)
	return regs
}

func TestTemplatesAreValid(t *testing.T) {
	regs := newRegs(t)
	for _, name := range []string{"conservative", "balanced", "aggressive"} {
		cfg, ok := Template(name)
		require.True(t, ok, name)
		ok, errs := Validate(cfg, regs)
		assert.True(t, ok, "%s: %v", name, errs)
	}
}

func TestTemplateUnknownName(t *testing.T) {
	_, ok := Template("ultra-aggressive")
	assert.False(t, ok)
}

func TestConservativeStricterThanAggressive(t *testing.T) {
	assert.Greater(t, Conservative().MinWeight, Balanced().MinWeight)
	assert.Less(t, Aggressive().MinWeight, Balanced().MinWeight)
}

func TestValidateRejectsUnknownPlugins(t *testing.T) {
	regs := newRegs(t)
	cfg := Balanced()
	cfg.EventDetector = "does_not_exist"
	cfg.FundSelector = "does_not_exist"
	cfg.SignalFilters = []string{"does_not_exist"}

	ok, errs := Validate(cfg, regs)
	assert.False(t, ok)
	assert.Contains(t, errs, `unknown event_detector "does_not_exist"`)
	assert.Contains(t, errs, `unknown fund_selector "does_not_exist"`)
	assert.Contains(t, errs, `unknown signal filter "does_not_exist"`)
}

func TestValidateRejectsEmptyFilters(t *testing.T) {
	regs := newRegs(t)
	cfg := Balanced()
	cfg.SignalFilters = nil

	ok, errs := Validate(cfg, regs)
	assert.False(t, ok)
	assert.Contains(t, errs, "signal_filters must not be empty: the scan would accept every drafted signal unfiltered")
}

func TestValidateRejectsDuplicateFilters(t *testing.T) {
	regs := newRegs(t)
	cfg := Balanced()
	cfg.SignalFilters = []string{"time", "time"}

	ok, errs := Validate(cfg, regs)
	assert.False(t, ok)
	assert.Contains(t, errs, `filter "time" appears twice in signal_filters`)
}

func TestValidateRejectsOutOfRangeNumerics(t *testing.T) {
	regs := newRegs(t)
	cfg := Balanced()
	cfg.MinTimeToClose = -1
	cfg.MinWeight = 1.5
	cfg.ScanConcurrency = 0

	ok, errs := Validate(cfg, regs)
	assert.False(t, ok)
	assert.Len(t, errs, 3)
}

func TestBuildRefusesInvalidConfig(t *testing.T) {
	regs := newRegs(t)
	cfg := Balanced()
	cfg.EventDetector = ""

	_, err := Build(cfg, regs)
	assert.Error(t, err)
}

func TestBuildResolvesPlugins(t *testing.T) {
	regs := newRegs(t)
	resolved, err := Build(Balanced(), regs)
	require.NoError(t, err)
	require.NotNil(t, resolved.Detector)
	require.NotNil(t, resolved.Selector)
	assert.Len(t, resolved.Filters, 4)
}
