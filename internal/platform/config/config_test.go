package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/etfarb/internal/platform/config"
)

func writeTOML(t *testing.T, body string) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadWithDefaultsFillsUnsetFields(t *testing.T) {
	path := writeTOML(t, `service_name = "etfarb-test"`)

	cfg, err := config.LoadWithDefaults(path)
	require.NoError(t, err)
	assert.Equal(t, "etfarb-test", cfg.ServiceName)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "limit_up", cfg.Strategy.EventDetector)
	assert.Equal(t, []string{"time", "liquidity", "confidence", "risk"}, cfg.Strategy.SignalFilters)
}

func TestLoadWithDefaultsToleratesMissingFile(t *testing.T) {
	cfg, err := config.LoadWithDefaults(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, "etfarb", cfg.ServiceName)
	assert.Equal(t, 8080, cfg.HTTP.Port)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestValidateRejectsOutOfRangePort(t *testing.T) {
	cfg := &config.Config{}
	cfg.HTTP.Port = 99999
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnbalancedSignalWeights(t *testing.T) {
	cfg := &config.Config{}
	cfg.HTTP.Port = 8080
	cfg.SignalEvaluation.WeightOrder = 0.5
	cfg.SignalEvaluation.WeightWeight = 0.5
	cfg.SignalEvaluation.WeightLiquidity = 0.5
	cfg.SignalEvaluation.WeightTime = 0.5
	assert.Error(t, cfg.Validate())
}

func TestValidateDefaultsServiceNameAndEnvironment(t *testing.T) {
	cfg := &config.Config{}
	cfg.HTTP.Port = 8080
	cfg.SignalEvaluation.WeightOrder = 0.3
	cfg.SignalEvaluation.WeightWeight = 0.3
	cfg.SignalEvaluation.WeightLiquidity = 0.2
	cfg.SignalEvaluation.WeightTime = 0.2

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "etfarb", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.Environment)
}

func TestSanitizedRedactsPasswordAndDSN(t *testing.T) {
	cfg := &config.Config{}
	cfg.Redis.Password = "super-secret"
	cfg.Database.DSN = "user:pw@tcp(localhost:3306)/etfarb"

	clone := cfg.Sanitized()
	assert.Equal(t, "***", clone.Redis.Password)
	assert.Equal(t, "***@tcp(localhost:3306)/etfarb", clone.Database.DSN)

	assert.Equal(t, "super-secret", cfg.Redis.Password, "Sanitized must not mutate the original")
}

func TestSanitizedLeavesEmptyPasswordAndBareDSN(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.DSN = "data/engine.db"

	clone := cfg.Sanitized()
	assert.Equal(t, "", clone.Redis.Password)
	assert.Equal(t, "data/engine.db", clone.Database.DSN)
}
