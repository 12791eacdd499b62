package httpapi

import (
	"encoding/json"

	"github.com/wyfcoding/etfarb/internal/engineconfig"
)

// decodeEngineConfig round-trips a generic JSON object into a typed
// engineconfig.EngineConfig, since the HTTP body carries it as free-form
// JSON but the backtest driver and /api/strategies/validate need the typed
// value.
func decodeEngineConfig(raw map[string]any) (engineconfig.EngineConfig, error) {
	var cfg engineconfig.EngineConfig
	data, err := json.Marshal(raw)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
