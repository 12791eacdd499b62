package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// status implements GET /api/status (§6), folding the coordinator's monitor
// state together with the mapping and watchlist sizes.
func (h *handlers) status(c *gin.Context) {
	st := h.deps.Coordinator.Status()
	body := gin.H{
		"monitor_running":  st.MonitorRunning,
		"is_trading_time":  st.IsTradingTime,
		"today_signals":    st.TodaySignals,
		"limitup_count":    st.LimitUpCount,
		"last_scan_time":   st.LastScanTime,
		"watchlist_count":  h.deps.Watchlist.Count(),
		"covered_etf_count": h.deps.Mapping.CoveredETFCount(),
	}
	c.JSON(http.StatusOK, body)
}
