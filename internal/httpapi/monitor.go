package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/etfarb/internal/apperr"
)

// monitorScan implements POST /api/monitor/scan: a one-shot scan outside
// the loop.
func (h *handlers) monitorScan(c *gin.Context) {
	result, err := h.deps.Coordinator.ScanOnce(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"signals_emitted": result.SignalsEmitted,
		"elapsed_ms":      result.ElapsedMs,
	})
}

// monitorStart implements POST /api/monitor/start (§8 "start followed by
// start returns 409 on the second call").
func (h *handlers) monitorStart(c *gin.Context) {
	alreadyRunning := h.deps.Coordinator.Start(c.Request.Context())
	if alreadyRunning {
		writeError(c, apperr.Conflict("monitor already running"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "running"})
}

// monitorStop implements POST /api/monitor/stop (§8 "stop twice returns 409
// on the second call").
func (h *handlers) monitorStop(c *gin.Context) {
	wasNotRunning := h.deps.Coordinator.Stop()
	if wasNotRunning {
		writeError(c, apperr.Conflict("monitor not running"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}
