// Package httpapi implements the control plane (§6 "HTTP surface"): the gin
// router and handlers for health, status, quotes, signals, monitor,
// backtest, watchlist, plugin/strategy inventory and config, adapted from
// the teacher's interfaces/http handler style ({error:{kind,message}}
// response bodies, one handler struct per resource group).
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/etfarb/internal/apperr"
)

// writeError renders err as the §7 "{error:{kind,message,details?}}" body,
// choosing the HTTP status from its apperr.Kind.
func writeError(c *gin.Context, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"kind": "internal", "message": err.Error()}})
		return
	}

	status := http.StatusInternalServerError
	switch ae.Kind {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindDependency:
		status = http.StatusServiceUnavailable
	case apperr.KindInternal:
		status = http.StatusInternalServerError
	}

	body := gin.H{"kind": string(ae.Kind), "message": ae.Message}
	if ae.Details != nil {
		body["details"] = ae.Details
	}
	c.JSON(status, gin.H{"error": body})
}
