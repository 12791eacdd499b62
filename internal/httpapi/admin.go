package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/etfarb/internal/apperr"
)

type mappingRebuildRequest struct {
	ETFCodes []string `json:"etf_codes" binding:"required"`
}

// mappingRebuild implements POST /api/admin/mapping/rebuild (§4.C "Rebuild
// is triggered explicitly by an init command or an admin endpoint").
func (h *handlers) mappingRebuild(c *gin.Context) {
	var req mappingRebuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation("invalid request body: %v", err))
		return
	}

	if err := h.deps.Mapping.Rebuild(c.Request.Context(), req.ETFCodes, h.deps.Holdings, 10, 0); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"covered_etfs": len(req.ETFCodes),
		"covered_stocks": len(h.deps.Mapping.ListStocks()),
	})
}
