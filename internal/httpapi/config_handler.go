package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// getConfig implements GET /api/config (§6 "Sanitized config ... secrets
// redacted").
func (h *handlers) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.deps.Config.Sanitized())
}
