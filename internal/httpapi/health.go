package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// health implements GET /api/health.
func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
