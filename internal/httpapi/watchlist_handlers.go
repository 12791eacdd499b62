package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/etfarb/internal/apperr"
	"github.com/wyfcoding/etfarb/internal/watchlist"
)

// watchlistList implements GET /api/watchlist.
func (h *handlers) watchlistList(c *gin.Context) {
	c.JSON(http.StatusOK, h.deps.Watchlist.List(c.Request.Context()))
}

// watchlistAddRequest is the POST /api/watchlist/add body.
type watchlistAddRequest struct {
	Code  string `json:"code" binding:"required"`
	Name  string `json:"name"`
	Notes string `json:"notes"`
}

// watchlistAdd implements POST /api/watchlist/add.
func (h *handlers) watchlistAdd(c *gin.Context) {
	var req watchlistAddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation("malformed request body: %v", err))
		return
	}

	result, err := h.deps.Watchlist.Add(c.Request.Context(), req.Code, req.Name, req.Notes)
	if err != nil {
		writeError(c, err)
		return
	}
	if result == watchlist.AlreadyExists {
		c.JSON(http.StatusOK, gin.H{"status": "already_exists"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success"})
}

// watchlistRemove implements DELETE /api/watchlist/{code}.
func (h *handlers) watchlistRemove(c *gin.Context) {
	if err := h.deps.Watchlist.Remove(c.Request.Context(), c.Param("code")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
