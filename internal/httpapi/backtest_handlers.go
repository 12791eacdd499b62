package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/etfarb/internal/apperr"
	backtestapp "github.com/wyfcoding/etfarb/internal/backtest/application"
	"github.com/wyfcoding/etfarb/internal/backtest/domain"
	"github.com/wyfcoding/etfarb/internal/engineconfig"
)

// backtestStartRequest is the POST /api/backtest/start body, mirroring
// domain.BacktestConfig with JSON-friendly date strings.
type backtestStartRequest struct {
	StartDate     string                `json:"start_date" binding:"required"`
	EndDate       string                `json:"end_date" binding:"required"`
	Granularity   domain.Granularity    `json:"granularity"`
	EngineConfig  map[string]any        `json:"engine_config"`
	Securities    []string              `json:"securities"`
	Interpolation domain.Interpolation  `json:"interpolation"`
	ETFUniverse   []string              `json:"etf_universe" binding:"required"`
}

// backtestStart implements POST /api/backtest/start.
func (h *handlers) backtestStart(c *gin.Context) {
	var req backtestStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation("malformed request body: %v", err))
		return
	}

	start, err := parseSignalTime(req.StartDate)
	if err != nil {
		writeError(c, apperr.Validation("invalid start_date %q: %v", req.StartDate, err))
		return
	}
	end, err := parseSignalTime(req.EndDate)
	if err != nil {
		writeError(c, apperr.Validation("invalid end_date %q: %v", req.EndDate, err))
		return
	}

	// An omitted engine_config runs the balanced template.
	engCfg := engineconfig.Balanced()
	if req.EngineConfig != nil {
		engCfg, err = decodeEngineConfig(req.EngineConfig)
		if err != nil {
			writeError(c, apperr.Validation("invalid engine_config: %v", err))
			return
		}
	}

	granularity := req.Granularity
	if granularity == "" {
		granularity = domain.GranularityDaily
	}
	interpolation := req.Interpolation
	if interpolation == "" {
		interpolation = domain.InterpolationLinear
	}

	securities := req.Securities
	if len(securities) == 0 {
		securities = h.deps.Watchlist.Codes()
	}

	cfg := domain.BacktestConfig{
		StartDate:     start,
		EndDate:       end,
		Granularity:   granularity,
		EngineConfig:  engCfg,
		Securities:    securities,
		Interpolation: interpolation,
		ETFUniverse:   req.ETFUniverse,
	}

	jobID, err := h.deps.Backtest.Start(c.Request.Context(), cfg)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
}

// backtestStatus implements GET /api/backtest/{id}.
func (h *handlers) backtestStatus(c *gin.Context) {
	job, err := h.deps.Backtest.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// backtestResult implements GET /api/backtest/{id}/result.
func (h *handlers) backtestResult(c *gin.Context) {
	result, err := h.deps.Backtest.Result(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// backtestSignals implements GET /api/backtest/{id}/signals: CSV with a
// UTF-8 BOM by default, or JSON if ?format=json is given.
func (h *handlers) backtestSignals(c *gin.Context) {
	signals, err := h.deps.Backtest.Signals(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, signals)
		return
	}
	c.Data(http.StatusOK, "text/csv; charset=utf-8", backtestapp.SignalsToCSV(signals))
}

// backtestJobs implements GET /api/backtest/jobs.
func (h *handlers) backtestJobs(c *gin.Context) {
	limit, offset := 0, 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(c, apperr.Validation("invalid limit %q", raw))
			return
		}
		limit = n
	}
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(c, apperr.Validation("invalid offset %q", raw))
			return
		}
		offset = n
	}
	status := domain.JobStatus(c.Query("status"))

	jobs, err := h.deps.Backtest.List(c.Request.Context(), limit, offset, status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobs)
}

// backtestCancel implements DELETE /api/backtest/{id}.
func (h *handlers) backtestCancel(c *gin.Context) {
	if err := h.deps.Backtest.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
