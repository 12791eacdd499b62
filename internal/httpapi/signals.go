package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/etfarb/internal/apperr"
	"github.com/wyfcoding/etfarb/internal/signal"
)

// listSignals implements GET /api/signals (§6 query params limit, today_only,
// stock_code, start, end).
func (h *handlers) listSignals(c *gin.Context) {
	f := signal.Filter{StockCode: c.Query("stock_code")}

	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(c, apperr.Validation("invalid limit %q", raw))
			return
		}
		f.Limit = n
	}

	if c.Query("today_only") == "true" {
		now := time.Now()
		y, m, d := now.Date()
		start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
		end := start.Add(24 * time.Hour)
		f.Start = &start
		f.End = &end
	}

	if raw := c.Query("start"); raw != "" {
		t, err := parseSignalTime(raw)
		if err != nil {
			writeError(c, apperr.Validation("invalid start %q: %v", raw, err))
			return
		}
		f.Start = &t
	}
	if raw := c.Query("end"); raw != "" {
		t, err := parseSignalTime(raw)
		if err != nil {
			writeError(c, apperr.Validation("invalid end %q: %v", raw, err))
			return
		}
		f.End = &t
	}
	if f.Start != nil && f.End != nil && f.End.Before(*f.Start) {
		writeError(c, apperr.Validation("end must not precede start"))
		return
	}

	out, err := h.deps.Signals.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// parseSignalTime accepts ISO-8601 YYYY-MM-DD, compact YYYYMMDD, or a full
// local timestamp, per §6 "dates in ISO-8601 ... or compact".
func parseSignalTime(raw string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02", "20060102"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized date/time format")
}
