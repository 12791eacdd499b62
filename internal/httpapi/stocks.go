package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/etfarb/internal/apperr"
	"github.com/wyfcoding/etfarb/internal/quote"
)

// stocks implements GET /api/stocks: the current quote for every watched
// security.
func (h *handlers) stocks(c *gin.Context) {
	codes := h.deps.Watchlist.Codes()
	quotes, err := h.deps.Engine.Quotes.GetBatch(c.Request.Context(), codes)
	if err != nil {
		writeError(c, apperr.Dependency("fetch watchlist quotes: %v", err))
		return
	}
	out := make([]quote.Quote, 0, len(codes))
	for _, code := range codes {
		if q, ok := quotes[code]; ok {
			out = append(out, q)
		}
	}
	c.JSON(http.StatusOK, out)
}

// relatedETFs implements GET /api/stocks/{code}/related-etfs.
func (h *handlers) relatedETFs(c *gin.Context) {
	code := c.Param("code")
	etfs, err := h.deps.Engine.RelatedETFs(c.Request.Context(), code)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, etfs)
}

// limitUp implements GET /api/limit-up: today's limit-up quotes among the
// watchlist, refreshed at cache.limit_up_ttl_seconds (§6 "(cached)").
func (h *handlers) limitUp(c *gin.Context) {
	ctx := c.Request.Context()
	fetch := func() ([]quote.Quote, error) {
		codes := h.deps.Watchlist.Codes()
		quotes, err := h.deps.Engine.Quotes.GetBatch(ctx, codes)
		if err != nil {
			return nil, err
		}
		out := make([]quote.Quote, 0)
		for _, code := range codes {
			if q, ok := quotes[code]; ok && q.IsLimitUp {
				out = append(out, q)
			}
		}
		return out, nil
	}

	if h.deps.LimitUpCache == nil {
		out, err := fetch()
		if err != nil {
			writeError(c, apperr.Dependency("fetch limit-up list: %v", err))
			return
		}
		c.JSON(http.StatusOK, out)
		return
	}

	out, _, err := h.deps.LimitUpCache.GetOrFill(limitUpCacheKey, fetch, defaultLimitUpTTL(h.deps.Config))
	if err != nil {
		writeError(c, apperr.Dependency("fetch limit-up list: %v", err))
		return
	}
	c.JSON(http.StatusOK, out)
}
