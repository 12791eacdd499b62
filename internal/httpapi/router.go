package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"

	backtestapp "github.com/wyfcoding/etfarb/internal/backtest/application"
	"github.com/wyfcoding/etfarb/internal/cache"
	"github.com/wyfcoding/etfarb/internal/engine"
	"github.com/wyfcoding/etfarb/internal/mapping"
	"github.com/wyfcoding/etfarb/internal/notifier"
	"github.com/wyfcoding/etfarb/internal/platform/config"
	"github.com/wyfcoding/etfarb/internal/platform/metrics"
	"github.com/wyfcoding/etfarb/internal/quote"
	"github.com/wyfcoding/etfarb/internal/signal"
	"github.com/wyfcoding/etfarb/internal/strategy"
	"github.com/wyfcoding/etfarb/internal/watchlist"
)

// Dependencies wires every collaborator a handler group needs. Built once
// at startup (§9 "Global state") and threaded into the router.
type Dependencies struct {
	Engine      *engine.Engine
	Coordinator *engine.Coordinator
	Watchlist   *watchlist.Store
	Mapping     *mapping.Store
	Holdings    quote.HoldingsProvider
	Signals     signal.Repository
	Backtest    *backtestapp.Service
	Registries  *strategy.Registries
	Config      *config.Config
	Dispatcher  *notifier.Dispatcher
	Metrics     *metrics.Metrics

	// LimitUpCache holds the last computed "today's limit-up" list, keyed by
	// a single constant key, refreshed at cache.limit_up_ttl_seconds
	// (§6 "GET /api/limit-up ... (cached)").
	LimitUpCache *cache.Cache[[]quote.Quote]
}

type handlers struct {
	deps Dependencies
}

// New builds the gin engine for the control plane (§6 "HTTP surface"),
// applying middlewares before mounting every handler group so gin folds
// them into each route's handler chain at registration time, then wiring
// every endpoint.
func New(deps Dependencies, middlewares ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(middlewares...)
	h := &handlers{deps: deps}

	api := r.Group("/api")
	api.GET("/health", h.health)
	api.GET("/status", h.status)
	api.GET("/stocks", h.stocks)
	api.GET("/stocks/:code/related-etfs", h.relatedETFs)
	api.GET("/limit-up", h.limitUp)
	api.GET("/signals", h.listSignals)

	api.POST("/monitor/scan", h.monitorScan)
	api.POST("/monitor/start", h.monitorStart)
	api.POST("/monitor/stop", h.monitorStop)

	api.POST("/backtest/start", h.backtestStart)
	api.GET("/backtest/:id", h.backtestStatus)
	api.GET("/backtest/:id/result", h.backtestResult)
	api.GET("/backtest/:id/signals", h.backtestSignals)
	api.GET("/backtest/jobs", h.backtestJobs)
	api.DELETE("/backtest/:id", h.backtestCancel)

	api.GET("/watchlist", h.watchlistList)
	api.POST("/watchlist/add", h.watchlistAdd)
	api.DELETE("/watchlist/:code", h.watchlistRemove)

	api.POST("/admin/mapping/rebuild", h.mappingRebuild)

	api.GET("/plugins", h.plugins)
	api.GET("/strategies", h.strategies)
	api.GET("/strategies/validate", h.validateStrategies)
	api.GET("/config", h.getConfig)

	if deps.Metrics != nil {
		path := "/metrics"
		if deps.Config != nil && deps.Config.Metrics.Path != "" {
			path = deps.Config.Metrics.Path
		}
		r.GET(path, gin.WrapH(metrics.Handler()))
	}

	return r
}

const limitUpCacheKey = "today"

func defaultLimitUpTTL(cfg *config.Config) time.Duration {
	if cfg == nil || cfg.Cache.LimitUpTTLSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(cfg.Cache.LimitUpTTLSeconds) * time.Second
}
