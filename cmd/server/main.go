// Command server runs the arbitrage engine's control plane: it loads
// configuration, wires the engine/coordinator/backtest service, registers
// the built-in strategy plugins, and serves the §6 HTTP surface until
// interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	backtestapp "github.com/wyfcoding/etfarb/internal/backtest/application"
	"github.com/wyfcoding/etfarb/internal/backtest/domain"
	backtestinfra "github.com/wyfcoding/etfarb/internal/backtest/infrastructure"
	"github.com/wyfcoding/etfarb/internal/cache"
	"github.com/wyfcoding/etfarb/internal/calendar"
	"github.com/wyfcoding/etfarb/internal/engine"
	"github.com/wyfcoding/etfarb/internal/engineconfig"
	"github.com/wyfcoding/etfarb/internal/httpapi"
	"github.com/wyfcoding/etfarb/internal/mapping"
	"github.com/wyfcoding/etfarb/internal/notifier"
	"github.com/wyfcoding/etfarb/internal/platform/config"
	"github.com/wyfcoding/etfarb/internal/platform/db"
	"github.com/wyfcoding/etfarb/internal/platform/logger"
	"github.com/wyfcoding/etfarb/internal/platform/metrics"
	"github.com/wyfcoding/etfarb/internal/platform/middleware"
	"github.com/wyfcoding/etfarb/internal/platform/mq"
	"github.com/wyfcoding/etfarb/internal/platform/rediscache"
	"github.com/wyfcoding/etfarb/internal/quote"
	"github.com/wyfcoding/etfarb/internal/signal"
	"github.com/wyfcoding/etfarb/internal/strategy"
	"github.com/wyfcoding/etfarb/internal/watchlist"
)

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to the TOML configuration file")
	flag.Parse()

	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{
		Level: cfg.Logger.Level, Format: cfg.Logger.Format, Output: cfg.Logger.Output,
		FilePath: cfg.Logger.FilePath, MaxSize: cfg.Logger.MaxSize, MaxBackups: cfg.Logger.MaxBackups,
		MaxAge: cfg.Logger.MaxAge, Compress: cfg.Logger.Compress, WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	logger.Info(ctx, "starting etfarb", "service", cfg.ServiceName, "version", cfg.Version, "environment", cfg.Environment)

	database, err := db.Init(db.Config{
		Driver: cfg.Database.Driver, DSN: cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns, MaxIdleConns: cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime, LogEnabled: cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Error(ctx, "database init failed", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	signalRepo := signal.NewGormRepository(database.DB)
	if err := signalRepo.Migrate(); err != nil {
		logger.Error(ctx, "signal migration failed", "error", err)
		os.Exit(1)
	}

	jobRepo := backtestinfra.NewGormRepository(database)
	if err := jobRepo.Migrate(); err != nil {
		logger.Error(ctx, "backtest job migration failed", "error", err)
		os.Exit(1)
	}

	// Global state (§9 "Global state"): the plugin registries are built
	// and populated before the HTTP server binds, and never mutated after
	// except through the well-defined start/stop/watchlist endpoints.
	registries, err := strategy.NewRegistries()
	if err != nil {
		logger.Error(ctx, "strategy registry init failed", "error", err)
		os.Exit(1)
	}

	sessions, err := calendar.ParseSessions(
		cfg.TradingHours.MorningStart, cfg.TradingHours.MorningEnd,
		cfg.TradingHours.AfternoonStart, cfg.TradingHours.AfternoonEnd,
	)
	if err != nil {
		logger.Error(ctx, "invalid trading_hours config", "error", err)
		os.Exit(1)
	}

	evalCfg := strategy.EvaluationConfig{
		CutoffHigh:          cfg.SignalEvaluation.CutoffHigh,
		CutoffMedium:        cfg.SignalEvaluation.CutoffMedium,
		WeightOrder:         cfg.SignalEvaluation.WeightOrder,
		WeightWeight:        cfg.SignalEvaluation.WeightWeight,
		WeightLiquidity:     cfg.SignalEvaluation.WeightLiquidity,
		WeightTime:          cfg.SignalEvaluation.WeightTime,
		RiskHighTimeSeconds: cfg.SignalEvaluation.RiskHighTimeSeconds,
		RiskLowTimeSeconds:  cfg.SignalEvaluation.RiskLowTimeSeconds,
		RiskTop10RatioHigh:  cfg.SignalEvaluation.RiskTop10RatioHigh,
		RiskMorningHour:     cfg.SignalEvaluation.RiskMorningHour,
	}

	engCfg := engineconfig.EngineConfig{
		EventDetector:   cfg.Strategy.EventDetector,
		FundSelector:    cfg.Strategy.FundSelector,
		SignalFilters:   cfg.Strategy.SignalFilters,
		EventConfig:     map[string]any{},
		FundConfig:      map[string]any{},
		FilterConfigs:   map[string]map[string]any{},
		MinWeight:       cfg.Strategy.MinWeight,
		MinETFVolume:    cfg.Strategy.MinETFVolume,
		MinOrderAmount:  cfg.Strategy.MinOrderAmount,
		ScanInterval:    cfg.Strategy.ScanInterval,
		MinTimeToClose:  cfg.Strategy.MinTimeToClose,
		ScanConcurrency: cfg.Strategy.ScanConcurrency,
	}
	resolved, err := engineconfig.Build(engCfg, registries)
	if err != nil {
		logger.Error(ctx, "engine config refused to build", "error", err)
		os.Exit(1)
	}

	mappingStore := mapping.New()
	if err := mappingStore.Load(cfg.Mapping.Path); err != nil {
		logger.Warn(ctx, "mapping load failed, starting with an empty mapping", "path", cfg.Mapping.Path, "error", err)
	}

	watchlistStore := watchlist.New()
	if err := watchlistStore.Load(cfg.Watchlist.Path); err != nil {
		logger.Warn(ctx, "watchlist load failed, starting with an empty watchlist", "path", cfg.Watchlist.Path, "error", err)
	}

	quoteProvider := quote.NewMemoryProvider()

	// cache.backend selects between the in-process TTL cache (default) and a
	// shared redis-backed one (§6 "cache.backend"); both satisfy
	// engine.QuoteCache so the engine is oblivious to which backend is live.
	var quoteCache engine.QuoteCache
	if cfg.Cache.Backend == "redis" && cfg.Redis.Enabled {
		rc := rediscache.New(rediscache.Config{
			Host: cfg.Redis.Host, Port: cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB,
			MaxPoolSize:  cfg.Redis.MaxPoolSize,
			ConnTimeout:  time.Duration(cfg.Redis.ConnTimeout) * time.Second,
			ReadTimeout:  time.Duration(cfg.Redis.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.Redis.WriteTimeout) * time.Second,
		})
		defer rc.Close()
		quoteCache = rc
	} else {
		quoteCache = cache.New[quote.Quote](cfg.Cache.MaxEntries)
	}

	e := engine.New(
		quoteProvider, mappingStore, quoteCache, resolved, signalRepo, sessions, calendar.SystemClock{},
		engCfg, evalCfg, time.Duration(cfg.Cache.QuoteTTLSeconds)*time.Second,
	)

	dispatcher := notifier.NewDispatcher(cfg.Kafka.Topic)
	dispatcher.Register("mock", notifier.NewMockSender())
	if cfg.Kafka.Enabled {
		producer, err := mq.NewProducer(mq.Config{Brokers: cfg.Kafka.Brokers})
		if err != nil {
			logger.Error(ctx, "kafka producer init failed", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		dispatcher.Register("kafka", notifier.NewKafkaSender(producer, cfg.Kafka.Topic))
	}
	if cfg.Webhook.Enabled {
		dispatcher.Register("webhook", notifier.NewWebhookSender(cfg.Webhook.URL))
	}
	e.Notify = dispatcher.Notify

	coordinator := engine.NewCoordinator(
		e, watchlistStore.Codes, time.Duration(cfg.Strategy.ScanInterval)*time.Second,
		time.Duration(cfg.HTTP.ShutdownGrace)*time.Second,
	)

	historical := backtestinfra.NewHistoricalSeries()
	driver := domain.NewDriver(historical, historical, registries, evalCfg, sessions)
	backtestService := backtestapp.NewService(driver, jobRepo, logger.Get())

	var m *metrics.Metrics
	handlerChain := []gin.HandlerFunc{middleware.Recovery(), middleware.Logging(), middleware.CORS()}
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.ServiceName)
		if err := m.Register(); err != nil {
			logger.Error(ctx, "metrics registration failed", "error", err)
			os.Exit(1)
		}
		e.Metrics = m
		backtestService.Metrics = m
		handlerChain = append(handlerChain, middleware.Metrics(m))
	}

	limitUpCache := cache.New[[]quote.Quote](1)

	router := httpapi.New(httpapi.Dependencies{
		Engine: e, Coordinator: coordinator, Watchlist: watchlistStore, Mapping: mappingStore,
		Holdings: quoteProvider,
		Signals: signalRepo, Backtest: backtestService, Registries: registries, Config: cfg,
		Dispatcher: dispatcher, Metrics: m, LimitUpCache: limitUpCache,
	}, handlerChain...)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info(ctx, "http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	ossignal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info(ctx, "shutdown signal received")

	coordinator.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.HTTP.ShutdownGrace)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "http server shutdown error", "error", err)
	}

	if err := mappingStore.Save(cfg.Mapping.Path); err != nil {
		logger.Error(ctx, "mapping save failed", "error", err)
	}
	if err := watchlistStore.Save(cfg.Watchlist.Path); err != nil {
		logger.Error(ctx, "watchlist save failed", "error", err)
	}
	logger.Info(ctx, "shutdown complete")
}
