package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	backtestapp "github.com/wyfcoding/etfarb/internal/backtest/application"
	"github.com/wyfcoding/etfarb/internal/backtest/domain"
	"github.com/wyfcoding/etfarb/internal/backtest/infrastructure"
	"github.com/wyfcoding/etfarb/internal/calendar"
	"github.com/wyfcoding/etfarb/internal/engine"
	"github.com/wyfcoding/etfarb/internal/engineconfig"
	"github.com/wyfcoding/etfarb/internal/httpapi"
	"github.com/wyfcoding/etfarb/internal/mapping"
	"github.com/wyfcoding/etfarb/internal/notifier"
	"github.com/wyfcoding/etfarb/internal/platform/config"
	"github.com/wyfcoding/etfarb/internal/quote"
	"github.com/wyfcoding/etfarb/internal/signal"
	"github.com/wyfcoding/etfarb/internal/strategy"
	"github.com/wyfcoding/etfarb/internal/watchlist"
)

func newTestRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)

	regs, err := strategy.NewRegistries()
	require.NoError(t, err)
	resolved, err := engineconfig.Build(engineconfig.Balanced(), regs)
	require.NoError(t, err)

	quotes := quote.NewMemoryProvider()
	quotes.SeedHoldings("510300", "CSI 300 ETF", []quote.Holding{{StockCode: "600519", ETFCode: "510300", Rank: 1}})
	mappingStore := mapping.New()
	watchlistStore := watchlist.New()
	signalRepo := signal.NewInMemoryRepository()
	sessions := calendar.DefaultSessions()

	e := engine.New(quotes, mappingStore, nil, resolved, signalRepo, sessions, calendar.SystemClock{}, engineconfig.Balanced(), strategy.DefaultEvaluationConfig(), 5*time.Second)
	coordinator := engine.NewCoordinator(e, watchlistStore.Codes, time.Minute, time.Second)

	series := infrastructure.NewHistoricalSeries()
	driver := domain.NewDriver(series, series, regs, strategy.DefaultEvaluationConfig(), sessions)
	backtestSvc := backtestapp.NewService(driver, infrastructure.NewMemoryRepository(), slog.Default())

	dispatcher := notifier.NewDispatcher("test")
	dispatcher.Register("mock", notifier.NewMockSender())

	cfg := &config.Config{ServiceName: "etfarb-test"}
	cfg.Strategy.EventDetector = "limit_up"
	cfg.Strategy.FundSelector = "highest_weight"
	cfg.Strategy.SignalFilters = []string{"time", "liquidity", "confidence", "risk"}
	cfg.Strategy.ScanConcurrency = 8

	return httpapi.New(httpapi.Dependencies{
		Engine: e, Coordinator: coordinator, Watchlist: watchlistStore, Mapping: mappingStore,
		Holdings: quotes, Signals: signalRepo, Backtest: backtestSvc, Registries: regs, Config: cfg,
		Dispatcher: dispatcher,
	})
}

func doRequest(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)
	rec := doRequest(r, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestStatus(t *testing.T) {
	r := newTestRouter(t)
	rec := doRequest(r, http.MethodGet, "/api/status", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWatchlistAddListRemove(t *testing.T) {
	r := newTestRouter(t)

	rec := doRequest(r, http.MethodPost, "/api/watchlist/add", map[string]string{"code": "600519", "name": "Moutai"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(r, http.MethodPost, "/api/watchlist/add", map[string]string{"code": "600519", "name": "Moutai"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"already_exists"}`, rec.Body.String())

	rec = doRequest(r, http.MethodGet, "/api/watchlist", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []watchlist.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "600519", listed[0].Code)

	rec = doRequest(r, http.MethodDelete, "/api/watchlist/600519", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(r, http.MethodGet, "/api/watchlist", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Empty(t, listed)
}

func TestWatchlistAddRejectsMissingCode(t *testing.T) {
	r := newTestRouter(t)
	rec := doRequest(r, http.MethodPost, "/api/watchlist/add", map[string]string{"name": "no code"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation", body["error"]["kind"])
}

func TestSignalsListRejectsInvertedDateRange(t *testing.T) {
	r := newTestRouter(t)
	rec := doRequest(r, http.MethodGet, "/api/signals?start=2026-03-10&end=2026-03-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRelatedETFsNotFoundForUnmappedStock(t *testing.T) {
	r := newTestRouter(t)
	rec := doRequest(r, http.MethodGet, "/api/stocks/999999/related-etfs", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMappingRebuild(t *testing.T) {
	r := newTestRouter(t)
	rec := doRequest(r, http.MethodPost, "/api/admin/mapping/rebuild", map[string]any{"etf_codes": []string{"510300"}})
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body["covered_etfs"])
}

func TestPluginsInventory(t *testing.T) {
	r := newTestRouter(t)
	rec := doRequest(r, http.MethodGet, "/api/plugins", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "evaluators")
	assert.Contains(t, body, "senders")
	assert.Contains(t, body, "sources")
}

func TestStrategiesValidate(t *testing.T) {
	r := newTestRouter(t)
	rec := doRequest(r, http.MethodGet, "/api/strategies/validate", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
}

func TestGetConfigRedactsSecrets(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{ServiceName: "etfarb-test"}
	cfg.Redis.Password = "super-secret"
	cfg.Database.DSN = "user:pw@tcp(localhost)/db"

	mappingStore := mapping.New()
	watchlistStore := watchlist.New()
	regs, err := strategy.NewRegistries()
	require.NoError(t, err)
	resolved, err := engineconfig.Build(engineconfig.Balanced(), regs)
	require.NoError(t, err)
	e := engine.New(quote.NewMemoryProvider(), mappingStore, nil, resolved, signal.NewInMemoryRepository(), calendar.DefaultSessions(), calendar.SystemClock{}, engineconfig.Balanced(), strategy.DefaultEvaluationConfig(), time.Second)
	coordinator := engine.NewCoordinator(e, watchlistStore.Codes, time.Minute, time.Second)

	r := httpapi.New(httpapi.Dependencies{Engine: e, Coordinator: coordinator, Watchlist: watchlistStore, Mapping: mappingStore, Config: cfg})

	rec := doRequest(r, http.MethodGet, "/api/config", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "***", body["Redis"].(map[string]any)["Password"])
	assert.Equal(t, "***@tcp(localhost)/db", body["Database"].(map[string]any)["DSN"])
}

func TestMonitorStartStopConflict(t *testing.T) {
	r := newTestRouter(t)

	rec := doRequest(r, http.MethodPost, "/api/monitor/start", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(r, http.MethodPost, "/api/monitor/start", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(r, http.MethodPost, "/api/monitor/stop", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(r, http.MethodPost, "/api/monitor/stop", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestBacktestLifecycle(t *testing.T) {
	r := newTestRouter(t)

	body := map[string]any{
		"start_date":   "2026-03-05",
		"end_date":     "2026-03-05",
		"etf_universe": []string{"510300"},
		"securities":   []string{"600519"},
	}
	rec := doRequest(r, http.MethodPost, "/api/backtest/start", body)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var started map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	jobID := started["job_id"]
	require.NotEmpty(t, jobID)

	rec = doRequest(r, http.MethodGet, "/api/backtest/"+jobID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(r, http.MethodGet, "/api/backtest/jobs", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(r, http.MethodDelete, "/api/backtest/"+jobID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestBacktestStartDefaultsSecuritiesToWatchlist(t *testing.T) {
	gin.SetMode(gin.TestMode)

	regs, err := strategy.NewRegistries()
	require.NoError(t, err)
	resolved, err := engineconfig.Build(engineconfig.Balanced(), regs)
	require.NoError(t, err)

	mappingStore := mapping.New()
	watchlistStore := watchlist.New()
	_, err = watchlistStore.Add(context.Background(), "600519", "", "")
	require.NoError(t, err)
	_, err = watchlistStore.Add(context.Background(), "000001", "", "")
	require.NoError(t, err)

	signalRepo := signal.NewInMemoryRepository()
	sessions := calendar.DefaultSessions()
	e := engine.New(quote.NewMemoryProvider(), mappingStore, nil, resolved, signalRepo, sessions, calendar.SystemClock{}, engineconfig.Balanced(), strategy.DefaultEvaluationConfig(), 5*time.Second)
	coordinator := engine.NewCoordinator(e, watchlistStore.Codes, time.Minute, time.Second)

	series := infrastructure.NewHistoricalSeries()
	driver := domain.NewDriver(series, series, regs, strategy.DefaultEvaluationConfig(), sessions)
	backtestSvc := backtestapp.NewService(driver, infrastructure.NewMemoryRepository(), slog.Default())

	cfg := &config.Config{ServiceName: "etfarb-test"}
	r := httpapi.New(httpapi.Dependencies{
		Engine: e, Coordinator: coordinator, Watchlist: watchlistStore, Mapping: mappingStore,
		Backtest: backtestSvc, Registries: regs, Config: cfg,
	})

	body := map[string]any{
		"start_date":   "2026-03-05",
		"end_date":     "2026-03-05",
		"etf_universe": []string{"510300"},
	}
	rec := doRequest(r, http.MethodPost, "/api/backtest/start", body)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var started map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))

	rec = doRequest(r, http.MethodGet, "/api/backtest/"+started["job_id"], nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var job domain.BacktestJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, []string{"000001", "600519"}, job.Config.Securities)
}
