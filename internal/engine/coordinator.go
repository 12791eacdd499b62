package engine

import (
	"context"
	"sync"
	"time"

	"github.com/wyfcoding/etfarb/internal/apperr"
	"github.com/wyfcoding/etfarb/internal/platform/logger"
)

// Status is a read-only snapshot of the coordinator's monitor state, safe to
// serve over HTTP (§6 GET /api/status).
type Status struct {
	MonitorRunning bool       `json:"monitor_running"`
	IsTradingTime  bool       `json:"is_trading_time"`
	TodaySignals   int        `json:"today_signals"`
	LimitUpCount   int        `json:"limitup_count"`
	LastScanTime   *time.Time `json:"last_scan_time"`
}

// Coordinator owns the single process-wide monitor state (§5 "API State",
// §9 "Global state"): whether the loop is running, the last scan time, and
// day counters that persist across stop/start within the same calendar day
// (§9 "Ambiguities" — resolved: counters persist for the day).
type Coordinator struct {
	engine        *Engine
	watchlist     func() []string
	scanInterval  time.Duration
	shutdownGrace time.Duration

	mu           sync.Mutex
	running      bool
	cancel       context.CancelFunc
	done         chan struct{}
	lastScanTime *time.Time
	day          time.Time
	todaySignals int
	limitUpCount int
}

// NewCoordinator wires e to a watchlist accessor. watchlist is called fresh
// on every scan so additions/removals while the monitor is running take
// effect on the next tick.
func NewCoordinator(e *Engine, watchlist func() []string, scanInterval, shutdownGrace time.Duration) *Coordinator {
	return &Coordinator{
		engine:        e,
		watchlist:     watchlist,
		scanInterval:  scanInterval,
		shutdownGrace: shutdownGrace,
	}
}

// Start launches the monitor loop. Calling Start on an already-running
// coordinator is a no-op per §4.E "start is idempotent" — but the HTTP layer
// (§6) still wants to tell the two cases apart, so Start reports which
// happened.
func (c *Coordinator) Start(ctx context.Context) (alreadyRunning bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return true
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true
	if c.engine.Metrics != nil {
		c.engine.Metrics.MonitorRunning.Set(1)
	}

	go c.loop(loopCtx, c.done)
	return false
}

// Stop cancels the loop and waits up to shutdownGrace for the current scan
// to drain. Calling Stop when not running is a no-op; callers distinguish
// the two cases via the returned bool, matching Start's shape.
func (c *Coordinator) Stop() (wasNotRunning bool) {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return true
	}
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(c.shutdownGrace):
		logger.Warn(context.Background(), "monitor stop exceeded shutdown_grace, proceeding anyway")
	}

	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
	if c.engine.Metrics != nil {
		c.engine.Metrics.MonitorRunning.Set(0)
	}
	return false
}

// IsRunning reports whether the monitor loop is currently active.
func (c *Coordinator) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Coordinator) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		now := c.engine.Clock.Now()
		if !c.engine.Sessions.IsTradingTime(now) {
			next := c.engine.Sessions.NextOpen(now)
			wait := next.Sub(now)
			if wait <= 0 {
				wait = c.scanInterval
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}

		c.runScanOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.scanInterval):
		}
	}
}

// ScanOnce runs a single scan outside the loop (§6 POST /api/monitor/scan)
// and records it in the same counters the loop uses.
func (c *Coordinator) ScanOnce(ctx context.Context) (*ScanResult, error) {
	return c.runScanOnce(ctx)
}

func (c *Coordinator) runScanOnce(ctx context.Context) (*ScanResult, error) {
	watched := c.watchlist()
	result, err := c.engine.Scan(ctx, watched)
	if err != nil {
		return nil, apperr.Dependency("scan failed: %v", err)
	}

	now := c.engine.Clock.Now()
	c.mu.Lock()
	day := truncateToDay(now)
	if c.day.IsZero() || !c.day.Equal(day) {
		c.day = day
		c.todaySignals = 0
		c.limitUpCount = 0
	}
	c.todaySignals += len(result.SignalsEmitted)
	c.limitUpCount += result.Events
	t := now
	c.lastScanTime = &t
	c.mu.Unlock()

	return result, nil
}

// Status returns a snapshot of the coordinator's monitor state.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	var last *time.Time
	if c.lastScanTime != nil {
		t := *c.lastScanTime
		last = &t
	}
	return Status{
		MonitorRunning: c.running,
		IsTradingTime:  c.engine.Sessions.IsTradingTime(c.engine.Clock.Now()),
		TodaySignals:   c.todaySignals,
		LimitUpCount:   c.limitUpCount,
		LastScanTime:   last,
	}
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
