// Package metrics exposes the engine's Prometheus counters/histograms/gauges:
// HTTP traffic, scan throughput, and signal emission — the business metrics
// analogue of the teacher's pkg/metrics order/trade counters.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wyfcoding/etfarb/internal/platform/logger"
)

// Metrics is the process-wide metrics registry.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ScansTotal       prometheus.Counter
	ScanDuration      prometheus.Histogram
	SignalsEmitted    prometheus.Counter
	SignalsRejected   prometheus.Counter
	EventsDetected    prometheus.Counter
	MonitorRunning    prometheus.Gauge
	BacktestJobsTotal *prometheus.CounterVec
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
}

// New builds a Metrics collection namespaced under "etfarb".
func New(serviceName string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "etfarb",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "etfarb",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		ScansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "etfarb",
			Subsystem: serviceName,
			Name:      "scans_total",
			Help:      "Total engine scans executed.",
		}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "etfarb",
			Subsystem: serviceName,
			Name:      "scan_duration_seconds",
			Help:      "Scan wall-clock duration.",
			Buckets:   prometheus.DefBuckets,
		}),
		SignalsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "etfarb",
			Subsystem: serviceName,
			Name:      "signals_emitted_total",
			Help:      "Total trading signals emitted.",
		}),
		SignalsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "etfarb",
			Subsystem: serviceName,
			Name:      "signals_rejected_total",
			Help:      "Total draft signals rejected by a filter.",
		}),
		EventsDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "etfarb",
			Subsystem: serviceName,
			Name:      "events_detected_total",
			Help:      "Total market events detected.",
		}),
		MonitorRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "etfarb",
			Subsystem: serviceName,
			Name:      "monitor_running",
			Help:      "1 if the monitor loop is running, else 0.",
		}),
		BacktestJobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "etfarb",
			Subsystem: serviceName,
			Name:      "backtest_jobs_total",
			Help:      "Total backtest jobs by terminal status.",
		}, []string{"status"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "etfarb",
			Subsystem: serviceName,
			Name:      "cache_hits_total",
			Help:      "Total TTL cache hits.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "etfarb",
			Subsystem: serviceName,
			Name:      "cache_misses_total",
			Help:      "Total TTL cache misses.",
		}),
	}
}

// Register registers every collector with the default Prometheus registerer.
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal, m.HTTPRequestDuration,
		m.ScansTotal, m.ScanDuration, m.SignalsEmitted, m.SignalsRejected,
		m.EventsDetected, m.MonitorRunning, m.BacktestJobsTotal,
		m.CacheHits, m.CacheMisses,
	}
	for _, c := range collectors {
		if err := prometheus.DefaultRegisterer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			logger.Error(context.Background(), "failed to register metric", "error", err)
			return err
		}
	}
	return nil
}

// Handler returns the promhttp HTTP handler for mounting at the configured
// metrics path (wrapped with gin.WrapH by the httpapi router).
func Handler() http.Handler {
	return promhttp.Handler()
}
