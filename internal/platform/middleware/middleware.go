// Package middleware provides the control plane's gin middleware: request
// logging with trace-id propagation, panic recovery, CORS, and a
// token-bucket rate limiter — ported from the teacher's pkg/middleware with
// the gRPC interceptors dropped (this build has no gRPC surface).
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wyfcoding/etfarb/internal/platform/logger"
	"github.com/wyfcoding/etfarb/internal/platform/metrics"
)

const (
	RequestIDKey = "request_id"
	TraceIDKey   = "trace_id"
)

// Logging logs request start/completion with a generated request/trace id.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.New().String()
		traceID := c.GetHeader("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.New().String()
		}
		c.Set(RequestIDKey, requestID)
		c.Set(TraceIDKey, traceID)

		ctx := logger.WithTraceID(c.Request.Context(), traceID)
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		logger.Info(ctx, "http request started", "request_id", requestID, "method", method, "path", path, "client_ip", c.ClientIP())

		c.Next()

		logger.Info(ctx, "http request completed",
			"request_id", requestID,
			"method", method,
			"path", path,
			"status_code", c.Writer.Status(),
			"response_size", c.Writer.Size(),
			"duration", time.Since(start),
		)
	}
}

// Recovery converts a panic into a 500 {error:{kind:"internal",...}} body
// instead of crashing the process.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				requestID, _ := c.Get(RequestIDKey)
				ctx := c.Request.Context()
				logger.Error(ctx, "http request panicked", "request_id", requestID, "panic", err)
				c.JSON(500, gin.H{"error": gin.H{
					"kind":    "internal",
					"message": "internal server error",
				}})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// Metrics records HTTPRequestsTotal/HTTPRequestDuration per request, keyed
// by the matched route template (c.FullPath) rather than the raw path, so
// path params don't explode the label cardinality.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		m.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// CORS allows cross-origin requests from the dashboard (an out-of-scope
// external collaborator per spec §1).
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Trace-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

// RateLimiter is a simple token-bucket limiter, refilled lazily on Allow.
type RateLimiter struct {
	tokens     float64
	maxTokens  float64
	refillRate float64
	lastRefill time.Time
}

// NewRateLimiter creates a limiter with maxTokens capacity refilled at
// refillRate tokens/second.
func NewRateLimiter(maxTokens, refillRate float64) *RateLimiter {
	return &RateLimiter{tokens: maxTokens, maxTokens: maxTokens, refillRate: refillRate, lastRefill: time.Now()}
}

// Allow consumes one token if available.
func (rl *RateLimiter) Allow() bool {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.tokens = minFloat(rl.maxTokens, rl.tokens+elapsed*rl.refillRate)
	rl.lastRefill = now
	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// RateLimit rejects requests with 429 once the limiter's bucket is empty.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.JSON(429, gin.H{"error": gin.H{"kind": "dependency", "message": "too many requests"}})
			c.Abort()
			return
		}
		c.Next()
	}
}
