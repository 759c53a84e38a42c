package api

import (
	"net/http"
	"path"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/FearlessSpiff/radio-calico/internal/metrics"
)

const requestIDHeader = "X-Request-ID"

// Recovery turns handler panics into a logged 500 instead of a dropped
// connection.
func Recovery(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Errorw("panic recovered",
					"error", err,
					"path", c.Request.URL.Path,
					"stack", string(debug.Stack()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, failure("Internal server error"))
			}
		}()
		c.Next()
	}
}

// RequestID reuses an incoming X-Request-ID or mints one, and echoes it
// on the response so log lines can be tied to client reports.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// RequestLogger emits one structured line per served request.
func RequestLogger(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Infow("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
			"request_id", c.GetString("request_id"),
		)
	}
}

// Metrics records the request duration histogram, labeled by the route
// template so path parameters don't blow up cardinality.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// longCacheExts are the static asset types browsers may keep for a year;
// their URLs carry the build version, so stale content is impossible.
var longCacheExts = map[string]bool{
	".css": true, ".js": true, ".png": true, ".jpg": true, ".jpeg": true,
	".webp": true, ".svg": true, ".woff": true, ".woff2": true,
	".ttf": true, ".map": true,
}

// CacheControl applies the per-path-class cache policy: API responses
// are never cached, fingerprinted assets are cached for a year, HTML
// for five minutes.
func CacheControl() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		switch {
		case strings.HasPrefix(p, "/static/"):
			if longCacheExts[path.Ext(p)] {
				c.Header("Cache-Control", "public, max-age=31536000")
			}
		case strings.HasPrefix(p, "/api/"), p == "/metrics":
			c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
		case p == "/" || strings.HasSuffix(p, ".html"):
			c.Header("Cache-Control", "public, max-age=300")
		}
		c.Next()
	}
}

// RateLimit throttles each client address with its own token bucket.
// rps <= 0 disables the limiter entirely.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		mu.Lock()
		lim, ok := limiters[ip]
		if !ok {
			lim = rate.NewLimiter(rate.Limit(rps), burst)
			limiters[ip] = lim
		}
		mu.Unlock()

		if !lim.Allow() {
			metrics.RateLimitRejections.Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, failure("Too many requests"))
			return
		}
		c.Next()
	}
}
