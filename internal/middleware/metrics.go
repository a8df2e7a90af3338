package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jhcramos/urbix-api/internal/metrics"
)

// Metrics records request counts and latency per matched route.
// Unmatched paths are folded into one label to keep cardinality bounded.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		metrics.HTTPDurationMs.WithLabelValues(c.Request.Method, route).
			Observe(float64(time.Since(start).Milliseconds()))
	}
}
