package middleware

import (
	"time"

	"ai-memo-app/src/metrics"

	"github.com/gin-gonic/gin"
)

// MetricsMiddleware records request count and latency per route template
func MetricsMiddleware(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		collector.RecordRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
