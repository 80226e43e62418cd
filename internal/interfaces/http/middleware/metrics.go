package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sawi/backend/internal/infrastructure/metrics"
)

// HTTPMetrics records request count and latency per matched route. Requests
// to skipPaths (the scrape endpoint itself, health probes) are not recorded.
func HTTPMetrics(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		metrics.ObserveHTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
