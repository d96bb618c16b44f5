package middleware

import (
	"time"

	"github.com/contabilidad/backend/internal/infrastructure/metrics"
	"github.com/gin-gonic/gin"
)

// HTTPMetrics records request count and latency per matched route.
// Unmatched paths share one label so scanners cannot inflate cardinality.
func HTTPMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.ObserveHTTP(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
