package middleware

import (
	"time"

	"solana-chat-api/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// MetricsMiddleware records request counts and latencies for every route
func MetricsMiddleware(collector *metrics.MetricsCollector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		collector.RecordRequest()

		c.Next()

		duration := time.Since(start)
		success := c.Writer.Status() < 400
		collector.RecordRequestComplete(duration, success)
	}
}
