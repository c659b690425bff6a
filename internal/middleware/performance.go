package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// PerformanceMiddleware adds a response-time header for client-side debugging
func PerformanceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		c.Header("X-Response-Time", fmt.Sprintf("%.2fms", float64(duration.Microseconds())/1000.0))
	}
}
