package middleware

import (
	"time"

	"akshayapatra/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics records request counts and latency keyed by route template
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
