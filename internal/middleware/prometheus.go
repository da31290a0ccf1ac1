package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/metrics"
)

// Prometheus records request count, duration and in-flight gauge per route
func Prometheus(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		m.IncHTTPInFlight()
		defer m.DecHTTPInFlight()

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.ObserveHTTPRequest(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
		)
	}
}
