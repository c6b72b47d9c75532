package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campushub/enrollment-api/internal/service"
)

// Metrics records per-route request counts and latencies. Routes are labeled
// by their template (e.g. /schools/:schoolId/enrollments) so school and
// enrollment ids never become label values.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, status, duration)
	}
}
