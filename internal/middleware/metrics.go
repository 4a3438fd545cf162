package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/whistle-api/internal/service"
)

const unmatchedRoute = "unmatched"

// opsRoutes are excluded from request metrics.
var opsRoutes = map[string]struct{}{
	"/metrics": {},
	"/health":  {},
	"/ready":   {},
}

// Metrics records request latency per route template. Unmatched paths share a single label.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := routeLabel(c)
		if _, skip := opsRoutes[route]; skip {
			return
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

func routeLabel(c *gin.Context) string {
	route := c.FullPath()
	if route == "" {
		return unmatchedRoute
	}
	return route
}
