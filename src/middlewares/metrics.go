package middlewares

import (
	"cws/src/prometheus"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// MetricsMiddleware records request counts and latency per route.
func MetricsMiddleware(ctx *gin.Context) {
	start := time.Now()

	ctx.Next()

	duration := time.Since(start).Seconds()
	method := ctx.Request.Method
	path := ctx.FullPath()
	if path == "" {
		path = "unmatched"
	}
	status := strconv.Itoa(ctx.Writer.Status())

	prometheus.HttpRequestsTotal.WithLabelValues(method, path, status).Inc()
	prometheus.HttpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
}
