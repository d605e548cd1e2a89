// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file exposes Prometheus instrumentation for HTTP traffic. Collectors
// live on an injected observability.Metrics handle rather than package-level
// variables, so each test builds its own registry and the router wires the
// same handle the submission service and workers use.
//
// Label cardinality stays bounded: "path" is the registered Gin route (raw
// URL path only when no route matched), "status" is the numeric code string.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-landing-backend/internal/observability"
)

// Metrics returns a Gin middleware that instruments requests on m:
//   - http_requests_total(method, path, status) per request
//   - http_request_duration_seconds(method, path) on completion
//   - http_requests_inflight gauge during handler execution
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.HTTPInflight.Inc()
		defer m.HTTPInflight.Dec()

		c.Next()

		dur := time.Since(start).Seconds()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		m.HTTPRequests.WithLabelValues(method, path, status).Inc()
		m.HTTPLatency.WithLabelValues(method, path).Observe(dur)
	}
}
