package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/mojiscan/internal/observe"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry starts a server span per request and records its latency.
// The route template (c.FullPath) is used instead of the raw path to keep
// metric cardinality bounded.
func Telemetry(m *observe.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		ctx, span := observe.StartSpan(c.Request.Context(), "HTTP "+c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", c.Request.Method),
				attribute.String("http.route", route),
			),
		)
		defer span.End()

		if traceID := observe.TraceID(ctx); traceID != "" {
			c.Header("X-Trace-ID", traceID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		m.RecordHTTPRequest(ctx, c.Request.Method, route, status, time.Since(start).Seconds())
	}
}
