package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	appctx "ledgerbook/internal/core/context"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

// gin context keys
const (
	ctxIdempotencyKey      = "idempotency_key"
	ctxIdempotencyBusiness = "idempotency_business"
	ctxIdempotency         = "idempotency_store"
)

var tracer = otel.Tracer("ledgerbook/http")

// Trace assigns request and trace identifiers and opens a server span.
// Incoming X-Request-ID and X-Trace-ID headers are honoured.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		trace := appctx.NewTraceContext(c.GetHeader(HeaderRequestID), c.GetHeader(HeaderTraceID))
		requestID, traceID := trace.RequestID, trace.TraceID

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		ctx, span := tracer.Start(c.Request.Context(), c.Request.Method+" "+route)
		defer span.End()

		if sc := span.SpanContext(); sc.HasSpanID() {
			trace.SpanID = sc.SpanID().String()
		}
		ctx = appctx.WithTrace(ctx, trace)
		c.Request = c.Request.WithContext(ctx)

		c.Header(HeaderRequestID, requestID)
		c.Header(HeaderTraceID, traceID)

		c.Next()

		span.SetAttributes(
			attribute.String("http.request_id", requestID),
			attribute.Int("http.status_code", c.Writer.Status()),
		)
	}
}
