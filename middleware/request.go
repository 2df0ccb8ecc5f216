// Package middleware gin 中间件：请求 ID、访问日志、CORS、鉴权、限流和指标
package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/studieren/mindjournal/logger"
)

const (
	HeaderRequestID = "X-Request-Id"
	HeaderTraceID   = "X-Trace-Id"

	ctxRequestID = "request_id"
	ctxTraceID   = "trace_id"
)

// RequestID 沿用客户端传入的请求 ID，没有就生成一个
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(ctxRequestID, reqID)
		c.Writer.Header().Set(HeaderRequestID, reqID)

		// otelgin 在前面时这里能拿到 span
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			c.Set(ctxTraceID, sc.TraceID().String())
			c.Writer.Header().Set(HeaderTraceID, sc.TraceID().String())
		}
		c.Next()
	}
}

func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if v := c.GetString(ctxRequestID); v != "" {
			fields = append(fields, "request_id", v)
		}
		if v := c.GetString(ctxTraceID); v != "" {
			fields = append(fields, "trace_id", v)
		}
		if v, ok := UserID(c); ok {
			fields = append(fields, "user_id", v)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}
