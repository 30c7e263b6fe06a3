package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ikkim/cart-recovery-backend/pkg/logger"
	"github.com/ikkim/cart-recovery-backend/pkg/metrics"
)

const (
	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"

	loggerKey          = "logger"
	maxRequestIDLength = 64
)

// quietRoutes are polled by infrastructure and only logged at debug level.
var quietRoutes = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// LoggingMiddleware tags each request with an id, exposes a request-scoped
// logger to handlers and records the outcome in httpMetrics (which may be nil).
func LoggingMiddleware(httpMetrics *metrics.HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		log := logger.WithContext(map[string]interface{}{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"ip":         c.ClientIP(),
		})
		c.Set(loggerKey, log)

		c.Next()

		elapsed := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		httpMetrics.Observe(c.Request.Method, route, status, elapsed)

		fields := map[string]interface{}{
			"route":       route,
			"status_code": status,
			"latency_ms":  elapsed.Milliseconds(),
			"body_size":   c.Writer.Size(),
		}
		// Identity is only known once the storefront middleware has run.
		if sessionID := c.GetString(SessionIDKey); sessionID != "" {
			fields["session_id"] = sessionID
		}
		if userID := c.GetUint(UserIDKey); userID != 0 {
			fields["user_id"] = userID
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		switch {
		case status >= 500:
			log.Error("Request failed", nil, fields)
		case status >= 400:
			log.Warn("Request rejected", fields)
		case quietRoutes[route]:
			log.Debug("Request completed", fields)
		default:
			log.Info("Request completed", fields)
		}
	}
}

// GetLoggerFromContext returns the request-scoped logger, or the global one
// outside a request.
func GetLoggerFromContext(c *gin.Context) *logger.Logger {
	if l, ok := c.Get(loggerKey); ok {
		if log, ok := l.(*logger.Logger); ok {
			return log
		}
	}
	return logger.Get()
}
