package server

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/m-mizutani/fitplan/pkg/utils/logging"
)

const requestIDHeader = "X-Request-ID"

// requestLogger attaches a request scoped logger to the request context and
// writes one access log line per request
func requestLogger(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		logger := base.With("request_id", requestID)
		c.Request = c.Request.WithContext(logging.With(c.Request.Context(), logger))

		c.Next()

		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
