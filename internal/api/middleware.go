package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"alerting-service/internal/logging"
)

// RequestLoggingMiddleware logs one line per request: method, full path with
// query, caller, status and latency. Server-side failures are raised to the
// error level so they stand out in rotated logs.
func RequestLoggingMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path += "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		line := "%s %s from %s -> %d in %v"
		args := []interface{}{c.Request.Method, path, c.ClientIP(), status, time.Since(start)}
		if status >= 500 {
			logger.Errorf(line, args...)
			return
		}
		logger.Infof(line, args...)
	}
}
