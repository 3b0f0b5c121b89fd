package middleware

import (
	"time"

	"github.com/yohanna4/song-manager/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Logging writes one access log entry per request; the level follows the
// response status.
func Logging(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		fields := []logger.Field{
			logger.String("request_id", GetRequestID(c)),
			logger.String("method", c.Request.Method),
			logger.String("path", path),
			logger.String("query", query),
			logger.Int("status", status),
			logger.Duration("latency", latency),
			logger.String("client_ip", c.ClientIP()),
			logger.String("user_agent", c.Request.UserAgent()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logger.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			log.WithFields(fields...).Error("HTTP request error")
		case status >= 400:
			log.WithFields(fields...).Warn("HTTP request warning")
		default:
			log.WithFields(fields...).Info("HTTP request")
		}
	}
}
