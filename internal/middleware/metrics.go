package middleware

import (
	"strconv"
	"time"

	"github.com/yohanna4/song-manager/pkg/telemetry"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records request counts and latencies on the provider's meter.
func Metrics(p *telemetry.Provider) (gin.HandlerFunc, error) {
	requests, err := p.NewHTTPRequestCounter()
	if err != nil {
		return nil, err
	}
	durations, err := p.NewHTTPDurationHistogram()
	if err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		attrs := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("route", route),
			attribute.String("status", strconv.Itoa(c.Writer.Status())),
		)
		requests.Add(c.Request.Context(), 1, attrs)
		durations.Record(c.Request.Context(), time.Since(start).Seconds(), attrs)
	}, nil
}
