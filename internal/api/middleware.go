package api

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"fx-trend-lab/internal/observability"
)

// requestLogging logs each request and records its metrics.
func requestLogging(logger zerolog.Logger, metrics *observability.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			latency := time.Since(start)

			metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(res.Status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(route).Observe(latency.Seconds())

			event := logger.Debug()
			if res.Status >= 500 {
				event = logger.Error()
			}
			event.
				Str("method", req.Method).
				Str("uri", req.RequestURI).
				Str("remote", c.RealIP()).
				Int("status", res.Status).
				Dur("latency", latency).
				Msg("http request")

			return nil
		}
	}
}
