// Package api serves the read-side HTTP API used by the dashboard.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"fx-trend-lab/internal/observability"
	"fx-trend-lab/internal/snapshot"
	"fx-trend-lab/internal/storage"
	"fx-trend-lab/internal/sufficiency"
)

// StatusFunc reports process status for the /status endpoint.
type StatusFunc func() any

// Options configures the server.
type Options struct {
	FeatureRows  storage.FeatureRowStore
	Insights     storage.InsightStore
	Observations storage.ObservationStore // optional, enables the sufficiency report
	Cache        snapshot.Cache           // optional
	WatchList    []string                 // snapshot currencies, empty means all
	Status       StatusFunc               // optional
	Logger       zerolog.Logger
	Metrics      *observability.Metrics
	Gatherer     prometheus.Gatherer // nil exposes the default registry
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server wraps the Echo instance.
type Server struct {
	echo   *echo.Echo
	h      *handler
	logger zerolog.Logger
}

// New creates a server with all routes registered.
func New(opts Options) *Server {
	if opts.Metrics == nil {
		opts.Metrics = observability.DefaultMetrics
	}
	logger := opts.Logger.With().Str("component", "api").Logger()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = opts.ReadTimeout
	e.Server.WriteTimeout = opts.WriteTimeout

	e.Use(middleware.Recover())
	e.Use(requestLogging(logger, opts.Metrics))

	var checker *sufficiency.Checker
	if opts.Observations != nil {
		checker = sufficiency.NewChecker(opts.Observations, opts.WatchList)
	}

	h := &handler{
		rows:      opts.FeatureRows,
		insights:  opts.Insights,
		cache:     opts.Cache,
		checker:   checker,
		watchList: append([]string(nil), opts.WatchList...),
		status:    opts.Status,
		logger:    logger,
		now:       time.Now,
	}
	h.register(e)

	metricsHandler := observability.Handler()
	if opts.Gatherer != nil {
		metricsHandler = observability.HandlerFor(opts.Gatherer)
	}
	e.GET("/metrics", echo.WrapHandler(metricsHandler))

	return &Server{echo: e, h: h, logger: logger}
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("http server listening")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info().Msg("http server stopped")
	return nil
}
