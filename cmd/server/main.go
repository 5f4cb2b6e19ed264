// Package main provides the server that runs the read API and, optionally,
// the scheduled pipeline in one process:
// - API: snapshot, series, insights, health, status, metrics
// - Pipeline (scheduled): fetch → features → publish → narrate
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"fx-trend-lab/internal/api"
	"fx-trend-lab/internal/app"
	"fx-trend-lab/internal/config"
	"fx-trend-lab/internal/logging"
	"fx-trend-lab/internal/observability"
	"fx-trend-lab/internal/orchestrator"
)

// Server holds all components of the service.
type Server struct {
	orch     *orchestrator.Orchestrator // nil when scheduling is disabled
	interval time.Duration
	logger   zerolog.Logger
	started  time.Time

	// State
	mu              sync.Mutex
	lastPipelineRun time.Time
	lastError       string
	pipelineRunning bool
	pipelineRuns    int
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status          string    `json:"status"`
	Uptime          string    `json:"uptime"`
	Started         time.Time `json:"started"`
	LastPipelineRun time.Time `json:"last_pipeline_run,omitzero"`
	LastError       string    `json:"last_error,omitempty"`
	PipelineRuns    int       `json:"pipeline_runs"`
	PipelineRunning bool      `json:"pipeline_running"`
	SchedulerActive bool      `json:"scheduler_active"`
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to YAML configuration")
	envFile := flag.String("env", ".env", "Optional dotenv file")
	addr := flag.String("addr", "", "Override listen address")
	interval := flag.Duration("pipeline-interval", -1, "Pipeline run interval (0 disables, negative uses config)")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *interval >= 0 {
		cfg.Server.PipelineInterval = *interval
	}

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	if err := run(cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("server error")
		closer.Close()
		os.Exit(1)
	}
	logger.Info().Msg("shutdown complete")
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
		cancel()
	}()

	stores, cleanup, err := app.OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("create stores: %w", err)
	}
	defer cleanup()

	s := &Server{
		interval: cfg.Server.PipelineInterval,
		logger:   logger.With().Str("component", "server").Logger(),
		started:  time.Now(),
	}
	if s.interval > 0 {
		s.orch, err = app.NewOrchestrator(cfg, stores, logger, observability.DefaultMetrics)
		if err != nil {
			return err
		}
	}

	srv := api.New(api.Options{
		FeatureRows:  stores.FeatureRows,
		Insights:     stores.Insights,
		Observations: stores.Observations,
		Cache:        stores.Snapshot,
		WatchList:    cfg.WatchList,
		Status:       s.status,
		Logger:       logger,
		Metrics:      observability.DefaultMetrics,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	errCh := make(chan error, 2)
	go func() {
		errCh <- srv.Start(cfg.Server.Addr)
	}()
	if s.orch != nil {
		go func() {
			if err := s.runPipelineScheduler(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("pipeline scheduler: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn().Err(err).Msg("http shutdown")
	}
	return runErr
}

// runPipelineScheduler runs the pipeline on schedule.
func (s *Server) runPipelineScheduler(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Msg("starting pipeline scheduler")

	// Run immediately on start
	s.runPipeline(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runPipeline(ctx)
		}
	}
}

// runPipeline executes one cycle unless one is already running.
func (s *Server) runPipeline(ctx context.Context) {
	s.mu.Lock()
	if s.pipelineRunning {
		s.mu.Unlock()
		s.logger.Info().Msg("pipeline already running, skipping")
		return
	}
	s.pipelineRunning = true
	s.mu.Unlock()

	result, err := s.orch.Run(ctx)

	s.mu.Lock()
	s.pipelineRunning = false
	s.lastPipelineRun = time.Now()
	s.pipelineRuns++
	s.lastError = ""
	if err != nil {
		s.lastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).Msg("pipeline error")
		return
	}
	s.logger.Info().
		Str("run_id", result.RunID).
		Int("added", result.Ingest.Added).
		Int("feature_rows", result.FeatureRows).
		Dur("duration", result.Duration).
		Msg("pipeline completed")
}

// status reports server state for the /status endpoint.
func (s *Server) status() any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return StatusResponse{
		Status:          "running",
		Uptime:          time.Since(s.started).Round(time.Second).String(),
		Started:         s.started,
		LastPipelineRun: s.lastPipelineRun,
		LastError:       s.lastError,
		PipelineRuns:    s.pipelineRuns,
		PipelineRunning: s.pipelineRunning,
		SchedulerActive: s.orch != nil,
	}
}
