// Package main runs one ingestion-to-narration cycle and exits.
// Executes: fetch → normalize → merge → features → metadata → publish → narrate
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"fx-trend-lab/internal/app"
	"fx-trend-lab/internal/config"
	"fx-trend-lab/internal/features"
	"fx-trend-lab/internal/logging"
	"fx-trend-lab/internal/observability"
	"fx-trend-lab/internal/verification"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "Path to YAML configuration")
	envFile := flag.String("env", ".env", "Optional dotenv file")
	payloadFile := flag.String("payload-file", "", "Read the latest payload from a saved JSON file instead of the API")
	csvPath := flag.String("csv", "", "Override CSV export path")
	noNarration := flag.Bool("no-narration", false, "Skip the daily insight")
	verify := flag.Bool("verify", false, "Check the stored gold table against the stored history instead of running")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *payloadFile != "" {
		cfg.Source.PayloadFile = *payloadFile
	}
	if *csvPath != "" {
		cfg.Output.CSVPath = *csvPath
	}
	if *noNarration {
		cfg.Narration.Enabled = false
	}

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	if err := run(cfg, logger, *verify); err != nil {
		logger.Error().Err(err).Msg("pipeline failed")
		closer.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger zerolog.Logger, verify bool) error {
	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Warn().Str("signal", sig.String()).Msg("received signal, cancelling pipeline")
		cancel()
	}()

	stores, cleanup, err := app.OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if verify {
		return runVerify(ctx, cfg, stores, logger)
	}

	orch, err := app.NewOrchestrator(cfg, stores, logger, observability.DefaultMetrics)
	if err != nil {
		return err
	}

	result, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info().
		Str("run_id", result.RunID).
		Int("fetched", result.Ingest.Fetched).
		Int("accepted", result.Ingest.Accepted).
		Int("invalid", len(result.Ingest.Invalid)).
		Int("duplicates", result.Ingest.Duplicates).
		Int("added", result.Ingest.Added).
		Int("feature_rows", result.FeatureRows).
		Strs("metadata_gaps", result.MetadataGaps).
		Str("csv", result.Publish.CSVPath).
		Bool("insight_created", result.InsightCreated).
		Strs("errors", result.Errors).
		Dur("duration", result.Duration).
		Msg("pipeline completed")

	return nil
}

// runVerify recomputes the gold table from the stored history and reports
// every row that differs from the stored one.
func runVerify(ctx context.Context, cfg *config.Config, stores *app.Stores, logger zerolog.Logger) error {
	verifier := verification.NewGoldVerifier(verification.GoldVerifierOptions{
		ObservationStore: stores.Observations,
		FeatureRowStore:  stores.FeatureRows,
		MetadataStore:    stores.Metadata,
		Engine:           features.NewEngine(cfg.Features.Thresholds.Thresholds()),
	})

	report, err := verifier.VerifyAll(ctx)
	if err != nil {
		return err
	}
	for _, r := range report.Results {
		ev := logger.Warn().
			Str("currency", r.Key.Currency).
			Time("timestamp", time.UnixMilli(r.Key.Timestamp).UTC()).
			Bool("missing", r.Missing).
			Bool("extra", r.Extra)
		for _, d := range r.Divergences {
			ev = ev.Interface(d.Field, map[string]any{"stored": d.Expected, "recomputed": d.Actual})
		}
		ev.Msg("gold row diverges")
	}

	logger.Info().
		Int("rows", report.TotalRows).
		Int("matched", report.MatchedRows).
		Int("divergent", report.DivergentRows).
		Int("missing", report.MissingRows).
		Int("extra", report.ExtraRows).
		Msg("verification completed")

	if !report.OK() {
		return errors.New("gold table is not reproducible from the stored history")
	}
	return nil
}
