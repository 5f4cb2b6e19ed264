// Package main loads archived payloads into the observation history.
// The next pipeline run recomputes the gold table over the enlarged history.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fx-trend-lab/internal/app"
	"fx-trend-lab/internal/config"
	"fx-trend-lab/internal/exchangerate"
	"fx-trend-lab/internal/ingestion"
	"fx-trend-lab/internal/logging"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "Path to YAML configuration")
	envFile := flag.String("env", ".env", "Optional dotenv file")
	dir := flag.String("dir", "", "Payload archive directory (default: output.raw_dir)")
	batchSize := flag.Int("batch-size", 1000, "Observations per insert batch")
	outputJSON := flag.Bool("json", false, "Output summary as JSON")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *dir == "" {
		*dir = cfg.Output.RawDir
	}
	if *dir == "" {
		fmt.Fprintln(os.Stderr, "--dir is required when output.raw_dir is empty")
		os.Exit(1)
	}

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
		cancel()
	}()

	stores, cleanup, err := app.OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Error().Err(err).Msg("open stores")
		closer.Close()
		os.Exit(1)
	}
	defer cleanup()

	backfiller := ingestion.NewBackfiller(ingestion.BackfillOptions{
		Store:     stores.Observations,
		BatchSize: *batchSize,
		Logger:    logger,
	})

	result, err := backfiller.BackfillDir(ctx, exchangerate.Archive{Dir: *dir})
	if err != nil {
		logger.Error().Err(err).Msg("backfill failed")
		cleanup()
		closer.Close()
		os.Exit(1)
	}

	// Output summary
	if *outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return
	}
	fmt.Printf("\n=== Backfill Summary ===\n")
	fmt.Printf("Archive:            %s\n", *dir)
	fmt.Printf("Files Read:         %d\n", result.FilesRead)
	fmt.Printf("Files Failed:       %d\n", result.FilesFailed)
	fmt.Printf("Rates Fetched:      %d\n", result.Fetched)
	fmt.Printf("Invalid Rates:      %d\n", result.Invalid)
	fmt.Printf("Observations Added: %d\n", result.Stored)
	fmt.Printf("Duplicates Skipped: %d\n", result.DuplicatesSkipped)
	fmt.Printf("Errors:             %d\n", result.Errors)
	fmt.Printf("Duration:           %v\n", result.Duration)
}
