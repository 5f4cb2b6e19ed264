package app

import (
	"fmt"

	"github.com/rs/zerolog"

	"fx-trend-lab/internal/config"
	"fx-trend-lab/internal/exchangerate"
	"fx-trend-lab/internal/features"
	"fx-trend-lab/internal/gold"
	"fx-trend-lab/internal/narration"
	"fx-trend-lab/internal/observability"
	"fx-trend-lab/internal/orchestrator"
)

// NewSource returns the payload source selected by cfg: a saved file when
// PayloadFile is set, the HTTP API otherwise.
func NewSource(cfg config.SourceConfig, logger zerolog.Logger) orchestrator.PayloadSource {
	if cfg.PayloadFile != "" {
		return exchangerate.FileSource{Path: cfg.PayloadFile}
	}
	return exchangerate.NewClient(cfg.APIKey,
		exchangerate.WithBaseURL(cfg.BaseURL),
		exchangerate.WithTimeout(cfg.Timeout),
		exchangerate.WithMaxRetries(cfg.MaxRetries),
		exchangerate.WithRetryDelay(cfg.RetryDelay),
		exchangerate.WithLogger(logger.With().Str("component", "exchangerate").Logger()),
	)
}

// NewGenerator returns the narration generator selected by cfg.
func NewGenerator(cfg config.NarrationConfig, logger zerolog.Logger) (narration.Generator, error) {
	switch p := cfg.ResolvedProvider(); p {
	case config.ProviderGemini:
		return narration.NewGeminiGenerator(cfg.APIKey,
			narration.WithGeminiBaseURL(cfg.BaseURL),
			narration.WithModel(cfg.Model),
			narration.WithGeminiTimeout(cfg.Timeout),
			narration.WithGeminiLogger(logger.With().Str("component", "gemini").Logger()),
		), nil
	case config.ProviderTemplate:
		return narration.TemplateGenerator{}, nil
	default:
		return nil, fmt.Errorf("unknown narration provider %q", p)
	}
}

// NewOrchestrator wires one pipeline cycle over stores.
func NewOrchestrator(cfg *config.Config, stores *Stores, logger zerolog.Logger, metrics *observability.Metrics) (*orchestrator.Orchestrator, error) {
	thresholds := cfg.Features.Thresholds.Thresholds()
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}

	publisher := gold.NewPublisher(stores.FeatureRows,
		gold.WithCSVPath(cfg.Output.CSVPath),
		gold.WithSnapshotCache(stores.Snapshot),
		gold.WithWatchList(cfg.WatchList),
		gold.WithMetrics(metrics),
		gold.WithLogger(logger),
	)

	var narrator *narration.Service
	if cfg.Narration.Enabled {
		gen, err := NewGenerator(cfg.Narration, logger)
		if err != nil {
			return nil, err
		}
		narrator = narration.NewService(stores.Insights, gen,
			narration.WithWatchList(cfg.WatchList),
			narration.WithMetrics(metrics),
			narration.WithLogger(logger),
		)
	}

	var archive *exchangerate.Archive
	if cfg.Output.RawDir != "" {
		archive = &exchangerate.Archive{Dir: cfg.Output.RawDir}
	}

	return orchestrator.New(orchestrator.Options{
		ObservationStore: stores.Observations,
		MetadataStore:    stores.Metadata,
		Source:           NewSource(cfg.Source, logger),
		Engine:           features.NewEngine(thresholds),
		Publisher:        publisher,
		Narrator:         narrator,
		Archive:          archive,
		BaseCurrency:     cfg.Source.BaseCurrency,
		MetadataPath:     cfg.Output.MetadataPath,
		Metrics:          metrics,
		Logger:           logger,
	}), nil
}
