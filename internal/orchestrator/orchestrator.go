// Package orchestrator runs one ingestion-to-narration cycle.
// It coordinates: fetch → normalize → merge → features → metadata → publish → narrate
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fx-trend-lab/internal/domain"
	"fx-trend-lab/internal/exchangerate"
	"fx-trend-lab/internal/features"
	"fx-trend-lab/internal/gold"
	"fx-trend-lab/internal/ingestion"
	"fx-trend-lab/internal/narration"
	"fx-trend-lab/internal/observability"
	"fx-trend-lab/internal/storage"
)

// PayloadSource provides the latest rate payload.
// *exchangerate.Client and exchangerate.FileSource implement it.
type PayloadSource interface {
	FetchLatest(ctx context.Context, base string) (*exchangerate.LatestResponse, error)
}

// Orchestrator coordinates the pipeline execution.
type Orchestrator struct {
	// Stores
	observationStore storage.ObservationStore
	metadataStore    storage.CurrencyMetadataStore

	// Components
	source    PayloadSource
	engine    *features.Engine
	publisher *gold.Publisher
	narrator  *narration.Service
	archive   *exchangerate.Archive

	// Options
	baseCurrency string
	metadataPath string
	metrics      *observability.Metrics
	logger       zerolog.Logger
	now          func() time.Time
}

// Options for creating Orchestrator.
type Options struct {
	// Required stores
	ObservationStore storage.ObservationStore
	MetadataStore    storage.CurrencyMetadataStore

	// Required components
	Source    PayloadSource
	Engine    *features.Engine
	Publisher *gold.Publisher

	// Narrator is optional; nil skips narration.
	Narrator *narration.Service

	// Archive keeps the raw payload of each run; nil disables it.
	Archive *exchangerate.Archive

	// Options
	BaseCurrency string
	MetadataPath string // TSV used to seed an empty metadata store
	Metrics      *observability.Metrics
	Logger       zerolog.Logger
	Now          func() time.Time
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		observationStore: opts.ObservationStore,
		metadataStore:    opts.MetadataStore,
		source:           opts.Source,
		engine:           opts.Engine,
		publisher:        opts.Publisher,
		narrator:         opts.Narrator,
		archive:          opts.Archive,
		baseCurrency:     opts.BaseCurrency,
		metadataPath:     opts.MetadataPath,
		metrics:          opts.Metrics,
		logger:           opts.Logger.With().Str("component", "orchestrator").Logger(),
		now:              opts.Now,
	}
	if o.engine == nil {
		o.engine = features.NewEngine(features.DefaultThresholds())
	}
	if o.metrics == nil {
		o.metrics = observability.DefaultMetrics
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	RunID          string
	Day            time.Time // calendar day narrated
	Ingest         ingestion.IngestReport
	History        int // observations loaded from the store
	Observations   int // observations after merge
	FeatureRows    int
	MetadataSeeded int
	MetadataGaps   []string
	ArchivePath    string
	Publish        gold.PublishResult
	Insight        *domain.DailyInsight
	InsightCreated bool
	Errors         []string // non-fatal failures
	Duration       time.Duration
}

// Run executes one cycle.
// Phases:
//  1. Load currency metadata (seed from TSV if the store is empty)
//  2. Fetch the latest payload
//  3. Normalize (fatal on schema mismatch)
//  4. Load the observation history
//  5. Merge and validate ordering
//  6. Compute feature rows
//  7. Join metadata
//  8. Persist new observations and publish the gold table
//  9. Narrate the run day
//
// Errors in phases 1-8 abort the run; nothing is written before phase 8.
// A narration failure is recorded in RunResult.Errors.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{
		RunID: uuid.NewString(),
		Day:   domain.DayOf(o.now()),
	}
	log := o.logger.With().Str("run_id", result.RunID).Logger()

	res, err := o.run(ctx, log, result)
	result.Duration = time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
		log.Error().Err(err).Dur("duration", result.Duration).Msg("pipeline failed")
	} else {
		o.metrics.LastSuccessfulPipeline.SetToCurrentTime()
	}
	o.metrics.RecordPipelineRun("run", status, result.Duration.Seconds())

	return res, err
}

func (o *Orchestrator) run(ctx context.Context, log zerolog.Logger, result *RunResult) (*RunResult, error) {
	if o.source == nil {
		return nil, errors.New("orchestrator: no payload source configured")
	}

	// Phase 1: Metadata
	log.Info().Msg("phase 1: loading currency metadata")
	metadata, seed, err := o.loadMetadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("phase 1 (load metadata) failed: %w", err)
	}
	log.Info().Int("currencies", len(metadata)).Int("seed", len(seed)).Msg("metadata loaded")

	// Phase 2: Fetch
	log.Info().Str("base", o.baseCurrency).Msg("phase 2: fetching latest rates")
	fetchStart := time.Now()
	payload, err := o.source.FetchLatest(ctx, o.baseCurrency)
	o.metrics.FetchLatency.Observe(time.Since(fetchStart).Seconds())
	if err != nil {
		return nil, fmt.Errorf("phase 2 (fetch) failed: %w", err)
	}

	// Phase 3: Normalize
	log.Info().Msg("phase 3: normalizing payload")
	incoming, report, err := ingestion.Normalize(payload)
	if err != nil {
		return nil, fmt.Errorf("phase 3 (normalize) failed: %w", err)
	}
	for _, inv := range report.Invalid {
		log.Warn().Str("currency", inv.Currency).Str("raw", inv.Raw).Str("reason", inv.Reason).Msg("invalid rate excluded")
	}

	// Phase 4: History
	log.Info().Msg("phase 4: loading observation history")
	history, err := o.observationStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("phase 4 (load history) failed: %w", err)
	}
	result.History = len(history)

	// Phase 5: Merge
	log.Info().Msg("phase 5: merging batch into history")
	merged := ingestion.Merge(history, incoming)
	if err := ingestion.ValidateOrdering(merged.All); err != nil {
		return nil, fmt.Errorf("phase 5 (merge) failed: %w", err)
	}
	report.Duplicates = merged.Duplicates
	report.Added = len(merged.Added)
	result.Observations = len(merged.All)
	log.Info().
		Int("incoming", len(incoming)).
		Int("added", report.Added).
		Int("duplicates", report.Duplicates).
		Msg("batch merged")

	// Phase 6: Features
	log.Info().Msg("phase 6: computing features")
	rows, err := o.engine.Compute(merged.All)
	if err != nil {
		return nil, fmt.Errorf("phase 6 (features) failed: %w", err)
	}
	result.FeatureRows = len(rows)

	// Phase 7: Metadata join
	log.Info().Msg("phase 7: joining metadata")
	mergeReport := gold.MergeMetadata(rows, metadata)
	result.MetadataGaps = mergeReport.Gaps

	// Phase 8: Persist and publish
	log.Info().Msg("phase 8: persisting and publishing")
	if len(seed) > 0 {
		if err := o.metadataStore.UpsertBulk(ctx, seed); err != nil {
			return nil, fmt.Errorf("phase 8 (seed metadata) failed: %w", err)
		}
		result.MetadataSeeded = len(seed)
	}
	if len(merged.Added) > 0 {
		if err := o.observationStore.InsertBulk(ctx, merged.Added); err != nil {
			return nil, fmt.Errorf("phase 8 (persist observations) failed: %w", err)
		}
	}
	result.Ingest = report
	o.metrics.RecordIngest(report.Fetched, report.Accepted, report.Duplicates, report.Added, invalidReasons(report))

	if o.archive != nil {
		path, err := o.archive.Save(payload)
		if err != nil {
			log.Warn().Err(err).Msg("archive payload failed")
			result.Errors = append(result.Errors, fmt.Sprintf("archive: %v", err))
		} else {
			result.ArchivePath = path
		}
	}

	published, err := o.publisher.Publish(ctx, rows, mergeReport)
	if err != nil {
		return nil, fmt.Errorf("phase 8 (publish) failed: %w", err)
	}
	result.Publish = published

	// Phase 9: Narration
	if o.narrator != nil {
		log.Info().Time("day", result.Day).Msg("phase 9: narrating")
		insight, created, err := o.narrator.Generate(ctx, rows, result.Day)
		if err != nil {
			log.Error().Err(err).Msg("narration failed")
			result.Errors = append(result.Errors, fmt.Sprintf("narration: %v", err))
		} else {
			result.Insight = insight
			result.InsightCreated = created
		}
	} else {
		log.Info().Msg("phase 9: narration disabled")
	}

	log.Info().
		Int("observations", result.Observations).
		Int("feature_rows", result.FeatureRows).
		Int("metadata_gaps", len(result.MetadataGaps)).
		Bool("insight_created", result.InsightCreated).
		Msg("pipeline completed")

	return result, nil
}

// loadMetadata returns the metadata index and, when the store is empty and a
// seed file is configured, the seed items still to be persisted.
func (o *Orchestrator) loadMetadata(ctx context.Context) (map[string]*domain.CurrencyMetadata, []*domain.CurrencyMetadata, error) {
	items, err := o.metadataStore.GetAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(items) > 0 || o.metadataPath == "" {
		return gold.MetadataIndex(items), nil, nil
	}

	seed, err := gold.LoadMetadataTSV(o.metadataPath)
	if err != nil {
		return nil, nil, err
	}
	return gold.MetadataIndex(seed), seed, nil
}

func invalidReasons(r ingestion.IngestReport) []string {
	reasons := make([]string, 0, len(r.Invalid))
	for _, inv := range r.Invalid {
		reasons = append(reasons, inv.Reason)
	}
	return reasons
}
