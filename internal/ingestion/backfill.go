package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"fx-trend-lab/internal/domain"
	"fx-trend-lab/internal/exchangerate"
	"fx-trend-lab/internal/storage"
)

// Backfiller loads archived payloads into the observation history.
type Backfiller struct {
	store     storage.ObservationStore
	batchSize int
	logger    zerolog.Logger
}

// BackfillOptions contains configuration for creating a Backfiller.
type BackfillOptions struct {
	Store     storage.ObservationStore
	BatchSize int
	Logger    zerolog.Logger
}

// NewBackfiller creates a new historical data backfiller.
func NewBackfiller(opts BackfillOptions) *Backfiller {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}

	return &Backfiller{
		store:     opts.Store,
		batchSize: batchSize,
		logger:    opts.Logger.With().Str("component", "backfill").Logger(),
	}
}

// BackfillResult contains statistics from a backfill operation.
type BackfillResult struct {
	FilesRead         int
	FilesFailed       int
	Fetched           int
	Invalid           int
	Stored            int
	DuplicatesSkipped int
	Errors            int
	Duration          time.Duration
}

// BackfillDir loads every payload of archive in day order.
func (b *Backfiller) BackfillDir(ctx context.Context, archive exchangerate.Archive) (*BackfillResult, error) {
	files, err := archive.Files()
	if err != nil {
		return nil, err
	}
	return b.BackfillFiles(ctx, files)
}

// BackfillFiles normalizes each payload file and appends the observations
// the store does not hold yet. Unreadable or malformed files are counted and
// skipped; the first-seen row wins on a repeated (currency, timestamp).
func (b *Backfiller) BackfillFiles(ctx context.Context, files []string) (*BackfillResult, error) {
	start := time.Now()
	result := &BackfillResult{}

	b.logger.Info().Int("files", len(files)).Msg("starting backfill")

	var incoming []*domain.Observation
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		payload, err := exchangerate.FileSource{Path: path}.FetchLatest(ctx, "")
		if err != nil {
			result.FilesFailed++
			b.logger.Warn().Err(err).Str("file", path).Msg("skipping unreadable payload")
			continue
		}
		obs, report, err := Normalize(payload)
		if err != nil {
			result.FilesFailed++
			b.logger.Warn().Err(err).Str("file", path).Msg("skipping malformed payload")
			continue
		}

		result.FilesRead++
		result.Fetched += report.Fetched
		result.Invalid += len(report.Invalid)
		incoming = append(incoming, obs...)
	}

	history, err := b.store.GetAll(ctx)
	if err != nil {
		return result, fmt.Errorf("load history: %w", err)
	}

	merged := Merge(history, incoming)
	if err := ValidateOrdering(merged.All); err != nil {
		return result, err
	}
	result.DuplicatesSkipped = merged.Duplicates

	stored, dupes, errs := b.storeObservations(ctx, merged.Added)
	result.Stored += stored
	result.DuplicatesSkipped += dupes
	result.Errors += errs

	result.Duration = time.Since(start)
	b.logger.Info().
		Int("files_read", result.FilesRead).
		Int("files_failed", result.FilesFailed).
		Int("stored", result.Stored).
		Int("duplicates", result.DuplicatesSkipped).
		Int("errors", result.Errors).
		Dur("duration", result.Duration).
		Msg("backfill complete")

	return result, nil
}

// storeObservations stores observations in batches, handling duplicates.
func (b *Backfiller) storeObservations(ctx context.Context, obs []*domain.Observation) (stored, dupes, errs int) {
	for i := 0; i < len(obs); i += b.batchSize {
		end := min(i+b.batchSize, len(obs))

		batch := obs[i:end]
		err := b.store.InsertBulk(ctx, batch)
		if err == nil {
			stored += len(batch)
			continue
		}
		if !errors.Is(err, storage.ErrDuplicateKey) {
			errs += len(batch)
			b.logger.Error().Err(err).Int("batch", len(batch)).Msg("error storing batch")
			continue
		}

		// Another writer got there first: insert one by one to find which.
		for _, o := range batch {
			if err := b.store.InsertBulk(ctx, []*domain.Observation{o}); err != nil {
				if errors.Is(err, storage.ErrDuplicateKey) {
					dupes++
				} else {
					errs++
				}
			} else {
				stored++
			}
		}
	}

	return stored, dupes, errs
}
