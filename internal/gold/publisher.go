package gold

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"fx-trend-lab/internal/domain"
	"fx-trend-lab/internal/observability"
	"fx-trend-lab/internal/snapshot"
	"fx-trend-lab/internal/storage"
)

// PublishResult describes one publication.
type PublishResult struct {
	Rows     int
	CSVPath  string           // empty when no export was written
	Snapshot *domain.Snapshot // nil when no watched row exists
}

// Publisher writes the gold table to its destinations.
type Publisher struct {
	store     storage.FeatureRowStore
	cache     snapshot.Cache
	csvPath   string
	watchList []string
	metrics   *observability.Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithCSVPath sets the CSV export path. Empty disables the export.
func WithCSVPath(path string) PublisherOption {
	return func(p *Publisher) {
		p.csvPath = path
	}
}

// WithSnapshotCache sets the cache receiving the latest snapshot.
func WithSnapshotCache(c snapshot.Cache) PublisherOption {
	return func(p *Publisher) {
		p.cache = c
	}
}

// WithWatchList restricts the snapshot to the given currencies.
func WithWatchList(currencies []string) PublisherOption {
	return func(p *Publisher) {
		p.watchList = append([]string(nil), currencies...)
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) PublisherOption {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = l
	}
}

// WithClock sets the time source used for snapshot generation time.
func WithClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) {
		p.now = now
	}
}

// NewPublisher creates a publisher writing to store.
func NewPublisher(store storage.FeatureRowStore, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		store:   store,
		metrics: observability.DefaultMetrics,
		logger:  zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With().Str("component", "gold").Logger()
	return p
}

// Publish replaces the stored gold table with rows, exports the CSV and
// refreshes the snapshot cache. Metadata gaps are logged once.
// A failed cache write is logged and does not fail the publication.
func (p *Publisher) Publish(ctx context.Context, rows []*domain.FeatureRow, report MergeReport) (PublishResult, error) {
	if len(report.Gaps) > 0 {
		p.logger.Warn().
			Strs("currencies", report.Gaps).
			Int("count", len(report.Gaps)).
			Msg("currencies without metadata")
		p.metrics.RecordMetadataGaps(len(report.Gaps))
	}

	if err := p.store.ReplaceAll(ctx, rows); err != nil {
		return PublishResult{}, fmt.Errorf("replace gold table: %w", err)
	}
	p.metrics.FeatureRowsPublished.Set(float64(len(rows)))

	result := PublishResult{Rows: len(rows)}

	if p.csvPath != "" {
		if err := WriteCSV(p.csvPath, rows); err != nil {
			return result, err
		}
		result.CSVPath = p.csvPath
	}

	result.Snapshot = snapshot.Build(rows, p.watchList, p.now())
	if p.cache != nil {
		p.refreshSnapshot(ctx, result.Snapshot)
	}

	p.logger.Info().
		Int("rows", result.Rows).
		Str("csv", result.CSVPath).
		Msg("gold table published")

	return result, nil
}

// refreshSnapshot replaces the cached snapshot. A run without watch-list rows
// clears the cache so readers do not see the previous run's snapshot.
func (p *Publisher) refreshSnapshot(ctx context.Context, snap *domain.Snapshot) {
	if snap == nil {
		err := p.cache.Clear(ctx)
		p.metrics.RecordSnapshotWrite(err)
		if err != nil {
			p.logger.Warn().Err(err).Msg("snapshot cache clear failed")
			return
		}
		p.logger.Warn().Strs("watch_list", p.watchList).Msg("no watch-list rows, snapshot cleared")
		return
	}

	err := p.cache.Set(ctx, snap)
	p.metrics.RecordSnapshotWrite(err)
	if err != nil {
		p.logger.Warn().Err(err).Msg("snapshot cache write failed")
	}
}
