package narration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fx-trend-lab/internal/domain"
	"fx-trend-lab/internal/observability"
	"fx-trend-lab/internal/storage"
)

// Service generates and stores one insight per calendar day.
type Service struct {
	store     storage.InsightStore
	gen       Generator
	watchList []string
	metrics   *observability.Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithWatchList sets the summarized currencies.
func WithWatchList(currencies []string) ServiceOption {
	return func(s *Service) {
		s.watchList = append([]string(nil), currencies...)
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// WithClock sets the time source for CreatedAt.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a narration service.
func NewService(store storage.InsightStore, gen Generator, opts ...ServiceOption) *Service {
	s := &Service{
		store:     store,
		gen:       gen,
		watchList: DefaultWatchList,
		metrics:   observability.DefaultMetrics,
		logger:    zerolog.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "narration").Str("generator", gen.Name()).Logger()
	return s
}

// Generate returns the insight of day, creating it if absent.
// created is false when an insight for the day already existed; the
// generator is not called in that case.
func (s *Service) Generate(ctx context.Context, rows []*domain.FeatureRow, day time.Time) (*domain.DailyInsight, bool, error) {
	day = domain.DayOf(day)
	log := s.logger.With().Str("date", day.Format("2006-01-02")).Logger()

	existing, err := s.store.GetByDate(ctx, day)
	if err == nil {
		log.Info().Msg("insight already exists, skipping")
		s.metrics.RecordInsight("exists")
		return existing, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		s.metrics.RecordInsight("error")
		return nil, false, fmt.Errorf("lookup insight: %w", err)
	}

	selected, err := SelectDay(rows, s.watchList, day)
	if err != nil {
		s.metrics.RecordInsight("error")
		return nil, false, err
	}

	lines := make([]string, 0, len(selected))
	for _, r := range selected {
		lines = append(lines, FormatLine(r))
	}

	start := time.Now()
	text, err := s.gen.Generate(ctx, Request{
		Day:    day,
		Lines:  lines,
		Prompt: BuildPrompt(day, lines),
	})
	s.metrics.RecordGeneration(s.gen.Name(), time.Since(start).Seconds())
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyResponse
	}
	if err != nil {
		s.metrics.RecordInsight("error")
		return nil, false, fmt.Errorf("generate insight: %w", err)
	}

	insight := &domain.DailyInsight{
		Date:          day,
		Text:          strings.TrimSpace(text),
		PromptVersion: PromptVersion,
		Currencies:    currenciesOf(selected),
		CreatedAt:     s.now().UTC(),
	}

	if err := s.store.Insert(ctx, insight); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			log.Info().Msg("insight inserted concurrently, skipping")
			s.metrics.RecordInsight("exists")
			stored, getErr := s.store.GetByDate(ctx, day)
			if getErr != nil {
				return nil, false, fmt.Errorf("lookup insight: %w", getErr)
			}
			return stored, false, nil
		}
		s.metrics.RecordInsight("error")
		return nil, false, fmt.Errorf("store insight: %w", err)
	}

	log.Info().
		Int("currencies", len(insight.Currencies)).
		Int("chars", len(insight.Text)).
		Msg("insight created")
	s.metrics.RecordInsight("created")
	return insight, true, nil
}
