package ingestion

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fx-trend-lab/internal/domain"
	"fx-trend-lab/internal/exchangerate"
	"fx-trend-lab/internal/storage/memory"
)

func archiveDay(t *testing.T, a exchangerate.Archive, day int, rates map[string]string) {
	t.Helper()
	conv := make(map[string]json.RawMessage, len(rates))
	for code, v := range rates {
		conv[code] = json.RawMessage(v)
	}
	_, err := a.Save(&exchangerate.LatestResponse{
		Result:             exchangerate.ResultSuccess,
		BaseCode:           "BRL",
		TimeLastUpdateUnix: t0.AddDate(0, 0, day).Unix(),
		ConversionRates:    conv,
	})
	require.NoError(t, err)
}

func TestBackfiller_LoadsArchiveInDayOrder(t *testing.T) {
	a := exchangerate.Archive{Dir: t.TempDir()}
	archiveDay(t, a, 1, map[string]string{"USD": "0.21", "EUR": "0.19"})
	archiveDay(t, a, 0, map[string]string{"USD": "0.20", "EUR": "0.18", "BAD": "-1"})
	require.NoError(t, os.WriteFile(filepath.Join(a.Dir, "2000-01-01.json"), []byte("{"), 0o644))

	store := memory.NewObservationStore()
	b := NewBackfiller(BackfillOptions{Store: store, BatchSize: 3, Logger: zerolog.Nop()})

	res, err := b.BackfillDir(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, 2, res.FilesRead)
	assert.Equal(t, 1, res.FilesFailed)
	assert.Equal(t, 5, res.Fetched)
	assert.Equal(t, 1, res.Invalid)
	assert.Equal(t, 4, res.Stored)
	assert.Zero(t, res.Errors)

	all, err := store.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "EUR", all[0].Currency)
	assert.Equal(t, t0, all[0].Timestamp)
	assert.Equal(t, 0.2, all[2].Rate)
	require.NoError(t, ValidateOrdering(all))
}

func TestBackfiller_Idempotent(t *testing.T) {
	a := exchangerate.Archive{Dir: t.TempDir()}
	archiveDay(t, a, 0, map[string]string{"USD": "0.20"})

	store := memory.NewObservationStore()
	require.NoError(t, store.InsertBulk(context.Background(), []*domain.Observation{obsAt("USD", 0, 0.25)}))

	b := NewBackfiller(BackfillOptions{Store: store, Logger: zerolog.Nop()})
	res, err := b.BackfillDir(context.Background(), a)
	require.NoError(t, err)
	assert.Zero(t, res.Stored)
	assert.Equal(t, 1, res.DuplicatesSkipped)

	all, err := store.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 0.25, all[0].Rate, "persisted row must not be replaced")
}

// racingStore inserts a competing row before the first bulk insert.
type racingStore struct {
	*memory.ObservationStore
	once  sync.Once
	raced *domain.Observation
}

func (s *racingStore) InsertBulk(ctx context.Context, obs []*domain.Observation) error {
	s.once.Do(func() {
		_ = s.ObservationStore.InsertBulk(ctx, []*domain.Observation{s.raced})
	})
	return s.ObservationStore.InsertBulk(ctx, obs)
}

func TestBackfiller_FallsBackToSingleInserts(t *testing.T) {
	a := exchangerate.Archive{Dir: t.TempDir()}
	archiveDay(t, a, 0, map[string]string{"USD": "0.20", "EUR": "0.18"})

	store := &racingStore{ObservationStore: memory.NewObservationStore(), raced: obsAt("USD", 0, 0.3)}
	b := NewBackfiller(BackfillOptions{Store: store, Logger: zerolog.Nop()})

	res, err := b.BackfillDir(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stored)
	assert.Equal(t, 1, res.DuplicatesSkipped)
	assert.Zero(t, res.Errors)
}

func TestBackfiller_EmptyArchive(t *testing.T) {
	b := NewBackfiller(BackfillOptions{Store: memory.NewObservationStore(), Logger: zerolog.Nop()})

	res, err := b.BackfillDir(context.Background(), exchangerate.Archive{Dir: filepath.Join(t.TempDir(), "none")})
	require.NoError(t, err)
	assert.Zero(t, res.FilesRead)
	assert.Zero(t, res.Stored)
}

func TestBackfiller_Canceled(t *testing.T) {
	a := exchangerate.Archive{Dir: t.TempDir()}
	archiveDay(t, a, 0, map[string]string{"USD": "0.20"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewBackfiller(BackfillOptions{Store: memory.NewObservationStore(), Logger: zerolog.Nop()})
	_, err := b.BackfillDir(ctx, a)
	assert.ErrorIs(t, err, context.Canceled)
}
