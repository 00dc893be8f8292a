package laps

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"simtelemetry/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "laps.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBestLapsOrderedAndFiltered(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	at := time.Date(2024, 6, 15, 16, 0, 0, 0, time.UTC)
	for i, l := range []Lap{
		{Producer: model.ProducerLMU, Lap: 1, LapTime: 95.2},
		{Producer: model.ProducerLMU, Lap: 2, LapTime: 93.8},
		{Producer: model.ProducerIRacing, Lap: 1, LapTime: 91.1},
		{Producer: model.ProducerLMU, Lap: 3, LapTime: 94.0},
	} {
		l.RecordedAt = at.Add(time.Duration(i) * time.Minute)
		_, err := s.Save(ctx, l)
		require.NoError(t, err)
	}

	best, err := s.BestLaps(ctx, model.ProducerLMU, 2)
	require.NoError(t, err)
	require.Len(t, best, 2)
	assert.Equal(t, 93.8, best[0].LapTime)
	assert.Equal(t, int32(2), best[0].Lap)
	assert.Equal(t, 94.0, best[1].LapTime)
	assert.Equal(t, model.ProducerLMU, best[1].Producer)
	assert.True(t, at.Add(3*time.Minute).Equal(best[1].RecordedAt))

	all, err := s.BestLaps(ctx, model.ProducerUnknown, 10)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, model.ProducerIRacing, all[0].Producer)

	recent, err := s.RecentLaps(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, int32(3), recent[0].Lap)
}

func TestBestLapsForProducerWithoutLaps(t *testing.T) {
	s := openTestStore(t)
	laps, err := s.BestLaps(context.Background(), model.ProducerID(200), 5)
	require.NoError(t, err)
	assert.Empty(t, laps)
}

func TestOpenFailsOnDirectory(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.Error(t, err)
}
