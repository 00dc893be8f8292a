package laps

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"simtelemetry/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedReader struct {
	frames []model.TelemetrySnapshot
	next   int
}

func (r *scriptedReader) ReadTelemetry() model.TelemetrySnapshot {
	s := r.frames[r.next]
	if r.next < len(r.frames)-1 {
		r.next++
	}
	return s
}

func frame(lap int32, fuel, last float64) model.TelemetrySnapshot {
	return model.TelemetrySnapshot{Producer: model.ProducerMock, LapNumber: lap, FuelLevel: fuel, LastLapTime: last, Position: 3}
}

func sampleAll(t *testing.T, r *Recorder, n int) []Lap {
	t.Helper()
	var saved []Lap
	for i := 0; i < n; i++ {
		lap, err := r.Sample(context.Background())
		require.NoError(t, err)
		if lap != nil {
			saved = append(saved, *lap)
		}
	}
	return saved
}

func newTestRecorder(t *testing.T, frames ...model.TelemetrySnapshot) *Recorder {
	r := NewRecorder(&scriptedReader{frames: frames}, openTestStore(t), time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.now = func() time.Time { return time.Date(2024, 6, 15, 16, 0, 0, 0, time.UTC) }
	return r
}

func TestRecorderSavesCompletedLaps(t *testing.T) {
	r := newTestRecorder(t,
		frame(1, 50, 0),
		frame(1, 49.8, 0),
		frame(2, 49.5, 92.4),
		frame(2, 49.3, 92.4),
		frame(3, 49.0, 91.7),
	)

	saved := sampleAll(t, r, 5)

	require.Len(t, saved, 2)
	assert.Equal(t, int32(1), saved[0].Lap)
	assert.Equal(t, 92.4, saved[0].LapTime)
	assert.InDelta(t, 0.5, saved[0].FuelUsed, 1e-9)
	assert.Equal(t, int32(2), saved[1].Lap)
	assert.InDelta(t, 0.5, saved[1].FuelUsed, 1e-9)
	assert.NotZero(t, saved[1].ID)

	best, err := r.store.BestLaps(context.Background(), model.ProducerMock, 1)
	require.NoError(t, err)
	assert.Equal(t, 91.7, best[0].LapTime)
}

func TestRecorderIgnoresUnknownAndProducerChange(t *testing.T) {
	other := frame(6, 30, 80)
	other.Producer = model.ProducerLMU
	r := newTestRecorder(t,
		model.TelemetrySnapshot{LapNumber: 4},
		frame(4, 40, 90),
		other,
		frame(7, 20, 90),
	)

	assert.Empty(t, sampleAll(t, r, 4))
}

func TestRecorderRefuelIsNotNegative(t *testing.T) {
	r := newTestRecorder(t, frame(1, 10, 0), frame(2, 50, 95))

	saved := sampleAll(t, r, 2)

	require.Len(t, saved, 1)
	assert.Zero(t, saved[0].FuelUsed)
}

func TestRecorderRunStopsOnCancel(t *testing.T) {
	r := newTestRecorder(t, frame(1, 50, 0))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("recorder did not stop")
	}
}

func TestRecorderRetriesFailedSaves(t *testing.T) {
	r := newTestRecorder(t,
		frame(1, 50, 0),
		frame(2, 49.5, 92.4),
		frame(3, 49.0, 91.7),
	)
	good := r.store
	broken, err := Open(filepath.Join(t.TempDir(), "broken.db"))
	require.NoError(t, err)
	require.NoError(t, broken.Close())

	r.store = broken
	_, err = r.Sample(context.Background())
	require.NoError(t, err)
	_, err = r.Sample(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, r.Pending())

	r.store = good
	lap, err := r.Sample(context.Background())
	require.NoError(t, err)
	require.NotNil(t, lap)
	assert.Equal(t, int32(2), lap.Lap)
	assert.Zero(t, r.Pending())

	recent, err := good.RecentLaps(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}
