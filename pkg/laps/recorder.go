package laps

import (
	"context"
	"log/slog"
	"time"

	"simtelemetry/pkg/model"
	"simtelemetry/pkg/queues"
)

// TelemetryReader is the part of telemetry.Reader the recorder samples.
type TelemetryReader interface {
	ReadTelemetry() model.TelemetrySnapshot
}

// Recorder samples the published telemetry and saves a Lap each time the lap
// number advances. Sampling faster than a lap takes is enough; it does not
// need to see every frame.
type Recorder struct {
	reader   TelemetryReader
	store    *Store
	interval time.Duration
	now      func() time.Time
	log      *slog.Logger

	current  model.TelemetrySnapshot
	lapFuel  float64
	tracking bool

	// laps whose Save failed, retried oldest first on the next sample
	pending *queues.Queue[Lap]
}

func NewRecorder(reader TelemetryReader, store *Store, interval time.Duration, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Recorder{
		reader:   reader,
		store:    store,
		interval: interval,
		now:      time.Now,
		log:      logger.With("component", "lap-recorder"),
		pending:  queues.NewQueue[Lap](),
	}
}

// Run samples until ctx is done.
func (r *Recorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.Sample(ctx); err != nil {
				r.log.Error("error saving lap", "error", err)
			}
		}
	}
}

// Sample reads the telemetry once. It returns the lap saved, if any. A lap
// that cannot be saved is kept and retried before the next one.
func (r *Recorder) Sample(ctx context.Context) (*Lap, error) {
	r.flush(ctx)
	s := r.reader.ReadTelemetry()
	if s.Producer == model.ProducerUnknown || s.LapNumber <= 0 {
		r.tracking = false
		return nil, nil
	}
	if !r.tracking || s.Producer != r.current.Producer || s.LapNumber < r.current.LapNumber {
		r.start(s)
		return nil, nil
	}
	if s.LapNumber == r.current.LapNumber {
		r.current = s
		return nil, nil
	}

	prev, startFuel := r.current, r.lapFuel
	r.start(s)
	if s.LastLapTime <= 0 {
		return nil, nil
	}
	lap := Lap{
		Producer:   s.Producer,
		Lap:        prev.LapNumber,
		LapTime:    s.LastLapTime,
		FuelUsed:   startFuel - s.FuelLevel,
		Position:   s.Position,
		RecordedAt: r.now(),
	}
	// fuel taken on board during the lap
	if lap.FuelUsed < 0 {
		lap.FuelUsed = 0
	}
	if !r.pending.IsEmpty() {
		r.pending.Push(lap)
		return nil, nil
	}
	if err := r.save(ctx, &lap); err != nil {
		r.pending.Push(lap)
		return nil, err
	}
	return &lap, nil
}

// Pending is the number of laps waiting to be saved.
func (r *Recorder) Pending() int {
	return r.pending.Len()
}

func (r *Recorder) flush(ctx context.Context) {
	for !r.pending.IsEmpty() {
		lap := r.pending.Peek()
		if err := r.save(ctx, &lap); err != nil {
			r.log.Debug("lap still pending", "lap", lap.Lap, "pending", r.pending.Len(), "error", err)
			return
		}
		r.pending.Pop()
	}
}

func (r *Recorder) save(ctx context.Context, lap *Lap) error {
	id, err := r.store.Save(ctx, *lap)
	if err != nil {
		return err
	}
	lap.ID = id
	r.log.Info("lap recorded", "producer", lap.Producer, "lap", lap.Lap, "time", lap.LapTime)
	return nil
}

func (r *Recorder) start(s model.TelemetrySnapshot) {
	r.current = s
	r.lapFuel = s.FuelLevel
	r.tracking = true
}
