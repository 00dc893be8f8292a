package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultPeriod is the 60 Hz reference cadence.
const DefaultPeriod = time.Second / 60

// Ticker is driven once per loop iteration.
type Ticker interface {
	Tick(now time.Time)
}

// Loop calls its target at a fixed cadence. The sleep after each tick is the
// period minus the time the tick took; a tick that overruns the period is
// followed immediately by the next one and skipped ticks are never replayed.
type Loop struct {
	target Ticker
	period time.Duration
	clock  Clock
	log    *slog.Logger
}

// NewLoop panics if period is not positive.
func NewLoop(target Ticker, period time.Duration, clock Clock, logger *slog.Logger) *Loop {
	if period <= 0 {
		panic(fmt.Sprintf("ingest: non-positive period %s", period))
	}
	if clock == nil {
		clock = RealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		target: target,
		period: period,
		clock:  clock,
		log:    logger.With("component", "ingest"),
	}
}

// Run ticks until ctx is done. Cancellation is observed at the top of every
// iteration and while sleeping; an in-flight Tick is never interrupted.
func (l *Loop) Run(ctx context.Context) {
	l.log.Info("ingestion loop started", "period", l.period)
	defer l.log.Info("ingestion loop stopped")

	for {
		if ctx.Err() != nil {
			return
		}

		start := l.clock.Now()
		l.target.Tick(start)
		elapsed := l.clock.Now().Sub(start)
		tickDuration.Observe(elapsed.Seconds())

		wait := l.period - elapsed
		if wait <= 0 {
			tickOverruns.Inc()
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-l.clock.After(wait):
		}
	}
}
