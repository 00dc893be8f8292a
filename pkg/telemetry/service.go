package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"simtelemetry/pkg/ingest"
	"simtelemetry/pkg/pubsub"
	"simtelemetry/pkg/source"
)

// ServiceOptions configures a Service. Zero values select the defaults.
type ServiceOptions struct {
	Period            time.Duration
	IdleProbeInterval time.Duration
	Clock             ingest.Clock
	Logger            *slog.Logger
	Events            *pubsub.PubSub[source.Event]
}

// Service owns the ingestion goroutine, the source manager and the drivers
// registered with it.
type Service struct {
	hub     *Hub
	manager *source.Manager
	loop    *ingest.Loop
	log     *slog.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewService registers drivers in priority order against hub.
func NewService(hub *Hub, drivers []source.Driver, opts ServiceOptions) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	period := opts.Period
	if period <= 0 {
		period = ingest.DefaultPeriod
	}
	manager := source.NewManager(hub, drivers, source.Options{
		IdleProbeInterval: opts.IdleProbeInterval,
		Logger:            logger,
		Events:            opts.Events,
	})
	return &Service{
		hub:     hub,
		manager: manager,
		loop:    ingest.NewLoop(manager, period, opts.Clock, logger),
		log:     logger.With("component", "telemetry-service"),
		done:    make(chan struct{}),
	}
}

// Start spawns the ingestion goroutine. Calls after the first are no-ops,
// including calls after Stop.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	go func() {
		defer close(s.done)
		// drivers are owned by this goroutine, release them here as well
		defer s.manager.Close()
		s.loop.Run(ctx)
	}()
}

// Stop cancels the ingestion goroutine and waits for it. When Stop returns
// every driver handle has been released. Safe to call more than once and
// without a prior Start.
func (s *Service) Stop() {
	s.mu.Lock()
	s.started = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-s.done
}

// Run starts the service and blocks until ctx is done, then stops it.
func (s *Service) Run(ctx context.Context) error {
	s.Start(ctx)
	<-ctx.Done()
	s.Stop()
	return nil
}

func (s *Service) Hub() *Hub {
	return s.hub
}

// Status reports the bound source.
func (s *Service) Status() source.Status {
	return s.manager.Status()
}
