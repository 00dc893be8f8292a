package source

import (
	"log/slog"
	"sync/atomic"
	"time"

	"simtelemetry/pkg/model"
	"simtelemetry/pkg/pubsub"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

const unbound = -1

// Options tunes a Manager.
type Options struct {
	// IdleProbeInterval limits how often drivers are probed while nothing
	// is bound. Zero probes on every tick.
	IdleProbeInterval time.Duration
	Logger            *slog.Logger
	// Events receives an Event on every state transition. Optional.
	Events *pubsub.PubSub[Event]
}

// Status is the manager state as seen from other goroutines.
type Status struct {
	Bound    bool             `json:"bound"`
	Driver   string           `json:"driver,omitempty"`
	Producer model.ProducerID `json:"producer"`
}

// Manager decides which driver is authoritative and drives it once per tick.
//
// The manager is either Idle or Bound to one driver. Drivers are tried in the
// order they were registered. A lost driver is only released after its
// replacement probed successfully, and every successful probe is matched by
// exactly one Release.
//
// Tick and Close must be called from a single goroutine; Status is safe from
// any goroutine.
type Manager struct {
	drivers []Driver
	names   []string
	ids     []model.ProducerID
	frames  []prometheus.Counter

	sink   Sink
	log    *slog.Logger
	events *pubsub.PubSub[Event]
	idle   *rate.Limiter

	bound  int
	lists  ListDriver
	active atomic.Int32

	relative  [model.RelativeCapacity]model.RelativeCarEntry
	standings [model.StandingsCapacity]model.StandingsEntry
}

func NewManager(sink Sink, drivers []Driver, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		drivers: drivers,
		names:   make([]string, len(drivers)),
		ids:     make([]model.ProducerID, len(drivers)),
		frames:  make([]prometheus.Counter, len(drivers)),
		sink:    sink,
		log:     logger.With("component", "source-manager"),
		events:  opts.Events,
		bound:   unbound,
	}
	for i, d := range drivers {
		m.names[i] = d.Name()
		m.ids[i] = d.ID()
		m.frames[i] = framesTotal.WithLabelValues(d.ID().String())
	}
	if opts.IdleProbeInterval > 0 {
		m.idle = rate.NewLimiter(rate.Every(opts.IdleProbeInterval), 1)
	}
	m.active.Store(unbound)
	return m
}

// Tick runs one step of the state machine.
func (m *Manager) Tick(now time.Time) {
	if m.bound == unbound {
		if m.idle != nil && !m.idle.AllowN(now, 1) {
			return
		}
		if next := m.probe(unbound); next != unbound {
			m.bind(next)
			m.log.Info("telemetry source bound", "driver", m.names[next], "producer", m.ids[next])
			m.emit(Event{Kind: EventBound, To: m.names[next], Prod: m.ids[next], At: now})
		}
		return
	}

	d := m.drivers[m.bound]
	if d.IsLive() {
		if snap, ok := d.Poll(); ok {
			m.publish(snap)
			return
		}
	}
	m.failover(now)
}

// Close releases the bound driver, if any, and returns to Idle.
func (m *Manager) Close() {
	if m.bound == unbound {
		return
	}
	lost := m.bound
	m.unbind()
	m.drivers[lost].Release()
	m.log.Info("telemetry source released", "driver", m.names[lost])
	m.emit(Event{Kind: EventClosed, From: m.names[lost], Prod: m.ids[lost], At: time.Now()})
}

// Status reports the bound driver.
func (m *Manager) Status() Status {
	i := int(m.active.Load())
	if i == unbound {
		return Status{}
	}
	return Status{Bound: true, Driver: m.names[i], Producer: m.ids[i]}
}

func (m *Manager) failover(now time.Time) {
	lost := m.bound
	if next := m.probe(lost); next != unbound {
		m.bind(next)
		m.drivers[lost].Release()
		m.log.Warn("telemetry source failed over", "from", m.names[lost], "to", m.names[next])
		m.emit(Event{Kind: EventFailover, From: m.names[lost], To: m.names[next], Prod: m.ids[next], At: now})
		return
	}
	m.unbind()
	m.drivers[lost].Release()
	m.log.Warn("telemetry source lost", "driver", m.names[lost])
	m.emit(Event{Kind: EventLost, From: m.names[lost], Prod: model.ProducerUnknown, At: now})
}

// probe returns the first driver in priority order, other than skip, whose
// Probe succeeds.
func (m *Manager) probe(skip int) int {
	for i, d := range m.drivers {
		if i == skip {
			continue
		}
		if d.Probe() {
			return i
		}
	}
	return unbound
}

func (m *Manager) bind(i int) {
	m.bound = i
	m.lists, _ = m.drivers[i].(ListDriver)
	m.active.Store(int32(i))
	activeProducer.Set(float64(m.ids[i]))
}

func (m *Manager) unbind() {
	m.bound = unbound
	m.lists = nil
	m.active.Store(unbound)
	activeProducer.Set(0)
}

func (m *Manager) publish(snap model.TelemetrySnapshot) {
	snap.Producer = m.ids[m.bound]
	m.sink.PublishTelemetry(snap)
	m.frames[m.bound].Inc()

	if m.lists == nil {
		return
	}
	if n, ok := m.lists.RelativeCars(m.relative[:]); ok {
		m.sink.PublishRelativeCars(m.relative[:m.checkCount(n, len(m.relative), "relative")])
	}
	if n, ok := m.lists.Standings(m.standings[:]); ok {
		m.sink.PublishStandings(m.standings[:m.checkCount(n, len(m.standings), "standings")])
	}
}

func (m *Manager) checkCount(n, capacity int, list string) int {
	if n > capacity {
		contractViolationsTotal.WithLabelValues(m.names[m.bound], list).Inc()
		m.log.Error("driver reported more list entries than fit",
			"driver", m.names[m.bound], "list", list, "count", n, "capacity", capacity)
		return capacity
	}
	return max(n, 0)
}

func (m *Manager) emit(e Event) {
	transitionsTotal.WithLabelValues(e.Kind.String()).Inc()
	if m.events != nil {
		m.events.Publish(EventsTopic, e)
	}
}
