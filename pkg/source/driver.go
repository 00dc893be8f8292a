package source

import "simtelemetry/pkg/model"

// Driver adapts one external telemetry channel. All methods are called from
// the ingestion goroutine only.
type Driver interface {
	// ID is the producer tag stamped on snapshots from this driver.
	ID() model.ProducerID
	// Name identifies the driver in logs and events.
	Name() string
	// Probe checks whether the channel exists and acquires it. It must
	// return within a few milliseconds and release whatever it acquired
	// before returning false.
	Probe() bool
	// Poll reads one frame. It returns false when the channel disappeared.
	Poll() (model.TelemetrySnapshot, bool)
	// Release tears the channel down. It must be idempotent and safe to
	// call on a driver that never connected.
	Release()
	// IsLive is a cheap liveness check, without I/O when possible.
	IsLive() bool
}

// ListDriver is implemented by drivers that also feed the relative and
// standings lists. Each method fills dst from the front and returns the
// number of entries written; ok is false when the driver has no list data
// for this frame. Returning n > len(dst) breaks the contract.
type ListDriver interface {
	RelativeCars(dst []model.RelativeCarEntry) (n int, ok bool)
	Standings(dst []model.StandingsEntry) (n int, ok bool)
}

// Sink receives everything the manager publishes.
type Sink interface {
	PublishTelemetry(s model.TelemetrySnapshot)
	PublishRelativeCars(entries []model.RelativeCarEntry) int
	PublishStandings(entries []model.StandingsEntry) int
}
