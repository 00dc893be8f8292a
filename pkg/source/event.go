package source

import (
	"fmt"
	"time"

	"simtelemetry/pkg/model"
)

// EventsTopic is the pubsub topic carrying Event values.
const EventsTopic = "source-events"

type EventKind int

const (
	// EventBound: the manager left Idle and bound a driver.
	EventBound EventKind = iota
	// EventFailover: the bound driver was lost and another one took over.
	EventFailover
	// EventLost: the bound driver was lost and nothing replaced it.
	EventLost
	// EventClosed: the manager released its driver on shutdown.
	EventClosed
)

func (k EventKind) String() string {
	switch k {
	case EventBound:
		return "bound"
	case EventFailover:
		return "failover"
	case EventLost:
		return "lost"
	case EventClosed:
		return "closed"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event describes one transition of the manager's state.
type Event struct {
	Kind EventKind        `json:"kind"`
	From string           `json:"from,omitempty"`
	To   string           `json:"to,omitempty"`
	Prod model.ProducerID `json:"producer"`
	At   time.Time        `json:"at"`
}

func (e Event) String() string {
	switch e.Kind {
	case EventBound:
		return fmt.Sprintf("telemetry source %s connected", e.To)
	case EventFailover:
		return fmt.Sprintf("telemetry source switched from %s to %s", e.From, e.To)
	case EventLost:
		return fmt.Sprintf("telemetry source %s lost, waiting for a simulator", e.From)
	case EventClosed:
		return fmt.Sprintf("telemetry source %s released on shutdown", e.From)
	}
	return e.Kind.String()
}
