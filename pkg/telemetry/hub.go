// Package telemetry ties the snapshot cells to the source manager and the
// ingestion loop. Hub holds the published series; Service runs the writer.
package telemetry

import (
	"time"

	"simtelemetry/pkg/model"
	"simtelemetry/pkg/snapshot"
)

// Reader is the read side of a Hub. Every method is non-blocking and may be
// called from any number of goroutines.
type Reader interface {
	ReadTelemetry() model.TelemetrySnapshot
	ReadRelativeCars() []model.RelativeCarEntry
	ReadRelativeCarsInto(dst []model.RelativeCarEntry) int
	ReadStandings() []model.StandingsEntry
	ReadStandingsInto(dst []model.StandingsEntry) int
	// TelemetryAge reports how long ago the current snapshot was published.
	// ok is false before the first publish.
	TelemetryAge() (age time.Duration, ok bool)
	TelemetryVersion() uint64
}

// DefaultTelemetry is the snapshot readers see before any source published.
func DefaultTelemetry() model.TelemetrySnapshot {
	return model.TelemetrySnapshot{
		MaxRPM:       8000,
		FuelCapacity: 50,
		FuelPerLap:   0.5,
		TotalCars:    1,
	}
}

// Hub owns the three published series. Publishing is single-writer; the
// source manager is that writer.
type Hub struct {
	epoch     time.Time
	telemetry *snapshot.Cell[model.TelemetrySnapshot]
	relative  *snapshot.BoundedList[model.RelativeCarEntry]
	standings *snapshot.BoundedList[model.StandingsEntry]
}

func NewHub() *Hub {
	return &Hub{
		epoch:     time.Now(),
		telemetry: snapshot.NewCell(DefaultTelemetry()),
		relative:  snapshot.NewBoundedList[model.RelativeCarEntry](model.RelativeCapacity),
		standings: snapshot.NewBoundedList[model.StandingsEntry](model.StandingsCapacity),
	}
}

// PublishTelemetry stamps PublishedAt with the monotonic time since the hub
// was created and publishes the snapshot.
func (h *Hub) PublishTelemetry(s model.TelemetrySnapshot) {
	s.PublishedAt = int64(time.Since(h.epoch))
	h.telemetry.Publish(s)
	publishesTotal.WithLabelValues(seriesTelemetry).Inc()
}

func (h *Hub) PublishRelativeCars(entries []model.RelativeCarEntry) int {
	n := h.relative.Publish(entries)
	h.countList(seriesRelative, len(entries), n)
	return n
}

func (h *Hub) PublishStandings(entries []model.StandingsEntry) int {
	n := h.standings.Publish(entries)
	h.countList(seriesStandings, len(entries), n)
	return n
}

func (h *Hub) countList(series string, offered, stored int) {
	publishesTotal.WithLabelValues(series).Inc()
	if offered > stored {
		truncatedTotal.WithLabelValues(series).Add(float64(offered - stored))
	}
}

func (h *Hub) ReadTelemetry() model.TelemetrySnapshot {
	return h.telemetry.Read()
}

func (h *Hub) ReadRelativeCars() []model.RelativeCarEntry {
	return h.relative.Read()
}

func (h *Hub) ReadRelativeCarsInto(dst []model.RelativeCarEntry) int {
	return h.relative.ReadInto(dst)
}

func (h *Hub) ReadStandings() []model.StandingsEntry {
	return h.standings.Read()
}

func (h *Hub) ReadStandingsInto(dst []model.StandingsEntry) int {
	return h.standings.ReadInto(dst)
}

func (h *Hub) TelemetryAge() (time.Duration, bool) {
	if h.telemetry.Version() == 0 {
		return 0, false
	}
	s := h.telemetry.Read()
	return time.Since(h.epoch) - time.Duration(s.PublishedAt), true
}

func (h *Hub) TelemetryVersion() uint64 {
	return h.telemetry.Version()
}
