package webserver

import (
	"net/http"
	"time"

	"simtelemetry/pkg/caster"
	"simtelemetry/pkg/model"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const writeWait = 2 * time.Second

var websocketClients = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "simtelemetry_websocket_clients",
	Help: "Connected websocket clients",
})

// Frame is pushed to websocket clients whenever new telemetry was published.
type Frame struct {
	Source    SourceInfo               `json:"source"`
	Telemetry model.TelemetrySnapshot  `json:"telemetry"`
	Relative  []model.RelativeCarEntry `json:"relative"`
	Standings []model.StandingsEntry   `json:"standings"`
}

func (m *Manager) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	c, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.log.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer c.Close()
	websocketClients.Inc()
	defer websocketClients.Dec()

	// clients only listen; reading detects when they leave
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var (
		cast      caster.JSON[Frame]
		relative  [model.RelativeCapacity]model.RelativeCarEntry
		standings [model.StandingsCapacity]model.StandingsEntry
		sent      uint64
		first     = true
	)
	ticker := time.NewTicker(m.push)
	defer ticker.Stop()
	for {
		if version := m.reader.TelemetryVersion(); first || version != sent {
			first, sent = false, version
			frame := Frame{
				Source:    m.sourceInfo(),
				Telemetry: m.reader.ReadTelemetry(),
				Relative:  relative[:m.reader.ReadRelativeCarsInto(relative[:])],
				Standings: standings[:m.reader.ReadStandingsInto(standings[:])],
			}
			data, err := cast.To(frame)
			if err != nil {
				m.log.Error("error encoding frame", "error", err)
				return
			}
			_ = c.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
				m.log.Debug("websocket client gone", "error", err)
				return
			}
		}

		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
