package webserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"simtelemetry/pkg/laps"
	"simtelemetry/pkg/model"
	"simtelemetry/pkg/source"
	"simtelemetry/pkg/telemetry"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStatus source.Status

func (s fixedStatus) Status() source.Status { return source.Status(s) }

func newTestServer(t *testing.T, lapStore LapLister) (*httptest.Server, *telemetry.Hub) {
	t.Helper()
	hub := telemetry.NewHub()
	m := NewManager(hub, fixedStatus{Bound: true, Driver: "lmu-shm", Producer: model.ProducerLMU}, Options{
		PushInterval: 5 * time.Millisecond,
		Laps:         lapStore,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	srv := httptest.NewServer(m.Handler())
	t.Cleanup(srv.Close)
	return srv, hub
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestTelemetryEndpoints(t *testing.T) {
	srv, hub := newTestServer(t, nil)
	hub.PublishTelemetry(model.TelemetrySnapshot{LapNumber: 9, Speed: 250})
	hub.PublishRelativeCars([]model.RelativeCarEntry{{Position: 4, GapTime: -1.1}})
	hub.PublishStandings([]model.StandingsEntry{{Position: 1, CarClass: model.NewClassLabel("GT3")}})

	var s model.TelemetrySnapshot
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/telemetry", &s))
	assert.Equal(t, int32(9), s.LapNumber)

	var relative []model.RelativeCarEntry
	getJSON(t, srv.URL+"/api/relative", &relative)
	require.Len(t, relative, 1)
	assert.Equal(t, -1.1, relative[0].GapTime)

	var standings []map[string]any
	getJSON(t, srv.URL+"/api/standings", &standings)
	require.Len(t, standings, 1)
	assert.Equal(t, "GT3", standings[0]["carClass"])
}

func TestSourceEndpoint(t *testing.T) {
	srv, hub := newTestServer(t, nil)

	var before map[string]any
	getJSON(t, srv.URL+"/api/source", &before)
	assert.Nil(t, before["telemetryAgeMs"])

	hub.PublishTelemetry(model.TelemetrySnapshot{})
	var info map[string]any
	getJSON(t, srv.URL+"/api/source", &info)
	assert.Equal(t, true, info["bound"])
	assert.Equal(t, "lmu-shm", info["driver"])
	assert.Equal(t, "lmu", info["producer"])
	assert.Equal(t, 1.0, info["version"])
	assert.NotNil(t, info["telemetryAgeMs"])
}

func TestLapEndpoints(t *testing.T) {
	store, err := laps.Open(filepath.Join(t.TempDir(), "laps.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	for _, lt := range []float64{95.1, 93.2, 94.7} {
		_, err := store.Save(context.Background(), laps.Lap{Producer: model.ProducerLMU, Lap: 1, LapTime: lt, RecordedAt: time.Now()})
		require.NoError(t, err)
	}
	srv, _ := newTestServer(t, store)

	var best []laps.Lap
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/laps/best?producer=lmu&limit=2", &best))
	require.Len(t, best, 2)
	assert.Equal(t, 93.2, best[0].LapTime)

	var recent []laps.Lap
	getJSON(t, srv.URL+"/api/laps/recent", &recent)
	require.Len(t, recent, 3)
	assert.Equal(t, 94.7, recent[0].LapTime)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/laps/best?producer=forza", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/laps/best?limit=0", nil))
}

func TestLapEndpointsAbsentWithoutStore(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/laps/best", nil))
}

func TestMapEndpoint(t *testing.T) {
	srv, hub := newTestServer(t, nil)
	hub.PublishTelemetry(model.TelemetrySnapshot{TrackPosNorm: 0.4})
	hub.PublishRelativeCars([]model.RelativeCarEntry{{TrackPosNorm: 0.42}})

	for format, contentType := range map[string]string{"svg": "image/svg+xml", "png": "image/png"} {
		resp, err := http.Get(srv.URL + "/api/map." + format + "?size=200")
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, format)
		assert.Equal(t, contentType, resp.Header.Get("Content-Type"))
		assert.NotEmpty(t, body)
	}

	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/map.png?size=10", nil))
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/map.gif", nil))
}

func TestMetricsEndpoint(t *testing.T) {
	srv, hub := newTestServer(t, nil)
	hub.PublishTelemetry(model.TelemetrySnapshot{})

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "simtelemetry_publishes_total")
}

func TestWebsocketPushesNewFrames(t *testing.T) {
	srv, hub := newTestServer(t, nil)
	hub.PublishTelemetry(model.TelemetrySnapshot{LapNumber: 1})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer c.Close()
	_ = c.SetReadDeadline(time.Now().Add(5 * time.Second))

	var f Frame
	require.NoError(t, c.ReadJSON(&f))
	assert.Equal(t, int32(1), f.Telemetry.LapNumber)
	assert.Equal(t, "lmu-shm", f.Source.Driver)
	assert.Empty(t, f.Standings)

	hub.PublishStandings([]model.StandingsEntry{{Position: 1}, {Position: 2}})
	hub.PublishTelemetry(model.TelemetrySnapshot{LapNumber: 2})

	require.NoError(t, c.ReadJSON(&f))
	assert.Equal(t, int32(2), f.Telemetry.LapNumber)
	assert.Len(t, f.Standings, 2)
	assert.Equal(t, uint64(2), f.Source.Version)
}
