package livetiming

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"simtelemetry/pkg/model"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer is a dedicated server control panel: every message sent on
// frames is forwarded to the connected client.
type fakeServer struct {
	*httptest.Server
	frames chan Message
	hangup chan struct{}
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{frames: make(chan Message, 16), hangup: make(chan struct{})}
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc(websocketPath, func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					return
				}
			}
		}()
		for {
			select {
			case m := <-fs.frames:
				if err := c.WriteJSON(m); err != nil {
					return
				}
			case <-fs.hangup:
				return
			case <-gone:
				return
			}
		}
	})
	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) send(t *testing.T, kind string, body any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	fs.frames <- Message{MessageType: kind, Body: raw}
}

func newTestDriver(t *testing.T, url string, messageTimeout time.Duration) *Driver {
	t.Helper()
	d, err := New(Options{
		Name:           "lmu-live",
		Producer:       model.ProducerLMU,
		URL:            url,
		DialTimeout:    time.Second,
		MessageTimeout: messageTimeout,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	t.Cleanup(d.Release)
	return d
}

func field() []Standing {
	return []Standing{
		{SlotID: 1, Position: 2, DriverName: "Ana Ruiz", CarClass: "Hypercar", LapsCompleted: 7, LapDistance: 1200, TimeBehindLeader: 2.1, TimeBehindNext: 2.1, Player: true, EstimatedLapTime: 100, LastLapTime: 101.2, BestLapTime: 100.4, TimeIntoLap: 24, FuelFraction: 0.5, CarVelocity: CarVelocity{Velocity: 50}},
		{SlotID: 2, Position: 1, DriverName: "Tom Berg", CarClass: "Hypercar", LapsCompleted: 7, LapDistance: 1400},
		{SlotID: 3, Position: 3, DriverName: "Li Wei", CarClass: "LMGT3", LapsCompleted: 6, LapDistance: 1100, Pitting: true},
		{SlotID: 4, Position: 4, DriverName: "Sam Okoro", CarClass: "LMGT3", LapsCompleted: 6, LapDistance: 3900, FinishStatus: "FSTAT_DNF"},
	}
}

func session() SessionInfo {
	return SessionInfo{TrackName: "Spa", LapDistance: 4000, NumberOfVehicles: 4, SectorFlag: []string{"YELLOW", "GREEN", "GREEN"}}
}

func TestWebsocketURL(t *testing.T) {
	for raw, want := range map[string]string{
		"http://localhost:5397":  "ws://localhost:5397/websocket/controlpanel",
		"https://race.example:1": "wss://race.example:1/websocket/controlpanel",
		"ws://10.0.0.2:5397/x":   "ws://10.0.0.2:5397/websocket/controlpanel",
	} {
		got, err := websocketURL(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := websocketURL("ftp://host")
	assert.Error(t, err)
	_, err = websocketURL("localhost")
	assert.Error(t, err)
}

func TestProbeFailsWhenServerIsDown(t *testing.T) {
	fs := newFakeServer(t)
	url := fs.URL
	fs.Close()

	d := newTestDriver(t, url, time.Second)
	assert.False(t, d.Probe())
	assert.False(t, d.IsLive())
	_, ok := d.Poll()
	assert.False(t, ok)
}

func TestPollDerivesFromMessages(t *testing.T) {
	fs := newFakeServer(t)
	d := newTestDriver(t, fs.URL, 5*time.Second)
	require.True(t, d.Probe())

	fs.send(t, mtSessionInfo, session())
	fs.send(t, mtStandings, field())

	require.Eventually(t, func() bool {
		s, ok := d.Poll()
		return ok && s.Position == 2 && s.TrackLength == 4000
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, d.IsLive())

	s, _ := d.Poll()
	assert.Equal(t, int32(8), s.LapNumber)
	assert.InDelta(t, 180.0, s.Speed, 1e-9)
	assert.InDelta(t, 0.3, s.TrackPosNorm, 1e-9)
	assert.Equal(t, 25.0, s.FuelLevel)
	assert.Equal(t, int32(4), s.TotalCars)
	assert.Equal(t, int32(1), s.YellowFlags)
	assert.Equal(t, 100.4, s.BestLapTime)

	standings := make([]model.StandingsEntry, model.StandingsCapacity)
	n, ok := d.Standings(standings)
	require.True(t, ok)
	require.Equal(t, 4, n)
	for i, e := range standings[:n] {
		assert.Equal(t, int32(i+1), e.Position)
	}
	assert.Equal(t, "LMGT3", standings[2].CarClass.String())
	assert.True(t, standings[2].InPit)
	assert.True(t, standings[3].DNF)

	relative := make([]model.RelativeCarEntry, model.RelativeCapacity)
	n, ok = d.RelativeCars(relative)
	require.True(t, ok)
	require.Equal(t, 3, n)
	// 100 m behind a lap down, 200 m ahead, then 1300 m behind on the same lap
	assert.Equal(t, int32(3), relative[0].Position)
	assert.InDelta(t, 2.5, relative[0].GapTime, 1e-9)
	assert.Equal(t, int32(-1), relative[0].LapsAhead)
	assert.Equal(t, int32(1), relative[1].Position)
	assert.InDelta(t, -5.0, relative[1].GapTime, 1e-9)
	assert.Equal(t, int32(0), relative[1].LapsAhead)
	assert.Equal(t, int32(4), relative[2].Position)
	assert.InDelta(t, 32.5, relative[2].GapTime, 1e-9)
	assert.Equal(t, int32(0), relative[2].LapsAhead)
}

func TestSilentServerIsNotLive(t *testing.T) {
	fs := newFakeServer(t)
	d := newTestDriver(t, fs.URL, 50*time.Millisecond)
	require.True(t, d.Probe())
	assert.True(t, d.IsLive())

	assert.Eventually(t, func() bool { return !d.IsLive() }, 2*time.Second, 5*time.Millisecond)
}

func TestHangupEndsPolling(t *testing.T) {
	fs := newFakeServer(t)
	d := newTestDriver(t, fs.URL, 5*time.Second)
	require.True(t, d.Probe())

	close(fs.hangup)

	require.Eventually(t, func() bool {
		_, ok := d.Poll()
		return !ok
	}, 2*time.Second, 5*time.Millisecond)
	assert.False(t, d.IsLive())

	d.Release()
	d.Release()
	_, ok := d.Standings(make([]model.StandingsEntry, 1))
	assert.False(t, ok)
}
