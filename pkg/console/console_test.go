package console

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"simtelemetry/pkg/model"
	"simtelemetry/pkg/source"
	"simtelemetry/pkg/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStatus source.Status

func (s fixedStatus) Status() source.Status { return source.Status(s) }

func TestDumpRendersTables(t *testing.T) {
	hub := telemetry.NewHub()
	hub.PublishTelemetry(model.TelemetrySnapshot{LapNumber: 12, Position: 3, TotalCars: 24, LastLapTime: 92.418, Throttle: 1})
	hub.PublishRelativeCars([]model.RelativeCarEntry{{Position: 2, GapTime: -0.8}, {Position: 4, GapTime: 1.25, InPit: true}})
	standings := make([]model.StandingsEntry, 14)
	for i := range standings {
		standings[i] = model.StandingsEntry{Position: int32(i + 1), CarClass: model.NewClassLabel("HYPERCAR")}
	}
	standings[1].DNF = true
	hub.PublishStandings(standings)

	var out bytes.Buffer
	d := NewDumper(hub, fixedStatus{Bound: true, Driver: "lmu-shm", Producer: model.ProducerLMU}, &out, time.Second, nil)
	require.NoError(t, d.Dump())

	got := out.String()
	assert.Contains(t, got, "source: lmu-shm (lmu)")
	assert.Contains(t, got, "3/24")
	assert.Contains(t, got, "01:32.418")
	assert.Contains(t, got, "100%")
	assert.Contains(t, got, "-0.800s")
	assert.Contains(t, got, "+1.250s")
	assert.Contains(t, got, "PIT")
	assert.Contains(t, got, "DNF")
	// footers are upper cased by the table style
	assert.Contains(t, strings.ToLower(got), "+4 more")
}

func TestDumpWhileIdle(t *testing.T) {
	var out bytes.Buffer
	d := NewDumper(telemetry.NewHub(), fixedStatus{}, &out, time.Second, nil)
	require.NoError(t, d.Dump())
	assert.Contains(t, out.String(), "waiting for a simulator")
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := NewDumper(telemetry.NewHub(), fixedStatus{}, io.Discard, time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("dumper did not stop")
	}
}
