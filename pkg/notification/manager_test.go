package notification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"simtelemetry/pkg/model"
	"simtelemetry/pkg/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (r *recorder) Send(_ context.Context, subject, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, subject+": "+message)
	return r.err
}

func (r *recorder) sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func run(t *testing.T, m *Manager, events ...source.Event) {
	t.Helper()
	for _, e := range events {
		m.handle(context.Background(), e)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	r := &recorder{}
	m := NewManager(r, quietLogger())
	ch := make(chan source.Event, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, ch) }()

	ch <- source.Event{Kind: source.EventBound, To: "mock"}
	require.Eventually(t, func() bool { return len(r.sent()) == 1 }, time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("manager did not stop")
	}
}

func TestSendsSourceChanges(t *testing.T) {
	r := &recorder{}
	m := NewManager(r, quietLogger())

	run(t, m,
		source.Event{Kind: source.EventBound, To: "lmu-shm", Prod: model.ProducerLMU},
		source.Event{Kind: source.EventFailover, From: "lmu-shm", To: "lmu-live", Prod: model.ProducerLMU},
		source.Event{Kind: source.EventClosed, From: "lmu-live"},
	)

	assert.Equal(t, []string{
		"Telemetry source: telemetry source lmu-shm connected",
		"Telemetry source: telemetry source switched from lmu-shm to lmu-live",
	}, r.sent())
}

func TestFlappingSourceIsRateLimited(t *testing.T) {
	r := &recorder{}
	m := NewManager(r, quietLogger())

	var events []source.Event
	for i := 0; i < 10; i++ {
		events = append(events, source.Event{Kind: source.EventLost, From: "mock"})
	}
	run(t, m, events...)

	assert.Len(t, r.sent(), 3)
}

func TestSendErrorDoesNotStopManager(t *testing.T) {
	r := &recorder{err: errors.New("telegram down")}
	m := NewManager(r, quietLogger())

	run(t, m,
		source.Event{Kind: source.EventLost, From: "a"},
		source.Event{Kind: source.EventBound, To: "b"},
	)

	assert.Len(t, r.sent(), 2)
}
