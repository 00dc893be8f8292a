package pubsub

import (
	"sync"
	"sync/atomic"
)

// PubSub fans messages out to per-topic subscriber channels.
//
// Publish never blocks and never takes the lock: it reads an immutable copy
// of the subscriber table that Subscribe and Unsubscribe replace. A
// subscriber whose buffer is full misses the message.
type PubSub[T any] struct {
	mu   sync.Mutex
	subs atomic.Pointer[map[string][]chan T]
}

func NewPubSub[T any]() *PubSub[T] {
	ps := &PubSub[T]{}
	empty := map[string][]chan T{}
	ps.subs.Store(&empty)
	return ps
}

// Subscribe registers a channel buffered for size messages.
func (ps *PubSub[T]) Subscribe(topic string, size int) <-chan T {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ch := make(chan T, max(size, 1))
	next := ps.copySubs()
	next[topic] = append(next[topic], ch)
	ps.subs.Store(&next)
	return ch
}

// Unsubscribe stops delivery to ch. The channel is not closed, a Publish
// racing with Unsubscribe may still deliver one last message.
func (ps *PubSub[T]) Unsubscribe(topic string, ch <-chan T) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	next := ps.copySubs()
	kept := next[topic][:0:0]
	for _, c := range next[topic] {
		if c != ch {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		delete(next, topic)
	} else {
		next[topic] = kept
	}
	ps.subs.Store(&next)
}

// Publish delivers data to the subscribers of topic and returns how many
// received it.
func (ps *PubSub[T]) Publish(topic string, data T) int {
	delivered := 0
	for _, ch := range (*ps.subs.Load())[topic] {
		select {
		case ch <- data:
			delivered++
		default:
		}
	}
	return delivered
}

func (ps *PubSub[T]) copySubs() map[string][]chan T {
	current := *ps.subs.Load()
	next := make(map[string][]chan T, len(current)+1)
	for topic, chans := range current {
		next[topic] = append([]chan T(nil), chans...)
	}
	return next
}
