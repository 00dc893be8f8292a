// Package snapshot publishes fixed-layout values from a single writer to any
// number of concurrent readers without locks.
//
// Every value crosses a seqlock as a run of 64-bit words. The writer bumps
// the version to odd, stores the words and bumps it back to even. A reader
// copies the words between two version loads and retries when they differ.
// All word accesses are atomic, so a copy is never torn and the race
// detector stays quiet.
package snapshot

import (
	"runtime"
	"sync/atomic"
)

type seqlock struct {
	seq   atomic.Uint64
	words []uint64
}

func newSeqlock(words int) *seqlock {
	return &seqlock{words: make([]uint64, words)}
}

// beginWrite and endWrite must only be called by the single writer.
func (s *seqlock) beginWrite() {
	s.seq.Add(1)
}

func (s *seqlock) endWrite() {
	s.seq.Add(1)
}

func (s *seqlock) store(i int, w uint64) {
	atomic.StoreUint64(&s.words[i], w)
}

func (s *seqlock) load(i int) uint64 {
	return atomic.LoadUint64(&s.words[i])
}

// beginRead waits out an in-progress write and returns the stable version.
func (s *seqlock) beginRead() uint64 {
	for {
		seq := s.seq.Load()
		if seq&1 == 0 {
			return seq
		}
		// The writer holds the section for a handful of stores; let it run.
		runtime.Gosched()
	}
}

// changed reports whether a write started since beginRead returned seq.
func (s *seqlock) changed(seq uint64) bool {
	return s.seq.Load() != seq
}

// publishes is the number of completed writes.
func (s *seqlock) publishes() uint64 {
	return s.seq.Load() / 2
}
