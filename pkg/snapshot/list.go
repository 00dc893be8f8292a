package snapshot

import (
	"fmt"
	"unsafe"
)

// BoundedList publishes up to a fixed number of entries together with their
// count. Count and entries share one seqlock write section, so a reader never
// sees a count that disagrees with the entries written by the same publish.
type BoundedList[T any] struct {
	lock     *seqlock
	words    int // per entry
	capacity int
}

// NewBoundedList allocates storage for capacity entries. The storage is never
// resized. It panics if capacity is not positive or T cannot live in a Cell.
func NewBoundedList[T any](capacity int) *BoundedList[T] {
	if capacity <= 0 {
		panic(fmt.Sprintf("snapshot: bounded list capacity %d", capacity))
	}
	n := wordsOf[T]()
	return &BoundedList[T]{
		// word 0 is the count
		lock:     newSeqlock(1 + capacity*n),
		words:    n,
		capacity: capacity,
	}
}

// Cap returns the fixed capacity.
func (l *BoundedList[T]) Cap() int {
	return l.capacity
}

// Publish replaces the list with entries, keeping at most Cap of them. It
// returns the number of entries stored.
func (l *BoundedList[T]) Publish(entries []T) int {
	count := min(len(entries), l.capacity)
	var src []uint64
	if count > 0 {
		src = unsafe.Slice((*uint64)(unsafe.Pointer(unsafe.SliceData(entries))), count*l.words)
	}
	l.lock.beginWrite()
	l.lock.store(0, uint64(count))
	for i, w := range src {
		l.lock.store(1+i, w)
	}
	l.lock.endWrite()
	return count
}

// ReadInto copies the current entries into dst and returns how many were
// copied. When dst is shorter than the published count only the first
// len(dst) entries are copied.
func (l *BoundedList[T]) ReadInto(dst []T) int {
	for {
		seq := l.lock.beginRead()
		n := min(int(l.lock.load(0)), l.capacity, len(dst))
		if n > 0 {
			words := unsafe.Slice((*uint64)(unsafe.Pointer(unsafe.SliceData(dst))), n*l.words)
			for i := range words {
				words[i] = l.lock.load(1 + i)
			}
		}
		if !l.lock.changed(seq) {
			return n
		}
	}
}

// Read returns a fresh copy of the current entries.
func (l *BoundedList[T]) Read() []T {
	buf := make([]T, l.capacity)
	n := l.ReadInto(buf)
	return buf[:n:n]
}

// Version returns the number of completed publishes.
func (l *BoundedList[T]) Version() uint64 {
	return l.lock.publishes()
}
