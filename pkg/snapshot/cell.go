package snapshot

// Cell holds the latest published value of T.
//
// Publish must only be called from one goroutine. Read may be called from any
// number of goroutines at the same time as Publish and never blocks: it
// retries only while a publish is in flight.
type Cell[T any] struct {
	lock  *seqlock
	words int
}

// NewCell returns a cell whose readers see initial until the first Publish.
// It panics if T holds pointers or its size is not a multiple of 8 bytes.
func NewCell[T any](initial T) *Cell[T] {
	n := wordsOf[T]()
	c := &Cell[T]{
		lock:  newSeqlock(n),
		words: n,
	}
	for i, w := range asWords(&initial, n) {
		c.lock.store(i, w)
	}
	return c
}

// Publish replaces the current value.
func (c *Cell[T]) Publish(v T) {
	src := asWords(&v, c.words)
	c.lock.beginWrite()
	for i, w := range src {
		c.lock.store(i, w)
	}
	c.lock.endWrite()
}

// Read returns a copy of the most recently published value.
func (c *Cell[T]) Read() T {
	var v T
	dst := asWords(&v, c.words)
	for {
		seq := c.lock.beginRead()
		for i := range dst {
			dst[i] = c.lock.load(i)
		}
		if !c.lock.changed(seq) {
			return v
		}
	}
}

// Version returns the number of completed publishes. Readers can compare
// versions to skip work when nothing changed.
func (c *Cell[T]) Version() uint64 {
	return c.lock.publishes()
}
