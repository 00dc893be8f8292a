package queues

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueIsFIFO(t *testing.T) {
	q := NewQueue[int]()
	assert.True(t, q.IsEmpty())

	q.Push(1)
	q.Push(2)
	q.Push(3)
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, 1, q.Peek())

	assert.Equal(t, 1, q.Pop())
	assert.Equal(t, 2, q.Pop())
	q.Push(4)
	assert.Equal(t, 3, q.Pop())
	assert.Equal(t, 4, q.Pop())
	assert.True(t, q.IsEmpty())
}
