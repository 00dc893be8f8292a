// Package queues holds a small FIFO used to hold work that has to be retried
// in order.
package queues

type Queue[T any] []T

func NewQueue[T any]() *Queue[T] {
	q := Queue[T]{}
	return &q
}

func (q *Queue[T]) Push(x T) {
	*q = append(*q, x)
}

func (q *Queue[T]) Peek() T {
	return (*q)[0]
}

func (q *Queue[T]) Pop() T {
	var zero T
	x := (*q)[0]
	(*q)[0] = zero
	*q = (*q)[1:]
	return x
}

func (q *Queue[T]) Len() int {
	return len(*q)
}

func (q *Queue[T]) IsEmpty() bool {
	return len(*q) == 0
}
