package timing

import (
	"container/heap"
	"log"
)

// Queue holds pending items keyed by the step at which they are due.
//
// Items due at the same step share a bucket and keep their insertion order.
// Inserting a new step costs O(log n) in the number of pending steps, reading
// and dropping the earliest bucket is O(1) amortized. Queue is not safe for
// concurrent use; the scheduler only mutates it between steps.
type Queue[T any] struct {
	steps   stepHeap
	buckets map[Step][]T
	n       int
}

// NewQueue creates an empty Queue.
func NewQueue[T any]() *Queue[T] {
	q := &Queue[T]{
		steps:   make(stepHeap, 0),
		buckets: make(map[Step][]T),
	}
	heap.Init(&q.steps)

	return q
}

// Push adds an item that becomes due at the given step.
func (q *Queue[T]) Push(step Step, item T) {
	bucket, exists := q.buckets[step]
	if !exists {
		heap.Push(&q.steps, step)
	}

	q.buckets[step] = append(bucket, item)
	q.n++
}

// Peek returns the items due at the given step without removing them.
func (q *Queue[T]) Peek(step Step) []T {
	return q.buckets[step]
}

// Drop removes the bucket of the given step. No earlier bucket may remain.
func (q *Queue[T]) Drop(step Step) {
	if q.steps.Len() == 0 {
		return
	}

	earliest := q.steps[0]
	if earliest < step {
		log.Panicf("cannot drop step %d while step %d is pending",
			step, earliest)
	}

	if earliest > step {
		return
	}

	heap.Pop(&q.steps)
	q.n -= len(q.buckets[step])
	delete(q.buckets, step)
}

// PopDue removes and returns the items due at the given step.
func (q *Queue[T]) PopDue(step Step) []T {
	items := q.Peek(step)
	q.Drop(step)

	return items
}

// NextStep returns the earliest step that has pending items.
func (q *Queue[T]) NextStep() (Step, bool) {
	if q.steps.Len() == 0 {
		return 0, false
	}

	return q.steps[0], true
}

// Len returns the number of pending items.
func (q *Queue[T]) Len() int {
	return q.n
}

// Clear removes all pending items.
func (q *Queue[T]) Clear() {
	q.steps = q.steps[:0]
	q.buckets = make(map[Step][]T)
	q.n = 0
}

type stepHeap []Step

func (h stepHeap) Len() int { return len(h) }

func (h stepHeap) Less(i, j int) bool { return h[i] < h[j] }

func (h stepHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *stepHeap) Push(x any) {
	*h = append(*h, x.(Step))
}

func (h *stepHeap) Pop() any {
	old := *h
	n := len(old)
	s := old[n-1]
	*h = old[:n-1]

	return s
}
