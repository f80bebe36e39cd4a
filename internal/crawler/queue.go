package crawler

import (
	"context"
	"fmt"
	"sync"
)

const (
	// ErrQueueClosed indicates that the queue has been closed and no more items will be delivered.
	ErrQueueClosed = Error("queue closed")
)

// Queue is an unbounded multi-producer multi-consumer FIFO queue that tracks unfinished work.
//
// Every Put increments the count of unfinished items and every Done decrements it. Join blocks until the count drops to
// zero, that is when every item that has been put has also been taken and marked done.
//
//	q := NewQueue[string]()
//	q.Put("http://example.com/")
//
//	go func() {
//		for {
//			item, err := q.Get(ctx)
//			if err != nil {
//				return
//			}
//
//			process(item) // May put more items.
//			q.Done()
//		}
//	}()
//
//	_ = q.Join(ctx)
//	q.Close()
type Queue[T any] struct {
	mu         sync.Mutex
	items      []T
	unfinished int

	// avail is closed and replaced when an item is put, waking up all the waiting consumers.
	avail chan struct{}
	// idle is closed when the unfinished count reaches zero and replaced when it leaves zero.
	idle chan struct{}

	closed    chan struct{}
	closeOnce sync.Once
}

// Put appends an item to the queue. It never blocks.
func (q *Queue[T]) Put(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, item)

	q.unfinished++
	if q.unfinished == 1 {
		q.idle = make(chan struct{})
	}

	close(q.avail)
	q.avail = make(chan struct{})
}

// Get removes and returns the first item of the queue, waiting until one is available.
//
// It returns ErrQueueClosed once the queue is closed, or the context error if the context is done first.
func (q *Queue[T]) Get(ctx context.Context) (T, error) {
	var zero T

	for {
		select {
		case <-q.closed:
			return zero, ErrQueueClosed
		default:
		}

		q.mu.Lock()

		if len(q.items) > 0 {
			item := q.items[0]
			q.items[0] = zero
			q.items = q.items[1:]

			q.mu.Unlock()

			return item, nil
		}

		avail := q.avail

		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("dequeue canceled: %w", ctx.Err())

		case <-q.closed:
			return zero, ErrQueueClosed

		case <-avail:
		}
	}
}

// Done marks an item taken with Get as processed.
//
// It panics if it is called more times than Put, because the unfinished count would no longer tell when the work is
// over.
func (q *Queue[T]) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.unfinished <= 0 {
		panic("crawler: Queue.Done called more times than Queue.Put")
	}

	q.unfinished--
	if q.unfinished == 0 {
		close(q.idle)
	}
}

// Join waits until all the items that have been put are marked done, or the context is done.
func (q *Queue[T]) Join(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("join canceled: %w", ctx.Err())

	case <-idle:
		return nil
	}
}

// Len returns the number of items waiting in the queue, excluding those in flight.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Unfinished returns the number of items that have been put but not marked done yet.
func (q *Queue[T]) Unfinished() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.unfinished
}

// Close wakes up all the consumers with ErrQueueClosed. Items left in the queue are dropped.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() {
		close(q.closed)
	})
}

// NewQueue creates a new empty queue.
func NewQueue[T any]() *Queue[T] {
	idle := make(chan struct{})
	close(idle)

	return &Queue[T]{
		avail:  make(chan struct{}),
		idle:   idle,
		closed: make(chan struct{}),
	}
}
