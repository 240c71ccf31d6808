package ds

import (
	"errors"
	"sync"
	"sync/atomic"
)

var ErrAlreadyClosedLoop = errors.New("already closed loop")

// Eventloop runs handler for every event sent to it on a fixed number of
// worker goroutines. With a single worker, events are handled in send order.
type Eventloop[T any] struct {
	queue   chan T
	workers int
	handler func(T)

	mu        sync.RWMutex
	closed    atomic.Bool
	closeC    chan struct{}
	closeOnce sync.Once
	forceC    chan struct{}
	forceOnce sync.Once
	doneC     chan struct{}
}

func NewEventloop[T any](size int, workers int, handler func(T)) *Eventloop[T] {
	if workers < 1 {
		workers = 1
	}
	return &Eventloop[T]{
		queue:   make(chan T, size),
		workers: workers,
		handler: handler,
		closeC:  make(chan struct{}),
		forceC:  make(chan struct{}),
		doneC:   make(chan struct{}),
	}
}

// Run blocks until the loop is closed and every worker has returned.
func (e *Eventloop[T]) Run() {
	wg := sync.WaitGroup{}
	wg.Add(e.workers)
	for range e.workers {
		go func() {
			defer wg.Done()
			e.work()
		}()
	}
	wg.Wait()
	close(e.doneC)
}

func (e *Eventloop[T]) work() {
	for {
		select {
		case <-e.forceC:
			return
		default:
		}

		select {
		case <-e.forceC:
			return
		case ev, ok := <-e.queue:
			if !ok {
				return
			}
			e.handler(ev)
		}
	}
}

// Send queues ev, blocking while the queue is full.
func (e *Eventloop[T]) Send(ev T) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed.Load() {
		return ErrAlreadyClosedLoop
	}

	select {
	case e.queue <- ev:
		return nil
	case <-e.closeC:
		return ErrAlreadyClosedLoop
	}
}

// Close stops accepting events. Events already queued are still handled.
// Close does not wait, so it is safe to call from inside the handler.
func (e *Eventloop[T]) Close() {
	if e.closed.Load() {
		return
	}
	// wake senders blocked on a full queue before taking the write lock
	e.closeOnce.Do(func() { close(e.closeC) })
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed.CompareAndSwap(false, true) {
		return
	}
	close(e.queue)
}

// ForceClose stops the workers without draining the queue.
func (e *Eventloop[T]) ForceClose() {
	e.forceOnce.Do(func() { close(e.forceC) })
	e.Close()
}

func (e *Eventloop[T]) Closed() bool {
	return e.closed.Load()
}

// Done is closed once Run has returned.
func (e *Eventloop[T]) Done() <-chan struct{} {
	return e.doneC
}
