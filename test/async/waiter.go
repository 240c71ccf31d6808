package async

import (
	"sync"
	"time"
)

// Waiter waits for n Done calls, or for the first error sent to it.
type Waiter struct {
	wg   sync.WaitGroup
	endC chan struct{}
	errC chan error
}

func NewWaiter(n int) *Waiter {
	w := &Waiter{
		wg:   sync.WaitGroup{},
		endC: make(chan struct{}),
		errC: make(chan error, 1),
	}
	w.wg.Add(n)
	go func() {
		w.wg.Wait()
		close(w.endC)
	}()
	return w
}

// SendError records err unless an error is already pending. nil is ignored.
func (w *Waiter) SendError(err error) {
	if err == nil {
		return
	}

	select {
	case w.errC <- err:
	default:
	}
}

func (w *Waiter) Done() {
	w.wg.Done()
}

func (w *Waiter) Wait() error {
	select {
	case err := <-w.errC:
		return err
	default:
	}

	select {
	case err := <-w.errC:
		return err
	case <-w.endC:
		return nil
	}
}

// WaitTimeout is Wait bounded by d. It returns ErrTimeout if neither the
// Done calls nor an error arrive in time.
func (w *Waiter) WaitTimeout(d time.Duration) error {
	select {
	case err := <-w.errC:
		return err
	default:
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case err := <-w.errC:
		return err
	case <-w.endC:
		return nil
	case <-t.C:
		return ErrTimeout
	}
}
