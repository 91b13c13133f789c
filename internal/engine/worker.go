package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// AdmissionMetrics tracks admission controller operational counters.
type AdmissionMetrics struct {
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Panics    int64 `json:"panics"`
}

// ErrAdmissionClosed is returned when work is submitted after shutdown.
var ErrAdmissionClosed = errors.New("admission controller is shut down")

// Admission bounds the number of concurrent workflow executions. Callers
// block in Run until a slot frees up, giving natural backpressure instead of
// an unbounded queue.
type Admission struct {
	sem     chan struct{}
	wg      sync.WaitGroup
	metrics AdmissionMetrics
	mu      sync.Mutex
	done    chan struct{}
	closed  bool
}

// NewAdmission creates a controller with the given max concurrency.
func NewAdmission(size int) *Admission {
	if size <= 0 {
		size = 1
	}
	return &Admission{
		sem:  make(chan struct{}, size),
		done: make(chan struct{}),
	}
}

// Run acquires a slot, executes fn synchronously, and releases the slot. It
// blocks while the controller is at capacity and respects context
// cancellation while waiting. onAdmit, when non-nil, fires after the slot is
// acquired and before fn runs.
func (a *Admission) Run(ctx context.Context, onAdmit func(), fn func(ctx context.Context) error) (err error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrAdmissionClosed
	}
	a.mu.Unlock()

	select {
	case a.sem <- struct{}{}:
		// Slot acquired.
	case <-ctx.Done():
		return ctx.Err()
	case <-a.done:
		return ErrAdmissionClosed
	}

	// Re-check closed after acquiring the slot, in case Shutdown raced.
	// wg.Add(1) MUST be inside the lock to prevent race with Shutdown's wg.Wait().
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		<-a.sem
		return ErrAdmissionClosed
	}
	a.wg.Add(1)
	atomic.AddInt64(&a.metrics.Active, 1)
	a.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&a.metrics.Panics, 1)
			atomic.AddInt64(&a.metrics.Failed, 1)
			err = fmt.Errorf("admitted work panicked: %v", r)
		}
		atomic.AddInt64(&a.metrics.Active, -1)
		<-a.sem
		a.wg.Done()
	}()

	if onAdmit != nil {
		onAdmit()
	}

	err = fn(ctx)
	if err != nil {
		atomic.AddInt64(&a.metrics.Failed, 1)
	} else {
		atomic.AddInt64(&a.metrics.Completed, 1)
	}
	return err
}

// Wait blocks until all admitted work completes.
func (a *Admission) Wait() {
	a.wg.Wait()
}

// Shutdown prevents new admissions and waits for in-flight work to finish.
func (a *Admission) Shutdown() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.done)
	a.mu.Unlock()

	a.wg.Wait()
}

// Metrics returns a snapshot of the current counters.
func (a *Admission) Metrics() AdmissionMetrics {
	return AdmissionMetrics{
		Active:    atomic.LoadInt64(&a.metrics.Active),
		Completed: atomic.LoadInt64(&a.metrics.Completed),
		Failed:    atomic.LoadInt64(&a.metrics.Failed),
		Panics:    atomic.LoadInt64(&a.metrics.Panics),
	}
}
