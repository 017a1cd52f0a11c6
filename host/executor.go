package host

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/kbukum/kcoidc/errors"
	"github.com/kbukum/kcoidc/logger"
	"github.com/kbukum/kcoidc/resilience"
)

// ExecutorConfig configures an Executor.
type ExecutorConfig struct {
	// MaxConcurrent bounds the calls running at once.
	MaxConcurrent int
	// MaxWait bounds how long a submitted call waits for a slot. A negative
	// value waits until the submit context is done.
	MaxWait time.Duration
	Logger  *logger.Logger
}

// Executor runs submitted calls on goroutines, at most MaxConcurrent at a
// time.
type Executor struct {
	bulkhead *resilience.Bulkhead
	log      *logger.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewExecutor creates an Executor.
func NewExecutor(cfg ExecutorConfig) *Executor {
	log := cfg.Logger
	if log == nil {
		log = logger.WithComponent("host")
	}
	e := &Executor{log: log}
	e.bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{
		Name:          "host-executor",
		MaxConcurrent: cfg.MaxConcurrent,
		MaxWait:       cfg.MaxWait,
		OnReject: func(name string) {
			e.log.Warn("call rejected", logger.Fields(logger.FieldComponent, name))
		},
	})
	return e
}

// InUse returns the number of calls holding a slot.
func (e *Executor) InUse() int { return e.bulkhead.InUse() }

// MaxConcurrent returns the slot count.
func (e *Executor) MaxConcurrent() int { return e.bulkhead.MaxConcurrent() }

// Close rejects further submissions and waits for running calls or ctx.
func (e *Executor) Close(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return apperrors.Timeout("executor close").WithCause(ctx.Err())
	}
}

// Submit runs fn on a new goroutine once a slot is free. A call that
// cannot get a slot resolves with ErrCodeTimeout; a closed Executor
// resolves with ErrCodeClosed.
func Submit[T any](ctx context.Context, e *Executor, fn func(context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		var zero T
		f.resolve(zero, apperrors.Closed())
		return f
	}
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		var zero T

		slot, err := e.bulkhead.Acquire(ctx)
		if err != nil {
			f.resolve(zero, apperrors.Timeout("submit").WithCause(err))
			return
		}
		defer slot.Release()

		val, err := fn(ctx)
		f.resolve(val, err)
	}()
	return f
}
