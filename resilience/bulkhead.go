package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Bulkhead errors.
var (
	ErrBulkheadFull    = errors.New("bulkhead is full")
	ErrBulkheadTimeout = errors.New("bulkhead wait timeout")
)

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	// Name identifies this bulkhead for logging.
	Name string
	// MaxConcurrent is the number of slots, 10 when unset.
	MaxConcurrent int
	// MaxWait bounds the wait for a slot. 0 fails immediately and a
	// negative value waits until the context is done.
	MaxWait time.Duration
	// OnReject is called when Acquire gives up.
	OnReject func(name string)
	// After replaces time.After, for tests.
	After func(d time.Duration) <-chan time.Time
}

// Bulkhead caps the number of calls running at once.
type Bulkhead struct {
	cfg   BulkheadConfig
	slots chan struct{}
}

// Slot is a reserved place in a bulkhead.
type Slot struct {
	once  sync.Once
	slots chan struct{}
}

// Release frees the slot. Calls after the first are no-ops, and it may be
// called from any goroutine.
func (s *Slot) Release() {
	s.once.Do(func() { <-s.slots })
}

// NewBulkhead creates a bulkhead.
func NewBulkhead(cfg BulkheadConfig) *Bulkhead {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 10
	}
	if cfg.After == nil {
		cfg.After = time.After
	}
	return &Bulkhead{cfg: cfg, slots: make(chan struct{}, cfg.MaxConcurrent)}
}

// Acquire reserves a slot, waiting as configured by MaxWait. It returns
// ErrBulkheadFull, ErrBulkheadTimeout or the context error when no slot
// could be had.
func (b *Bulkhead) Acquire(ctx context.Context) (*Slot, error) {
	if err := b.wait(ctx); err != nil {
		if b.cfg.OnReject != nil {
			b.cfg.OnReject(b.cfg.Name)
		}
		return nil, err
	}
	return &Slot{slots: b.slots}, nil
}

// Execute runs fn while holding a slot.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	slot, err := b.Acquire(ctx)
	if err != nil {
		return err
	}
	defer slot.Release()
	return fn()
}

func (b *Bulkhead) wait(ctx context.Context) error {
	select {
	case b.slots <- struct{}{}:
		return nil
	default:
	}
	if b.cfg.MaxWait == 0 {
		return ErrBulkheadFull
	}

	var expired <-chan time.Time
	if b.cfg.MaxWait > 0 {
		expired = b.cfg.After(b.cfg.MaxWait)
	}
	select {
	case b.slots <- struct{}{}:
		return nil
	case <-expired:
		return ErrBulkheadTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InUse returns the number of held slots.
func (b *Bulkhead) InUse() int { return len(b.slots) }

// MaxConcurrent returns the number of slots.
func (b *Bulkhead) MaxConcurrent() int { return b.cfg.MaxConcurrent }
