package host

// Lock is the scheduling lock of a host runtime. The goroutine that calls
// into Module is expected to hold it.
type Lock interface {
	Acquire()
	Release()
}

// SchedulerLock is a Lock that may be released by a goroutine other than
// the one that acquired it.
type SchedulerLock struct {
	ch chan struct{}
}

var _ Lock = (*SchedulerLock)(nil)

// NewSchedulerLock returns an unheld lock.
func NewSchedulerLock() *SchedulerLock {
	return &SchedulerLock{ch: make(chan struct{}, 1)}
}

// Acquire blocks until the lock is free.
func (l *SchedulerLock) Acquire() { l.ch <- struct{}{} }

// Release frees the lock. Releasing an unheld lock panics.
func (l *SchedulerLock) Release() {
	select {
	case <-l.ch:
	default:
		panic("host: release of unheld lock")
	}
}

// TryAcquire takes the lock if it is free.
func (l *SchedulerLock) TryAcquire() bool {
	select {
	case l.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// Held reports whether some goroutine holds the lock.
func (l *SchedulerLock) Held() bool { return len(l.ch) == 1 }

type nopLock struct{}

func (nopLock) Acquire() {}
func (nopLock) Release() {}
