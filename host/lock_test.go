package host

import "testing"

func TestSchedulerLock(t *testing.T) {
	l := NewSchedulerLock()
	if l.Held() {
		t.Fatal("new lock should be free")
	}
	l.Acquire()
	if !l.Held() || l.TryAcquire() {
		t.Fatal("expected lock to be held")
	}

	released := make(chan struct{})
	go func() {
		l.Release()
		close(released)
	}()
	<-released
	if !l.TryAcquire() {
		t.Fatal("expected lock released by another goroutine")
	}
	l.Release()
}

func TestSchedulerLock_ReleaseUnheldPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewSchedulerLock().Release()
}
