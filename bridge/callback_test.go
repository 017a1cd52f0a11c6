package bridge

import (
	"bytes"
	"sync"
	"sync/atomic"
	"testing"
)

func TestHandlerFuncs_NilFields(t *testing.T) {
	var h HandlerFuncs
	h.OnLog("ignored")
	h.OnWatchUpdate()
}

func TestCallbacks_RegisterAndReplace(t *testing.T) {
	cb := NewCallbacks(nil)
	if cb.Log("nobody") || cb.Watch() {
		t.Fatal("expected no dispatch without handlers")
	}

	var a, b []string
	cb.RegisterLog(func(m string) { a = append(a, m) })
	cb.Log("one")
	cb.RegisterLog(func(m string) { b = append(b, m) })
	cb.Log("two")

	if len(a) != 1 || a[0] != "one" || len(b) != 1 || b[0] != "two" {
		t.Errorf("unexpected dispatch a=%v b=%v", a, b)
	}

	cb.RegisterLog(nil)
	if cb.Log("three") {
		t.Error("expected cleared slot")
	}
}

func TestCallbacks_SetHandler(t *testing.T) {
	cb := NewCallbacks(nil)
	var logs, watches int
	cb.SetHandler(HandlerFuncs{
		Log:   func(string) { logs++ },
		Watch: func() { watches++ },
	})
	cb.Log("x")
	cb.Watch()
	if logs != 1 || watches != 1 {
		t.Errorf("expected one of each, got logs=%d watches=%d", logs, watches)
	}

	cb.SetHandler(nil)
	if cb.Log("x") || cb.Watch() {
		t.Error("expected both slots cleared")
	}
}

func TestCallbacks_ReplaceDuringDispatch(t *testing.T) {
	cb := NewCallbacks(nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	var aCount, bCount atomic.Int32

	cb.RegisterLog(func(string) {
		if aCount.Add(1) == 1 {
			close(entered)
			<-release
		}
	})

	done := make(chan struct{})
	go func() {
		cb.Log("in flight")
		close(done)
	}()
	<-entered

	cb.RegisterLog(func(string) { bCount.Add(1) })
	close(release)
	<-done

	for i := 0; i < 10; i++ {
		cb.Log("after")
	}
	if aCount.Load() != 1 {
		t.Errorf("expected handler A to see only the in-flight event, got %d", aCount.Load())
	}
	if bCount.Load() != 10 {
		t.Errorf("expected handler B to see every later event, got %d", bCount.Load())
	}
}

func TestCallbacks_ConcurrentReplacement(t *testing.T) {
	cb := NewCallbacks(nil)
	var a, b atomic.Int64
	handlerA := func(string) { a.Add(1) }
	handlerB := func(string) { b.Add(1) }
	cb.RegisterLog(handlerA)

	const events = 2000
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < events/4; i++ {
				cb.Log("event")
			}
		}()
	}
	for i := 0; i < 100; i++ {
		if i%2 == 0 {
			cb.RegisterLog(handlerB)
		} else {
			cb.RegisterLog(handlerA)
		}
	}
	wg.Wait()

	if got := a.Load() + b.Load(); got != events {
		t.Errorf("expected every event delivered exactly once, got %d", got)
	}
}

func TestLogSink(t *testing.T) {
	cb := NewCallbacks(nil)
	var fallback bytes.Buffer
	sink := &LogSink{Callbacks: cb, Fallback: &fallback}

	_, _ = sink.Write([]byte("before registration\n"))
	if fallback.String() != "before registration\n" {
		t.Errorf("expected fallback output, got %q", fallback.String())
	}

	var got []string
	cb.RegisterLog(func(m string) { got = append(got, m) })
	n, err := sink.Write([]byte("engine ready\n"))
	if err != nil || n != len("engine ready\n") {
		t.Errorf("unexpected write result %d %v", n, err)
	}
	_, _ = sink.Write([]byte("\n"))

	if len(got) != 1 || got[0] != "engine ready" {
		t.Errorf("expected trimmed single line, got %q", got)
	}
	if fallback.Len() != len("before registration\n") {
		t.Error("expected no fallback output once a handler is registered")
	}
}
