package bridge

import (
	"context"
	"io"
	"strings"
	"sync/atomic"

	"github.com/kbukum/kcoidc/observability"
)

// Handler receives asynchronous engine events. Methods may be called from
// engine goroutines the host never created.
type Handler interface {
	// OnLog receives one diagnostic line.
	OnLog(message string)
	// OnWatchUpdate is called after the engine's key set changed.
	OnWatchUpdate()
}

// HandlerFuncs adapts plain functions to Handler. Nil fields ignore the
// event.
type HandlerFuncs struct {
	Log   func(message string)
	Watch func()
}

// OnLog implements Handler.
func (h HandlerFuncs) OnLog(message string) {
	if h.Log != nil {
		h.Log(message)
	}
}

// OnWatchUpdate implements Handler.
func (h HandlerFuncs) OnWatchUpdate() {
	if h.Watch != nil {
		h.Watch()
	}
}

// Callback kinds, used as metric attributes.
const (
	CallbackLog   = "log"
	CallbackWatch = "watch"
)

// Callbacks holds one replaceable slot per callback kind. A dispatch loads
// its slot once, so a concurrent replacement is seen either entirely or not
// at all.
type Callbacks struct {
	log     atomic.Pointer[func(string)]
	watch   atomic.Pointer[func()]
	metrics *observability.Metrics
}

// NewCallbacks creates empty slots. metrics may be nil.
func NewCallbacks(metrics *observability.Metrics) *Callbacks {
	return &Callbacks{metrics: metrics}
}

// RegisterLog replaces the log handler. nil clears the slot.
func (c *Callbacks) RegisterLog(fn func(message string)) {
	if fn == nil {
		c.log.Store(nil)
		return
	}
	c.log.Store(&fn)
}

// RegisterWatch replaces the watch handler. nil clears the slot.
func (c *Callbacks) RegisterWatch(fn func()) {
	if fn == nil {
		c.watch.Store(nil)
		return
	}
	c.watch.Store(&fn)
}

// SetHandler routes both kinds to h. nil clears both slots.
func (c *Callbacks) SetHandler(h Handler) {
	if h == nil {
		c.Reset()
		return
	}
	c.RegisterLog(h.OnLog)
	c.RegisterWatch(h.OnWatchUpdate)
}

// Reset clears both slots.
func (c *Callbacks) Reset() {
	c.log.Store(nil)
	c.watch.Store(nil)
}

// Log dispatches message to the log handler and reports whether one was
// registered.
func (c *Callbacks) Log(message string) bool {
	fn := c.log.Load()
	if fn == nil {
		return false
	}
	c.metrics.RecordCallback(context.Background(), CallbackLog)
	(*fn)(message)
	return true
}

// Watch dispatches a key set update and reports whether a handler was
// registered.
func (c *Callbacks) Watch() bool {
	fn := c.watch.Load()
	if fn == nil {
		return false
	}
	c.metrics.RecordCallback(context.Background(), CallbackWatch)
	(*fn)()
	return true
}

// LogSink is an io.Writer that forwards each written line to the log slot.
// Lines are written to Fallback when no log handler is registered.
type LogSink struct {
	Callbacks *Callbacks
	Fallback  io.Writer
}

// Write implements io.Writer. It never fails.
func (s *LogSink) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\r\n")
	if msg == "" {
		return len(p), nil
	}
	if !s.Callbacks.Log(msg) && s.Fallback != nil {
		_, _ = s.Fallback.Write(p)
	}
	return len(p), nil
}
