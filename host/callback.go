package host

import "github.com/kbukum/kcoidc/bridge"

// CallbackAdapter runs Handler under Lock. Engine callbacks arrive on
// engine goroutines that do not hold the host lock.
type CallbackAdapter struct {
	Lock    Lock
	Handler bridge.Handler
}

var _ bridge.Handler = (*CallbackAdapter)(nil)

// OnLog implements bridge.Handler.
func (a *CallbackAdapter) OnLog(message string) {
	a.Lock.Acquire()
	defer a.Lock.Release()
	a.Handler.OnLog(message)
}

// OnWatchUpdate implements bridge.Handler.
func (a *CallbackAdapter) OnWatchUpdate() {
	a.Lock.Acquire()
	defer a.Lock.Release()
	a.Handler.OnWatchUpdate()
}
