// Package host adapts a bridge.Context to hosts that run their own code
// under a cooperative scheduling lock.
//
// Module releases the lock around every blocking call and takes it back
// before results are copied out, so other host work proceeds while a token
// is validated. Failures are returned as *Error carrying the boundary code.
//
//	lock := host.NewSchedulerLock()
//	lock.Acquire()
//	m := host.NewModule(ctx, lock)
//	tok, err := m.ValidateToken(raw)
//
// For hosts that can await, Executor runs calls on a bounded set of
// goroutines and hands back a Future:
//
//	f := m.ValidateTokenAsync(ctx, raw)
//	tok, err := host.Await(ctx, lock, f)
package host
