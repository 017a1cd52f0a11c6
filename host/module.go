package host

import (
	"context"
	"time"

	"github.com/kbukum/kcoidc/bridge"
	"github.com/kbukum/kcoidc/observability"
)

// opSetInsecure names SetInsecureSkipVerify in raised errors.
const opSetInsecure = "set_insecure_skip_verify"

// Module is the host facing API of a bridge.Context.
type Module struct {
	ctx   *bridge.Context
	lock  Lock
	alloc bridge.Allocator
	exec  *Executor
}

// ModuleOption configures a Module.
type ModuleOption func(*Module)

// WithAllocator sets the allocator results are copied through.
func WithAllocator(a bridge.Allocator) ModuleOption {
	return func(m *Module) { m.alloc = a }
}

// WithExecutor replaces the executor of the async calls.
func WithExecutor(e *Executor) ModuleOption {
	return func(m *Module) { m.exec = e }
}

// NewModule wraps c. A nil lock disables lock handling.
func NewModule(c *bridge.Context, lock Lock, opts ...ModuleOption) *Module {
	if lock == nil {
		lock = nopLock{}
	}
	m := &Module{ctx: c, lock: lock}
	for _, opt := range opts {
		opt(m)
	}
	if m.alloc == nil {
		m.alloc = bridge.NewHeapAllocator()
	}
	if m.exec == nil {
		m.exec = NewExecutor(ExecutorConfig{
			MaxConcurrent: c.Settings().MaxConcurrent,
			MaxWait:       -1,
		})
	}
	return m
}

// Context returns the wrapped context.
func (m *Module) Context() *bridge.Context { return m.ctx }

// Executor returns the executor of the async calls.
func (m *Module) Executor() *Executor { return m.exec }

// blocking runs fn with the host lock released.
func (m *Module) blocking(fn func()) {
	m.lock.Release()
	defer m.lock.Acquire()
	fn()
}

// SetInsecureSkipVerify toggles TLS verification of the issuer.
func (m *Module) SetInsecureSkipVerify(insecure bool) error {
	var err error
	m.blocking(func() { err = m.ctx.SetInsecureSkipVerify(insecure) })
	return raise(opSetInsecure, err)
}

// Initialize starts the engine for issuer.
func (m *Module) Initialize(issuer string) error {
	var err error
	m.blocking(func() { err = m.ctx.Initialize(issuer) })
	return raise(observability.OpInitialize, err)
}

// WaitUntilReady waits up to timeout for the engine to become ready.
func (m *Module) WaitUntilReady(timeout time.Duration) error {
	var err error
	m.blocking(func() { err = m.ctx.WaitUntilReady(timeout) })
	return raise(observability.OpWaitUntilReady, err)
}

// Uninitialize stops the engine.
func (m *Module) Uninitialize() error {
	var err error
	m.blocking(func() { err = m.ctx.Uninitialize() })
	return raise(observability.OpUninitialize, err)
}

// Close uninitializes the context and waits for pending async calls.
func (m *Module) Close(ctx context.Context) error {
	var err error
	m.blocking(func() { err = m.exec.Close(ctx) })
	if err != nil {
		return raise("close", err)
	}
	return m.Uninitialize()
}

// ValidateToken validates token.
func (m *Module) ValidateToken(token string) (*bridge.ValidatedToken, error) {
	var rec bridge.ValidationRecord
	m.blocking(func() { rec = bridge.EncodeValidation(m.ctx.ValidateToken(token), m.alloc) })
	return m.validation(observability.OpValidateToken, &rec)
}

// ValidateTokenRequireScope validates token and requires scope.
func (m *Module) ValidateTokenRequireScope(token, scope string) (*bridge.ValidatedToken, error) {
	var rec bridge.ValidationRecord
	m.blocking(func() {
		rec = bridge.EncodeValidation(m.ctx.ValidateTokenRequireScope(token, scope), m.alloc)
	})
	return m.validation(observability.OpRequireScope, &rec)
}

// FetchUserinfo returns the userinfo document for token as JSON.
func (m *Module) FetchUserinfo(token string) (string, error) {
	var rec bridge.UserinfoRecord
	m.blocking(func() { rec = bridge.EncodeUserinfo(m.ctx.FetchUserinfoWithAccessToken(token), m.alloc) })
	return m.userinfo(&rec)
}

// ValidateTokenAsync submits ValidateToken to the executor.
func (m *Module) ValidateTokenAsync(ctx context.Context, token string) *Future[*bridge.ValidatedToken] {
	return Submit(ctx, m.exec, func(ctx context.Context) (*bridge.ValidatedToken, error) {
		rec := bridge.EncodeValidation(m.ctx.ValidateTokenContext(ctx, token), m.alloc)
		return m.validation(observability.OpValidateToken, &rec)
	})
}

// ValidateTokenRequireScopeAsync submits ValidateTokenRequireScope to the
// executor.
func (m *Module) ValidateTokenRequireScopeAsync(ctx context.Context, token, scope string) *Future[*bridge.ValidatedToken] {
	return Submit(ctx, m.exec, func(ctx context.Context) (*bridge.ValidatedToken, error) {
		rec := bridge.EncodeValidation(m.ctx.ValidateTokenRequireScopeContext(ctx, token, scope), m.alloc)
		return m.validation(observability.OpRequireScope, &rec)
	})
}

// FetchUserinfoAsync submits FetchUserinfo to the executor.
func (m *Module) FetchUserinfoAsync(ctx context.Context, token string) *Future[string] {
	return Submit(ctx, m.exec, func(ctx context.Context) (string, error) {
		rec := bridge.EncodeUserinfo(m.ctx.FetchUserinfoContext(ctx, token), m.alloc)
		return m.userinfo(&rec)
	})
}

// RegisterLogCallback routes log lines to fn under the host lock.
func (m *Module) RegisterLogCallback(fn func(message string)) {
	if fn == nil {
		m.ctx.RegisterLogCallback(nil)
		return
	}
	a := &CallbackAdapter{Lock: m.lock, Handler: bridge.HandlerFuncs{Log: fn}}
	m.ctx.RegisterLogCallback(a.OnLog)
}

// RegisterWatchCallback routes key set updates to fn under the host lock.
func (m *Module) RegisterWatchCallback(fn func()) {
	if fn == nil {
		m.ctx.RegisterWatchCallback(nil)
		return
	}
	a := &CallbackAdapter{Lock: m.lock, Handler: bridge.HandlerFuncs{Watch: fn}}
	m.ctx.RegisterWatchCallback(a.OnWatchUpdate)
}

// SetHandler routes both callback kinds to h under the host lock.
func (m *Module) SetHandler(h bridge.Handler) {
	if h == nil {
		m.ctx.SetHandler(nil)
		return
	}
	m.ctx.SetHandler(&CallbackAdapter{Lock: m.lock, Handler: h})
}

// validation copies a record into Go memory, releasing it.
func (m *Module) validation(op string, rec *bridge.ValidationRecord) (*bridge.ValidatedToken, error) {
	res := bridge.DecodeValidation(rec, m.alloc)
	if tok, ok := res.Token(); ok {
		return tok, nil
	}
	return nil, raise(op, res.Err())
}

func (m *Module) userinfo(rec *bridge.UserinfoRecord) (string, error) {
	res := bridge.DecodeUserinfo(rec, m.alloc)
	if payload, ok := res.Payload(); ok {
		return payload, nil
	}
	return "", raise(observability.OpFetchUserinfo, res.Err())
}
