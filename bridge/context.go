package bridge

import (
	"context"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/kcoidc/component"
	"github.com/kbukum/kcoidc/engine"
	apperrors "github.com/kbukum/kcoidc/errors"
	"github.com/kbukum/kcoidc/logger"
	"github.com/kbukum/kcoidc/observability"
	"github.com/kbukum/kcoidc/security"
	"github.com/kbukum/kcoidc/version"
)

// Capability names an optional engine operation.
type Capability = version.Capability

// CapabilityRequireScope is validation with a required scope.
const CapabilityRequireScope = version.CapabilityRequireScope

// stopTimeout bounds engine shutdown in Uninitialize.
const stopTimeout = 10 * time.Second

// State is the lifecycle state of a Context.
type State int32

// Lifecycle states.
const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// noCopy makes go vet report copies of a Context.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Context owns one validation engine and the callback slots of its host.
// A Context must not be copied after first use.
type Context struct {
	noCopy noCopy

	id        string
	settings  Settings
	clock     Clock
	factory   EngineFactory
	metrics   *observability.Metrics
	client    *http.Client
	insecure  *security.InsecureFlag
	callbacks *Callbacks
	log       *logger.Logger
	engineLog *logger.Logger

	// mu serializes lifecycle transitions. Validation calls only read the
	// engine under it.
	mu       sync.RWMutex
	issuer   string
	engine   Engine
	registry *component.Registry
	closed   chan struct{}
}

var _ component.Component = (*Context)(nil)

type options struct {
	settings *Settings
	clock    Clock
	factory  EngineFactory
	metrics  *observability.Metrics
	client   *http.Client
	handler  Handler
}

// Option configures a Context.
type Option func(*options)

// WithSettings replaces the default settings.
func WithSettings(s Settings) Option {
	return func(o *options) { o.settings = &s }
}

// WithClock replaces the wall clock used for waits and token time checks.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithEngineFactory replaces the engine implementation.
func WithEngineFactory(f EngineFactory) Option {
	return func(o *options) { o.factory = f }
}

// WithMetrics records call metrics on m instead of the global meter.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithHTTPClient replaces the issuer HTTP client. SetInsecureSkipVerify has
// no effect on a client supplied this way.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithHandler installs h in both callback slots.
func WithHandler(h Handler) Option {
	return func(o *options) { o.handler = h }
}

// New creates an uninitialized Context.
func New(opts ...Option) (*Context, error) {
	o := options{
		clock:   realClock{},
		factory: NewEngine,
	}
	for _, opt := range opts {
		opt(&o)
	}

	settings := DefaultSettings()
	if o.settings != nil {
		settings = *o.settings
		settings.ApplyDefaults()
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if o.metrics == nil {
		o.metrics = observability.DefaultMetrics()
	}

	c := &Context{
		id:        uuid.NewString(),
		settings:  settings,
		clock:     o.clock,
		factory:   o.factory,
		metrics:   o.metrics,
		client:    o.client,
		insecure:  &security.InsecureFlag{},
		callbacks: NewCallbacks(o.metrics),
	}
	c.insecure.Set(settings.InsecureSkipVerify)
	if o.handler != nil {
		c.callbacks.SetHandler(o.handler)
	}

	sink := &LogSink{Callbacks: c.callbacks}
	if settings.Debug {
		sink.Fallback = os.Stderr
	}
	c.log = logger.NewWithWriter(&settings.Logging, sink, ServiceName).
		WithComponent("bridge").
		WithFields(logger.Fields(logger.FieldContextID, c.id))
	c.engineLog = logger.NewWithWriter(settings.engineLogConfig(), sink, ServiceName).
		WithComponent("engine").
		WithFields(logger.Fields(logger.FieldContextID, c.id))

	if c.client == nil {
		client, err := security.NewHTTPClient(settings.Transport(), c.insecure)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeWrongInitialization, err)
		}
		c.client = client
	}
	return c, nil
}

// Open creates a Context and initializes it with issuer.
func Open(issuer string, opts ...Option) (*Context, error) {
	c, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := c.Initialize(issuer); err != nil {
		return nil, err
	}
	return c, nil
}

// ID identifies the Context in logs and traces.
func (c *Context) ID() string { return c.id }

// Settings returns the settings the Context was created with.
func (c *Context) Settings() Settings { return c.settings }

// Callbacks returns the callback slots.
func (c *Context) Callbacks() *Callbacks { return c.callbacks }

// RegisterLogCallback replaces the log handler.
func (c *Context) RegisterLogCallback(fn func(message string)) { c.callbacks.RegisterLog(fn) }

// RegisterWatchCallback replaces the key set update handler.
func (c *Context) RegisterWatchCallback(fn func()) { c.callbacks.RegisterWatch(fn) }

// SetHandler routes both callback kinds to h.
func (c *Context) SetHandler(h Handler) { c.callbacks.SetHandler(h) }

// Issuer returns the issuer of the current initialization.
func (c *Context) Issuer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.issuer
}

// State returns the lifecycle state.
func (c *Context) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stateLocked()
}

func (c *Context) stateLocked() State {
	switch {
	case c.engine == nil:
		return StateUninitialized
	case isClosed(c.engine.Ready()):
		return StateReady
	default:
		return StateInitializing
	}
}

// Capabilities returns the optional operations of the engine. Before
// Initialize it reports those of the engine built into this library.
func (c *Context) Capabilities() version.Capabilities {
	c.mu.RLock()
	eng := c.engine
	c.mu.RUnlock()
	if eng == nil {
		return version.CapabilitiesFor(version.APIVersion)
	}
	return version.CapabilitiesFor(eng.APIVersion())
}

// SetInsecureSkipVerify toggles TLS verification of the issuer. It fails
// with ErrCodeAlreadyInitialized once the engine is ready.
func (c *Context) SetInsecureSkipVerify(insecure bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stateLocked() == StateReady {
		return apperrors.AlreadyInitialized("set insecure skip verify")
	}
	if c.insecure.Set(insecure) {
		if insecure {
			c.log.Warn("TLS verification is now disabled, this is insecure")
		} else {
			c.log.Debug("TLS verification is now enabled")
		}
	}
	return nil
}

// Initialize creates the engine for issuer and starts discovery in the
// background. It returns without waiting for discovery.
func (c *Context) Initialize(issuer string) error {
	op := c.begin(context.Background(), observability.OpInitialize,
		attribute.String(observability.AttrIssuer, issuer))
	err := c.initialize(op.Context(), issuer)
	c.end(op, err)
	return err
}

func (c *Context) initialize(ctx context.Context, issuer string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine != nil {
		return apperrors.AlreadyInitialized("initialize")
	}
	if _, err := engine.ParseIssuer(issuer); err != nil {
		return err
	}

	eng, err := c.factory(issuer, c.engineConfig())
	if err != nil {
		return err
	}
	registry := component.NewRegistry(c.log)
	if err := registry.Register(eng); err != nil {
		return apperrors.Internal(err)
	}
	if err := registry.StartAll(ctx); err != nil {
		return err
	}

	c.engine = eng
	c.issuer = issuer
	c.registry = registry
	c.closed = make(chan struct{})

	c.log.Debug("initialize success", logger.Fields(logger.FieldIssuer, issuer))
	return nil
}

func (c *Context) engineConfig() engine.Config {
	return engine.Config{
		HTTPClient:      c.client,
		Logger:          c.engineLog,
		Debug:           c.settings.Debug,
		RetryInterval:   c.settings.RetryInterval,
		RefreshInterval: c.settings.RefreshInterval,
		Leeway:          c.settings.Leeway,
		OnRefresh:       func() { c.callbacks.Watch() },
		Metrics:         c.metrics,
		Now:             c.clock.Now,
		After:           c.clock.After,
	}
}

// WaitUntilReady blocks until the engine is ready or timeout elapses on the
// Context clock. Any number of goroutines may wait at once.
func (c *Context) WaitUntilReady(timeout time.Duration) error {
	op := c.begin(context.Background(), observability.OpWaitUntilReady)
	err := c.waitUntilReady(timeout)
	c.end(op, err)
	return err
}

func (c *Context) waitUntilReady(timeout time.Duration) error {
	c.mu.RLock()
	eng, closed := c.engine, c.closed
	c.mu.RUnlock()

	if eng == nil {
		return apperrors.NotInitialized()
	}
	ready := eng.Ready()
	if isClosed(ready) {
		return nil
	}
	if timeout <= 0 {
		return apperrors.Timeout("wait until ready")
	}

	select {
	case <-ready:
		return nil
	case <-closed:
		return apperrors.Closed()
	case <-c.clock.After(timeout):
		return apperrors.Timeout("wait until ready")
	}
}

// Uninitialize stops the engine, clears both callback slots and returns
// the Context to StateUninitialized. It succeeds when already
// uninitialized.
func (c *Context) Uninitialize() error {
	op := c.begin(context.Background(), observability.OpUninitialize)
	err := c.uninitialize(op.Context())
	c.end(op, err)
	return err
}

func (c *Context) uninitialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	err := c.registry.StopAll(ctx)

	close(c.closed)
	c.engine = nil
	c.issuer = ""
	c.registry = nil
	c.callbacks.Reset()

	if err != nil {
		return apperrors.Internal(err)
	}
	c.log.Debug("uninitialize success")
	return nil
}

// Name implements component.Component.
func (c *Context) Name() string { return ServiceName }

// Start implements component.Component by initializing the configured
// issuer.
func (c *Context) Start(context.Context) error {
	if c.settings.Issuer == "" {
		return apperrors.InvalidArgument("issuer", "is required")
	}
	return c.Initialize(c.settings.Issuer)
}

// Stop implements component.Component.
func (c *Context) Stop(context.Context) error {
	return c.Uninitialize()
}

// Health implements component.Component.
func (c *Context) Health(ctx context.Context) component.Health {
	c.mu.RLock()
	registry := c.registry
	c.mu.RUnlock()

	if registry == nil {
		return component.Health{
			Name:    ServiceName,
			Status:  component.StatusUnhealthy,
			Message: StateUninitialized.String(),
		}
	}
	return component.Overall(ServiceName, registry.HealthAll(ctx))
}

// readyEngine returns the engine or ErrCodeNotInitialized before it is
// ready.
func (c *Context) readyEngine() (Engine, error) {
	c.mu.RLock()
	eng := c.engine
	c.mu.RUnlock()
	if eng == nil || !isClosed(eng.Ready()) {
		return nil, apperrors.NotInitialized()
	}
	return eng, nil
}

func (c *Context) begin(ctx context.Context, name string, attrs ...attribute.KeyValue) *observability.Operation {
	attrs = append(attrs, attribute.String(observability.AttrContextID, c.id))
	return observability.Begin(ctx, c.metrics, name, attrs...)
}

func (c *Context) end(op *observability.Operation, err error) {
	code := apperrors.CodeOf(err)
	if code == apperrors.ErrCodeUnknown {
		c.log.Debug("unclassified failure", logger.ErrorFields("call", err))
	}
	op.End(code.Text(), err)
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
