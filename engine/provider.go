package engine

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/kcoidc/component"
	apperrors "github.com/kbukum/kcoidc/errors"
	"github.com/kbukum/kcoidc/httpclient"
	"github.com/kbukum/kcoidc/logger"
	"github.com/kbukum/kcoidc/observability"
	"github.com/kbukum/kcoidc/resilience"
	"github.com/kbukum/kcoidc/version"
)

// Provider validates tokens issued by one OpenID Provider.
type Provider struct {
	iss    string
	cfg    Config
	log    Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	stopped atomic.Bool

	ready     chan struct{}
	readyOnce sync.Once

	keys      atomic.Pointer[keySet]
	lastErr   atomic.Pointer[string]
	refreshMu sync.Mutex

	refreshLimiter *resilience.RateLimiter
	// client serves discovery and key set requests, userinfo adds a
	// circuit breaker.
	client   *httpclient.Client
	userinfo *httpclient.Client
}

var _ component.Component = (*Provider)(nil)

// ParseIssuer checks that iss is an absolute URL with scheme and host.
func ParseIssuer(iss string) (*url.URL, error) {
	u, err := url.Parse(iss)
	if err != nil {
		return nil, apperrors.InvalidIssuer(iss, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, apperrors.InvalidIssuer(iss, nil)
	}
	return u, nil
}

// NewProvider creates a Provider for iss. It performs no I/O; call Start to
// begin discovery.
func NewProvider(iss string, cfg Config) (*Provider, error) {
	if _, err := ParseIssuer(iss); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	p := &Provider{
		iss:   iss,
		cfg:   cfg,
		log:   cfg.Logger,
		ready: make(chan struct{}),
		refreshLimiter: resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Name:     "jwks-refresh",
			Interval: cfg.RefreshRateLimit,
			Burst:    1,
			Now:      cfg.Now,
		}),
	}

	var err error
	if p.client, err = httpclient.New(httpclient.Config{HTTP: cfg.HTTPClient}); err != nil {
		return nil, err
	}

	breaker := httpclient.DefaultCircuitBreakerConfig("userinfo")
	breaker.Now = cfg.Now
	breaker.OnStateChange = func(name string, from, to resilience.State) {
		p.log.Warn("circuit breaker state changed", logger.Fields(
			logger.FieldComponent, name,
			logger.FieldState, to.String(),
		))
	}
	p.userinfo, err = httpclient.New(httpclient.Config{HTTP: cfg.HTTPClient, CircuitBreaker: breaker})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Name implements component.Component.
func (p *Provider) Name() string { return "engine" }

// Issuer returns the issuer identifier.
func (p *Provider) Issuer() string { return p.iss }

// APIVersion returns the boundary API level this engine implements.
func (p *Provider) APIVersion() int { return version.APIVersion }

// Start begins background discovery and returns immediately. A Provider
// can be started once.
func (p *Provider) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped.Load() {
		return apperrors.Closed()
	}
	if p.started {
		return apperrors.AlreadyInitialized("start")
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel
	p.done = make(chan struct{})
	p.started = true

	go p.run(runCtx, p.done)

	p.log.Debug("engine started", logger.IssuerFields(p.iss))
	return nil
}

// Stop cancels background work and waits for it to finish or ctx to end.
// Stopping a Provider that was never started succeeds. The wait happens
// outside mu, so a refresh finishing concurrently can still observe the stop.
func (p *Provider) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped.Swap(true) || !p.started {
		p.mu.Unlock()
		return nil
	}
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		return apperrors.Timeout("stop").WithCause(ctx.Err())
	}

	p.keys.Store(nil)
	p.client.CloseIdleConnections()
	p.log.Debug("engine stopped", logger.IssuerFields(p.iss))
	return nil
}

// Ready is closed once the first discovery succeeded.
func (p *Provider) Ready() <-chan struct{} { return p.ready }

// IsReady reports whether Ready is closed.
func (p *Provider) IsReady() bool {
	select {
	case <-p.ready:
		return true
	default:
		return false
	}
}

func (p *Provider) isStopped() bool {
	return p.stopped.Load()
}

// Health implements component.Component.
func (p *Provider) Health(context.Context) component.Health {
	h := component.Health{Name: p.Name(), Status: component.StatusHealthy}

	ks := p.keys.Load()
	switch {
	case p.isStopped():
		h.Status = component.StatusUnhealthy
		h.Message = "stopped"
	case ks == nil:
		h.Status = component.StatusDegraded
		h.Message = "discovery pending"
		if last := p.lastErr.Load(); last != nil {
			h.Message += ": " + *last
		}
	default:
		h.Message = fmt.Sprintf("%d keys, fetched %s", len(ks.kids), ks.fetchedAt.Format(time.RFC3339))
	}
	return h
}

func (p *Provider) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	retry := resilience.FixedIntervalConfig(p.cfg.RetryInterval)
	retry.After = p.cfg.After
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		p.log.Warn("discovery failed, retrying", logger.IssuerFields(p.iss,
			logger.FieldAttempt, attempt,
			logger.FieldError, err.Error(),
			"backoff", backoff,
		))
	}

	if _, err := resilience.Retry(ctx, retry, p.Refresh); err != nil {
		return
	}
	p.readyOnce.Do(func() { close(p.ready) })
	p.log.Debug("engine ready", logger.IssuerFields(p.iss))

	if p.cfg.RefreshInterval < 0 {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.cfg.After(p.cfg.RefreshInterval):
			if _, err := p.Refresh(ctx); err != nil && ctx.Err() == nil {
				p.log.Warn("key set refresh failed", logger.IssuerFields(p.iss, logger.FieldError, err.Error()))
			}
		}
	}
}

// Refresh fetches discovery and the key set and installs them. It reports
// whether the key set changed; OnRefresh is called when it did.
func (p *Provider) Refresh(ctx context.Context) (bool, error) {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	ctx, span := observability.StartIssuerSpan(ctx, observability.SpanDiscovery, p.iss)
	defer span.End()

	ks, err := fetchKeySet(ctx, p.client, p.iss, p.cfg.Now())
	if err != nil {
		msg := err.Error()
		p.lastErr.Store(&msg)
		observability.SetSpanError(ctx, err)
		p.cfg.Metrics.RecordDiscovery(ctx, "error")
		return false, err
	}
	p.lastErr.Store(nil)
	p.cfg.Metrics.RecordDiscovery(ctx, "ok")
	if p.isStopped() {
		return false, apperrors.Closed()
	}

	prev := p.keys.Load()
	p.keys.Store(ks)
	changed := prev == nil || prev.fingerprint() != ks.fingerprint()
	if changed {
		p.log.Debug("key set updated", logger.IssuerFields(p.iss, logger.FieldKeyCount, len(ks.kids)))
		p.cfg.Metrics.RecordKeySetUpdate(ctx)
		if p.cfg.OnRefresh != nil {
			p.cfg.OnRefresh()
		}
	}
	return changed, nil
}

// refreshForUnknownKey refreshes the key set when the rate limit allows and
// returns the resulting set, or nil when no refresh happened.
func (p *Provider) refreshForUnknownKey(ctx context.Context) *keySet {
	if !p.refreshLimiter.Allow() {
		return nil
	}
	if _, err := p.Refresh(ctx); err != nil {
		p.log.Warn("key set refresh for unknown kid failed", logger.IssuerFields(p.iss, logger.FieldError, err.Error()))
		return nil
	}
	return p.keys.Load()
}
