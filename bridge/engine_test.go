package bridge

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kbukum/kcoidc/component"
	"github.com/kbukum/kcoidc/engine"
	"github.com/kbukum/kcoidc/version"
)

// fakeEngine is an Engine whose readiness and results are set by the test.
type fakeEngine struct {
	issuer     string
	cfg        engine.Config
	apiVersion int

	ready     chan struct{}
	readyOnce sync.Once

	token *engine.Token
	err   error

	started   atomic.Bool
	stopped   atomic.Bool
	validates atomic.Int32
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		apiVersion: version.APIVersion,
		ready:      make(chan struct{}),
		token: &engine.Token{
			Subject:  "user@example.com",
			Type:     engine.TokenTypeAccess,
			Standard: &engine.StandardClaims{Subject: "user@example.com"},
			Extra:    engine.ExtraClaims{"scope": "profile"},
		},
	}
}

// factory returns an EngineFactory handing out e.
func (e *fakeEngine) factory() EngineFactory {
	return func(issuer string, cfg engine.Config) (Engine, error) {
		e.issuer = issuer
		e.cfg = cfg
		return e, nil
	}
}

func (e *fakeEngine) markReady() { e.readyOnce.Do(func() { close(e.ready) }) }

func (e *fakeEngine) Name() string { return "engine" }

func (e *fakeEngine) Start(context.Context) error {
	e.started.Store(true)
	return nil
}

func (e *fakeEngine) Stop(context.Context) error {
	e.stopped.Store(true)
	return nil
}

func (e *fakeEngine) Health(context.Context) component.Health {
	return component.Health{Name: e.Name(), Status: component.StatusHealthy}
}

func (e *fakeEngine) Ready() <-chan struct{} { return e.ready }
func (e *fakeEngine) APIVersion() int        { return e.apiVersion }

func (e *fakeEngine) ValidateToken(context.Context, string) (*engine.Token, error) {
	e.validates.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	return e.token, nil
}

func (e *fakeEngine) ValidateTokenRequireScope(ctx context.Context, token, scope string) (*engine.Token, error) {
	tok, err := e.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := engine.RequireScopes(tok.Extra, scope); err != nil {
		return nil, err
	}
	return tok, nil
}

func (e *fakeEngine) FetchUserinfo(context.Context, string) (map[string]any, error) {
	if e.err != nil {
		return nil, e.err
	}
	return map[string]any{"sub": e.token.Subject}, nil
}
