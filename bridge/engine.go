package bridge

import (
	"context"
	"time"

	"github.com/kbukum/kcoidc/component"
	"github.com/kbukum/kcoidc/engine"
)

// Engine is the validation engine driven by a Context. Error codes returned
// by the engine are forwarded to the host unchanged.
type Engine interface {
	component.Component

	// Ready is closed once the engine can validate tokens.
	Ready() <-chan struct{}
	// APIVersion is the boundary API level the engine implements.
	APIVersion() int

	ValidateToken(ctx context.Context, token string) (*engine.Token, error)
	ValidateTokenRequireScope(ctx context.Context, token, scope string) (*engine.Token, error)
	FetchUserinfo(ctx context.Context, accessToken string) (map[string]any, error)
}

// EngineFactory creates an engine for issuer.
type EngineFactory func(issuer string, cfg engine.Config) (Engine, error)

// NewEngine is the default EngineFactory backed by engine.Provider.
func NewEngine(issuer string, cfg engine.Config) (Engine, error) {
	p, err := engine.NewProvider(issuer, cfg)
	if err != nil {
		return nil, err
	}
	return p, nil
}

var _ Engine = (*engine.Provider)(nil)

// Clock supplies time to a Context. Tests substitute a simulated clock.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
