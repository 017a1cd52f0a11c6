package engine

import (
	"context"
	"errors"

	apperrors "github.com/kbukum/kcoidc/errors"
	"github.com/kbukum/kcoidc/httpclient"
	"github.com/kbukum/kcoidc/observability"
)

// FetchUserinfo requests the userinfo endpoint with accessToken as bearer
// and returns the decoded claims. Repeated server failures open a circuit
// breaker; 4xx answers do not count against it.
func (p *Provider) FetchUserinfo(ctx context.Context, accessToken string) (map[string]any, error) {
	ks := p.keys.Load()
	if ks == nil {
		return nil, apperrors.NotInitialized()
	}
	endpoint := ks.discovery.UserinfoEndpoint
	if endpoint == "" {
		return nil, apperrors.UserinfoFailed(errors.New("issuer does not publish a userinfo endpoint"))
	}

	ctx, span := observability.StartIssuerSpan(ctx, observability.SpanUserinfo, p.iss)
	defer span.End()

	var claims map[string]any
	err := p.userinfo.GetJSON(ctx, httpclient.Request{URL: endpoint, BearerToken: accessToken}, &claims)
	if err != nil {
		observability.SetSpanError(ctx, err)
		if p.cfg.Debug {
			p.log.Printf("userinfo request failed: %v", err)
		}
		return nil, apperrors.UserinfoFailed(err)
	}
	if claims == nil {
		return nil, apperrors.UserinfoFailed(errors.New("empty userinfo response"))
	}
	return claims, nil
}
