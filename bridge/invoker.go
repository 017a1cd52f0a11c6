package bridge

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/kcoidc/engine"
	apperrors "github.com/kbukum/kcoidc/errors"
	"github.com/kbukum/kcoidc/observability"
	"github.com/kbukum/kcoidc/validation"
	"github.com/kbukum/kcoidc/version"
)

type validateFunc func(ctx context.Context, eng Engine) (*engine.Token, error)

// ValidateToken validates token against the issuer.
func (c *Context) ValidateToken(token string) ValidationResult {
	return c.ValidateTokenContext(context.Background(), token)
}

// ValidateTokenContext is ValidateToken with a caller context for tracing
// and cancellation of key set refreshes.
func (c *Context) ValidateTokenContext(ctx context.Context, token string) ValidationResult {
	return c.runValidation(ctx, observability.OpValidateToken, token, nil,
		func(ctx context.Context, eng Engine) (*engine.Token, error) {
			return eng.ValidateToken(ctx, token)
		})
}

// ValidateTokenRequireScope validates token and requires it to grant
// scope. It fails with ErrCodeNotSupported when the engine lacks
// CapabilityRequireScope.
func (c *Context) ValidateTokenRequireScope(token, scope string) ValidationResult {
	return c.ValidateTokenRequireScopeContext(context.Background(), token, scope)
}

// ValidateTokenRequireScopeContext is ValidateTokenRequireScope with a
// caller context.
func (c *Context) ValidateTokenRequireScopeContext(ctx context.Context, token, scope string) ValidationResult {
	precheck := func(eng Engine) error {
		if !version.CapabilitiesFor(eng.APIVersion()).Has(CapabilityRequireScope) {
			return apperrors.NotSupported(string(CapabilityRequireScope))
		}
		return validation.Scope("scope", scope)
	}
	return c.runValidation(ctx, observability.OpRequireScope, token, precheck,
		func(ctx context.Context, eng Engine) (*engine.Token, error) {
			return eng.ValidateTokenRequireScope(ctx, token, scope)
		})
}

func (c *Context) runValidation(ctx context.Context, name, token string, precheck func(Engine) error, call validateFunc) ValidationResult {
	op := c.begin(ctx, name)

	tok, err := c.validate(op.Context(), token, precheck, call)
	if err != nil {
		c.end(op, err)
		return ValidationFailed(err)
	}

	op.SetAttributes(attribute.String(observability.AttrTokenType, tok.TokenType.String()))
	c.end(op, nil)
	return ValidationOK(tok)
}

func (c *Context) validate(ctx context.Context, token string, precheck func(Engine) error, call validateFunc) (*ValidatedToken, error) {
	eng, err := c.readyEngine()
	if err != nil {
		return nil, err
	}
	if precheck != nil {
		if err := precheck(eng); err != nil {
			return nil, err
		}
	}
	if err := validation.Token("token", token); err != nil {
		return nil, err
	}

	tok, err := call(ctx, eng)
	if err != nil {
		return nil, err
	}
	return newValidatedToken(tok)
}

// FetchUserinfoWithAccessToken fetches the userinfo document of the issuer
// with token as bearer.
func (c *Context) FetchUserinfoWithAccessToken(token string) UserinfoResult {
	return c.FetchUserinfoContext(context.Background(), token)
}

// FetchUserinfoContext is FetchUserinfoWithAccessToken with a caller
// context.
func (c *Context) FetchUserinfoContext(ctx context.Context, token string) UserinfoResult {
	op := c.begin(ctx, observability.OpFetchUserinfo)

	payload, err := c.fetchUserinfo(op.Context(), token)
	c.end(op, err)
	if err != nil {
		return UserinfoFailed(err)
	}
	return UserinfoOK(payload)
}

func (c *Context) fetchUserinfo(ctx context.Context, token string) (string, error) {
	eng, err := c.readyEngine()
	if err != nil {
		return "", err
	}
	if err := validation.Token("token", token); err != nil {
		return "", err
	}

	userinfo, err := eng.FetchUserinfo(ctx, token)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(userinfo)
	if err != nil {
		return "", apperrors.UserinfoFailed(err)
	}
	return string(b), nil
}
