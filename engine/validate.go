package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/kbukum/kcoidc/errors"
)

// ValidateToken verifies the signature and time claims of token against the
// current key set and returns its claims.
func (p *Provider) ValidateToken(ctx context.Context, token string) (*Token, error) {
	ks := p.keys.Load()
	if ks == nil {
		if p.isStopped() {
			return nil, apperrors.Closed()
		}
		return nil, apperrors.NotInitialized()
	}

	parser := jwt.NewParser(
		jwt.WithTimeFunc(p.cfg.Now),
		jwt.WithLeeway(p.cfg.Leeway),
		jwt.WithIssuer(p.iss),
	)

	claims := jwt.MapClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return p.keyFor(ctx, ks, t)
	})
	if err != nil {
		err = tokenError(err)
		if p.cfg.Debug {
			p.log.Printf("token validation failed: %v", err)
		}
		return nil, err
	}

	raw := map[string]any(claims)
	tokenType := TokenTypeOf(raw, parsed.Header)
	userID, hasIdentity := AuthenticatedUserID(raw)
	standard := SplitStandardClaims(raw)

	subject := standard.Subject
	if hasIdentity {
		subject = userID
	}

	if p.cfg.Debug {
		p.log.Printf("token validated: subject=%s type=%s kid=%v", subject, tokenType, parsed.Header["kid"])
	}

	return &Token{
		Subject:  subject,
		Type:     tokenType,
		Standard: standard,
		Extra:    ExtraClaims(raw),
	}, nil
}

// ValidateTokenRequireScope validates token and additionally requires it to
// grant scope.
func (p *Provider) ValidateTokenRequireScope(ctx context.Context, token, scope string) (*Token, error) {
	tok, err := p.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := RequireScopes(tok.Extra, scope); err != nil {
		return nil, err
	}
	return tok, nil
}

// keyFor resolves the verification key of t. An unknown kid triggers one
// rate limited key set refresh.
func (p *Provider) keyFor(ctx context.Context, ks *keySet, t *jwt.Token) (interface{}, error) {
	alg, _ := t.Header["alg"].(string)
	if !ks.supportsAlg(alg) {
		return nil, apperrors.Token(apperrors.ErrCodeTokenUnexpectedSigningMethod,
			fmt.Errorf("unexpected signing method: %s", alg))
	}
	if kid, _ := t.Header["kid"].(string); kid == "" {
		return nil, apperrors.Token(apperrors.ErrCodeTokenUnknownKey,
			errors.New("token has no kid header"))
	}

	key, err := ks.jwks.Keyfunc(t)
	if errors.Is(err, keyfunc.ErrKIDNotFound) {
		if refreshed := p.refreshForUnknownKey(ctx); refreshed != nil {
			if !refreshed.supportsAlg(alg) {
				return nil, apperrors.Token(apperrors.ErrCodeTokenUnexpectedSigningMethod,
					fmt.Errorf("unexpected signing method: %s", alg))
			}
			key, err = refreshed.jwks.Keyfunc(t)
		}
	}
	if err != nil {
		if errors.Is(err, keyfunc.ErrKIDNotFound) {
			return nil, apperrors.Token(apperrors.ErrCodeTokenUnknownKey, err)
		}
		return nil, apperrors.Token(apperrors.ErrCodeTokenInvalidSignature, err)
	}
	return key, nil
}

// tokenError maps a jwt parse error to a boundary error.
func tokenError(err error) error {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return apperrors.Token(apperrors.ErrCodeTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return apperrors.Token(apperrors.ErrCodeTokenInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
		return apperrors.Token(apperrors.ErrCodeTokenExpiredOrNotValidYet, err)
	default:
		return apperrors.Token(apperrors.ErrCodeTokenValidationFailed, err)
	}
}
