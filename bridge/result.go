package bridge

import (
	"encoding/json"

	"github.com/kbukum/kcoidc/engine"
	apperrors "github.com/kbukum/kcoidc/errors"
)

// TokenType classifies a validated token.
type TokenType = engine.TokenType

// Token types as exposed to hosts.
const (
	TokenTypeStandard = engine.TokenTypeStandard
	TokenTypeAccess   = engine.TokenTypeAccess
	TokenTypeRefresh  = engine.TokenTypeRefresh
)

// ValidatedToken is the payload of a successful validation. The claim sets
// are JSON encoded.
type ValidatedToken struct {
	Subject        string
	TokenType      TokenType
	StandardClaims string
	ExtraClaims    string
}

func newValidatedToken(tok *engine.Token) (*ValidatedToken, error) {
	std, err := json.Marshal(tok.Standard)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	extra, err := json.Marshal(tok.Extra)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &ValidatedToken{
		Subject:        tok.Subject,
		TokenType:      tok.Type,
		StandardClaims: string(std),
		ExtraClaims:    string(extra),
	}, nil
}

// ValidationResult is either a ValidatedToken or a non-zero error code.
type ValidationResult struct {
	token *ValidatedToken
	code  apperrors.ErrorCode
	err   error
}

// ValidationOK returns a successful result.
func ValidationOK(tok *ValidatedToken) ValidationResult {
	return ValidationResult{token: tok}
}

// ValidationFailed returns a failed result for err. Errors without a code
// are reported as ErrCodeUnknown.
func ValidationFailed(err error) ValidationResult {
	return ValidationResult{code: failureCode(err), err: err}
}

// OK reports whether validation succeeded.
func (r ValidationResult) OK() bool { return r.token != nil }

// Code returns the error code, ErrCodeNone on success.
func (r ValidationResult) Code() apperrors.ErrorCode { return r.code }

// Err returns the failure, or nil on success.
func (r ValidationResult) Err() error { return r.err }

// Token returns the payload. ok is false for failed results.
func (r ValidationResult) Token() (tok *ValidatedToken, ok bool) {
	return r.token, r.token != nil
}

// UserinfoResult is either a JSON userinfo document or a non-zero error
// code.
type UserinfoResult struct {
	payload string
	ok      bool
	code    apperrors.ErrorCode
	err     error
}

// UserinfoOK returns a successful result carrying payload.
func UserinfoOK(payload string) UserinfoResult {
	return UserinfoResult{payload: payload, ok: true}
}

// UserinfoFailed returns a failed result for err.
func UserinfoFailed(err error) UserinfoResult {
	return UserinfoResult{code: failureCode(err), err: err}
}

// OK reports whether the fetch succeeded.
func (r UserinfoResult) OK() bool { return r.ok }

// Code returns the error code, ErrCodeNone on success.
func (r UserinfoResult) Code() apperrors.ErrorCode { return r.code }

// Err returns the failure, or nil on success.
func (r UserinfoResult) Err() error { return r.err }

// Payload returns the JSON document. ok is false for failed results.
func (r UserinfoResult) Payload() (payload string, ok bool) {
	return r.payload, r.ok
}

func failureCode(err error) apperrors.ErrorCode {
	code := apperrors.CodeOf(err)
	if code == apperrors.ErrCodeNone {
		return apperrors.ErrCodeUnknown
	}
	return code
}
