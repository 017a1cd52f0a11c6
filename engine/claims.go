package engine

import (
	"encoding/json"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Token claims used by Kopano Konnect.
const (
	IsAccessTokenClaim  = "kc.isAccessToken"
	IsRefreshTokenClaim = "kc.isRefreshToken"

	IdentityClaim         = "kc.identity"
	IdentifiedUserIDClaim = "kc.i.id"
)

// TokenType classifies a validated token.
type TokenType int

// Token types. The values are part of the ABI.
const (
	TokenTypeStandard TokenType = 0
	TokenTypeAccess   TokenType = 1
	TokenTypeRefresh  TokenType = 2
)

// String returns the label printed by the command line tools.
func (t TokenType) String() string {
	switch t {
	case TokenTypeAccess:
		return "access token"
	case TokenTypeRefresh:
		return "refresh token"
	default:
		return "unknown"
	}
}

// StandardClaims are the registered JWT claims split off a token.
type StandardClaims struct {
	Audience  jwt.ClaimStrings `json:"aud,omitempty"`
	ExpiresAt int64            `json:"exp,omitempty"`
	ID        string           `json:"jti,omitempty"`
	IssuedAt  int64            `json:"iat,omitempty"`
	Issuer    string           `json:"iss,omitempty"`
	NotBefore int64            `json:"nbf,omitempty"`
	Subject   string           `json:"sub,omitempty"`
}

// ExtraClaims are the claims left after the standard claims were removed.
type ExtraClaims map[string]any

// Token is the result of a successful validation.
type Token struct {
	// Subject is the Kopano identified user ID, or sub when the token
	// carries no identity claim.
	Subject  string
	Type     TokenType
	Standard *StandardClaims
	Extra    ExtraClaims
}

// SplitStandardClaims removes the registered claims from claims and
// returns them.
func SplitStandardClaims(claims map[string]any) *StandardClaims {
	return &StandardClaims{
		Audience:  popAudience(claims),
		ExpiresAt: popInt64(claims, "exp"),
		ID:        popString(claims, "jti"),
		IssuedAt:  popInt64(claims, "iat"),
		Issuer:    popString(claims, "iss"),
		NotBefore: popInt64(claims, "nbf"),
		Subject:   popString(claims, "sub"),
	}
}

// TokenTypeOf classifies claims. The Kopano markers win; an RFC 9068
// "at+jwt" typ header marks an access token otherwise.
func TokenTypeOf(claims map[string]any, header map[string]any) TokenType {
	if v, _ := claims[IsAccessTokenClaim].(bool); v {
		return TokenTypeAccess
	}
	if v, _ := claims[IsRefreshTokenClaim].(bool); v {
		return TokenTypeRefresh
	}
	if typ, _ := header["typ"].(string); strings.EqualFold(typ, "at+jwt") || strings.EqualFold(typ, "application/at+jwt") {
		return TokenTypeAccess
	}
	return TokenTypeStandard
}

// AuthenticatedUserID returns the Kopano identified user ID. ok is false
// when the identity claim is absent.
func AuthenticatedUserID(claims map[string]any) (string, bool) {
	identity, _ := claims[IdentityClaim].(map[string]any)
	if identity == nil {
		return "", false
	}
	id, _ := identity[IdentifiedUserIDClaim].(string)
	return id, true
}

func popString(m map[string]any, k string) string {
	v, ok := m[k]
	if !ok {
		return ""
	}
	delete(m, k)
	s, _ := v.(string)
	return s
}

func popInt64(m map[string]any, k string) int64 {
	v, ok := m[k]
	if !ok {
		return 0
	}
	delete(m, k)
	switch vt := v.(type) {
	case float64:
		return int64(vt)
	case int64:
		return vt
	case json.Number:
		n, _ := vt.Int64()
		return n
	}
	return 0
}

func popAudience(m map[string]any) jwt.ClaimStrings {
	v, ok := m["aud"]
	if !ok {
		return nil
	}
	delete(m, "aud")
	switch vt := v.(type) {
	case string:
		return jwt.ClaimStrings{vt}
	case []any:
		out := make(jwt.ClaimStrings, 0, len(vt))
		for _, a := range vt {
			if s, ok := a.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return jwt.ClaimStrings(vt)
	}
	return nil
}
