package engine

import (
	"strings"

	apperrors "github.com/kbukum/kcoidc/errors"
)

// Scopes returns the scopes granted by extra claims. Both the "scope" and
// "scp" claims are read, as a space separated string or a list.
func Scopes(claims ExtraClaims) []string {
	for _, name := range []string{"scope", "scp"} {
		switch v := claims[name].(type) {
		case string:
			return strings.Fields(v)
		case []any:
			out := make([]string, 0, len(v))
			for _, s := range v {
				if str, ok := s.(string); ok {
					out = append(out, str)
				}
			}
			return out
		case []string:
			return v
		}
	}
	return nil
}

// RequireScopes returns an ErrCodeMissingRequiredScope error naming the
// first of required not granted by claims.
func RequireScopes(claims ExtraClaims, required ...string) error {
	granted := make(map[string]struct{})
	for _, s := range Scopes(claims) {
		granted[s] = struct{}{}
	}
	for _, s := range required {
		if _, ok := granted[s]; !ok {
			return apperrors.MissingScope(s)
		}
	}
	return nil
}
