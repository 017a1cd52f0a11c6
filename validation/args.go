package validation

import "fmt"

// MaxTokenLength bounds the size in bytes of a token accepted at the
// boundary.
const MaxTokenLength = 64 * 1024

// Token checks a bearer token argument. Empty tokens pass and are reported
// as malformed by the engine.
func Token(field, value string) error {
	if len(value) > MaxTokenLength {
		return invalid([]FieldError{{
			Field:   field,
			Message: fmt.Sprintf("must be %d bytes or less", MaxTokenLength),
		}})
	}
	return nil
}

// Scope checks a required scope argument holds exactly one scope token.
func Scope(field, value string) error {
	return Var(field, value, "required,scope")
}
