// Package validation checks settings and boundary arguments before they
// reach the engine.
//
// Checks run through go-playground/validator, extended with a "scope" tag
// for RFC 6749 scope tokens. Failures are *errors.AppError values with
// code ErrCodeInvalidArgument and a "fields" detail listing []FieldError.
//
//	type Settings struct {
//	    MaxConcurrent int `mapstructure:"max_concurrent" validate:"gte=1"`
//	}
//	err := validation.Validate(settings)
//
//	err = validation.Scope("scope", scope)
package validation
