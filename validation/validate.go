package validation

import (
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/kcoidc/errors"
)

// scopeToken matches a single scope-token as defined by RFC 6749
// section 3.3.
var scopeToken = regexp.MustCompile(`^[\x21\x23-\x5B\x5D-\x7E]+$`)

var (
	validate *validator.Validate
	once     sync.Once
)

// FieldError names a rejected field and the reason.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func engine() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("mapstructure"), ",")
			if name == "-" || name == "" {
				return snakeCase(fld.Name)
			}
			return name
		})
		// Registration only fails for an empty tag or nil func.
		_ = validate.RegisterValidation("scope", func(fl validator.FieldLevel) bool {
			return scopeToken.MatchString(fl.Field().String())
		})
	})
	return validate
}

// Validate checks s against its `validate` struct tags. Fields are
// reported by their mapstructure path, e.g. "tls.ca_file".
func Validate(s any) error {
	return toAppError("", engine().Struct(s))
}

// Var checks a single value against tag, reporting failures under field.
func Var(field string, value any, tag string) error {
	return toAppError(field, engine().Var(value, tag))
}

func toAppError(field string, err error) error {
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.New(errors.ErrCodeInvalidArgument, "validation failed").WithCause(err)
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, e := range verrs {
		name := field
		if name == "" {
			name = fieldPath(e.Namespace())
		}
		fields = append(fields, FieldError{Field: name, Message: describe(e)})
	}
	return invalid(fields)
}

func invalid(fields []FieldError) *errors.AppError {
	msgs := make([]string, len(fields))
	for i, f := range fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return errors.New(errors.ErrCodeInvalidArgument, strings.Join(msgs, "; ")).
		WithDetail("fields", fields)
}

// fieldPath drops the root struct name, so "Settings.tls.ca_file" becomes
// "tls.ca_file".
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func describe(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return "must be at least " + e.Param()
	case "max", "lte":
		return "must be at most " + e.Param()
	case "url":
		return "must be a valid URL"
	case "hostname":
		return "must be a valid hostname"
	case "oneof":
		return "must be one of: " + e.Param()
	case "file":
		return "must be an existing file"
	case "scope":
		return "must be a single scope token"
	default:
		return "is invalid"
	}
}

// snakeCase lowers every upper case letter and prefixes it with an
// underscore, except at the start.
func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
