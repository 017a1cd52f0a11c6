package host

import (
	"fmt"

	apperrors "github.com/kbukum/kcoidc/errors"
)

// Error is raised to the host when a call reports a non-zero status.
type Error struct {
	Op   string
	Code apperrors.ErrorCode
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("kcoidc: %s: %s", e.Op, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Category returns the error category of the code.
func (e *Error) Category() apperrors.Category { return apperrors.CategoryOf(e.Code) }

// raise converts err into an *Error for op. It returns nil for a nil err.
func raise(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Code: apperrors.CodeOf(err), Err: err}
}
