package errors

import (
	stderrors "errors"
)

// ErrorResponse is the --json output of the command line tools.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the status code along with its C ABI text.
type ErrorBody struct {
	Code      ErrorCode      `json:"code"`
	Text      string         `json:"text"`
	Category  Category       `json:"category,omitempty"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// ToResponse renders e for JSON output.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:      e.Code,
			Text:      e.Code.Text(),
			Category:  CategoryOf(e.Code),
			Message:   e.Message,
			Retryable: e.Retryable,
			Details:   e.Details,
		},
	}
}

// ResponseOf renders any error. nil yields ErrCodeNone
// and foreign errors are reported as Internal.
func ResponseOf(err error) ErrorResponse {
	if err == nil {
		return ErrorResponse{Error: ErrorBody{Code: ErrCodeNone, Text: ErrCodeNone.Text()}}
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr.ToResponse()
	}
	return Internal(err).ToResponse()
}

// IsAppError reports whether err wraps an *AppError.
func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}

// AsAppError unwraps err to the first *AppError in its chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
