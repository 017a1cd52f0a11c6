package errors

import "fmt"

// ErrorCode is the numeric status returned across the library boundary.
type ErrorCode uint64

// Status codes. The values are part of the ABI and must never be reordered.
const (
	// ErrCodeNone is returned by every successful operation.
	ErrCodeNone ErrorCode = iota
	// ErrCodeUnknown is used for failures that carry no more specific code.
	ErrCodeUnknown ErrorCode = (1 << 8) | iota
	// ErrCodeInvalidIss indicates the issuer identifier could not be parsed.
	ErrCodeInvalidIss
	// ErrCodeAlreadyInitialized indicates Initialize was called twice, or a
	// setting was changed after the engine became ready.
	ErrCodeAlreadyInitialized
	// ErrCodeNotInitialized indicates the engine has not been initialized or
	// is not yet ready.
	ErrCodeNotInitialized
	// ErrCodeTimeout indicates a wait ran out of time.
	ErrCodeTimeout
	// ErrCodeTokenUnexpectedSigningMethod indicates the token alg is not
	// accepted by the issuer.
	ErrCodeTokenUnexpectedSigningMethod
	// ErrCodeTokenMalformed indicates the token could not be parsed.
	ErrCodeTokenMalformed
	// ErrCodeTokenExpiredOrNotValidYet indicates exp or nbf failed.
	ErrCodeTokenExpiredOrNotValidYet
	// ErrCodeTokenUnknownKey indicates the token kid is not in the key set.
	ErrCodeTokenUnknownKey
	// ErrCodeTokenInvalidSignature indicates signature verification failed.
	ErrCodeTokenInvalidSignature
	// ErrCodeTokenValidationFailed indicates any other claim check failed.
	ErrCodeTokenValidationFailed
	// ErrCodeClosed indicates the engine was shut down during the call.
	ErrCodeClosed
	// ErrCodeWrongInitialization indicates the engine was built without the
	// data it needs, for example a missing key set.
	ErrCodeWrongInitialization
	// ErrCodeMissingRequiredScope indicates a required scope was not granted.
	ErrCodeMissingRequiredScope
	// ErrCodeUserinfoFailed indicates the userinfo endpoint rejected the
	// request or returned an unusable response.
	ErrCodeUserinfoFailed
	// ErrCodeInvalidArgument indicates a caller supplied argument is invalid.
	ErrCodeInvalidArgument
	// ErrCodeNotSupported indicates the linked engine lacks a capability.
	ErrCodeNotSupported
)

var codeText = map[ErrorCode]string{
	ErrCodeNone:                         "None",
	ErrCodeUnknown:                      "Unknown",
	ErrCodeInvalidIss:                   "Invalid Issuer",
	ErrCodeAlreadyInitialized:           "Already Initialized",
	ErrCodeNotInitialized:               "Not Initialized",
	ErrCodeTimeout:                      "Timeout",
	ErrCodeTokenUnexpectedSigningMethod: "Unexpected Token Signing Method",
	ErrCodeTokenMalformed:               "Token Malformed",
	ErrCodeTokenExpiredOrNotValidYet:    "Token Expired Or Not Valid Yet",
	ErrCodeTokenUnknownKey:              "Token Unknown Key",
	ErrCodeTokenInvalidSignature:        "Token Invalid Signature",
	ErrCodeTokenValidationFailed:        "Token Validation Failed",
	ErrCodeClosed:                       "Closed",
	ErrCodeWrongInitialization:          "Wrong Initialization",
	ErrCodeMissingRequiredScope:         "Missing Required Scope",
	ErrCodeUserinfoFailed:               "Userinfo Failed",
	ErrCodeInvalidArgument:              "Invalid Argument",
	ErrCodeNotSupported:                 "Not Supported",
}

// Text returns the human readable label of the code.
func (c ErrorCode) Text() string {
	if s, ok := codeText[c]; ok {
		return s
	}
	return codeText[ErrCodeUnknown]
}

// String implements fmt.Stringer.
func (c ErrorCode) String() string {
	return fmt.Sprintf("%s (:0x%x)", c.Text(), uint64(c))
}

// OK reports whether the code signals success.
func (c ErrorCode) OK() bool { return c == ErrCodeNone }

// Category groups codes by the boundary error taxonomy.
type Category string

const (
	CategoryNone      Category = ""
	CategoryLifecycle Category = "lifecycle"
	CategoryTimeout   Category = "timeout"
	CategoryToken     Category = "token"
	CategoryNetwork   Category = "network"
	CategoryInternal  Category = "internal"
)

var codeCategory = map[ErrorCode]Category{
	ErrCodeInvalidIss:                   CategoryLifecycle,
	ErrCodeAlreadyInitialized:           CategoryLifecycle,
	ErrCodeNotInitialized:               CategoryLifecycle,
	ErrCodeClosed:                       CategoryLifecycle,
	ErrCodeWrongInitialization:          CategoryLifecycle,
	ErrCodeInvalidArgument:              CategoryLifecycle,
	ErrCodeNotSupported:                 CategoryLifecycle,
	ErrCodeTimeout:                      CategoryTimeout,
	ErrCodeTokenUnexpectedSigningMethod: CategoryToken,
	ErrCodeTokenMalformed:               CategoryToken,
	ErrCodeTokenExpiredOrNotValidYet:    CategoryToken,
	ErrCodeTokenUnknownKey:              CategoryToken,
	ErrCodeTokenInvalidSignature:        CategoryToken,
	ErrCodeTokenValidationFailed:        CategoryToken,
	ErrCodeMissingRequiredScope:         CategoryToken,
	ErrCodeUserinfoFailed:               CategoryNetwork,
}

// CategoryOf returns the category a code belongs to.
func CategoryOf(code ErrorCode) Category {
	if code == ErrCodeNone {
		return CategoryNone
	}
	if c, ok := codeCategory[code]; ok {
		return c
	}
	return CategoryInternal
}

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout:        true,
	ErrCodeNotInitialized: true,
	ErrCodeUserinfoFailed: true,
}

// IsRetryableCode returns true if retrying the same call may succeed.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
