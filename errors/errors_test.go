package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorCode_Values(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want uint64
	}{
		{ErrCodeNone, 0},
		{ErrCodeUnknown, 0x101},
		{ErrCodeInvalidIss, 0x102},
		{ErrCodeAlreadyInitialized, 0x103},
		{ErrCodeNotInitialized, 0x104},
		{ErrCodeTimeout, 0x105},
		{ErrCodeTokenUnexpectedSigningMethod, 0x106},
		{ErrCodeTokenMalformed, 0x107},
		{ErrCodeTokenExpiredOrNotValidYet, 0x108},
		{ErrCodeTokenUnknownKey, 0x109},
		{ErrCodeTokenInvalidSignature, 0x10a},
		{ErrCodeTokenValidationFailed, 0x10b},
		{ErrCodeClosed, 0x10c},
		{ErrCodeWrongInitialization, 0x10d},
		{ErrCodeMissingRequiredScope, 0x10e},
		{ErrCodeUserinfoFailed, 0x10f},
		{ErrCodeInvalidArgument, 0x110},
		{ErrCodeNotSupported, 0x111},
	}
	for _, tt := range tests {
		if uint64(tt.code) != tt.want {
			t.Errorf("%s: expected 0x%x, got 0x%x", tt.code.Text(), tt.want, uint64(tt.code))
		}
	}
}

func TestErrorCode_String(t *testing.T) {
	if got := ErrCodeNotInitialized.String(); got != "Not Initialized (:0x104)" {
		t.Errorf("unexpected string %q", got)
	}
	if got := ErrorCode(0x999).Text(); got != "Unknown" {
		t.Errorf("expected unknown text for unmapped code, got %q", got)
	}
	if !ErrCodeNone.OK() || ErrCodeTimeout.OK() {
		t.Error("OK() mismatch")
	}
}

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want Category
	}{
		{ErrCodeNone, CategoryNone},
		{ErrCodeNotInitialized, CategoryLifecycle},
		{ErrCodeAlreadyInitialized, CategoryLifecycle},
		{ErrCodeTimeout, CategoryTimeout},
		{ErrCodeTokenInvalidSignature, CategoryToken},
		{ErrCodeMissingRequiredScope, CategoryToken},
		{ErrCodeUserinfoFailed, CategoryNetwork},
		{ErrCodeUnknown, CategoryInternal},
	}
	for _, tt := range tests {
		t.Run(tt.code.Text(), func(t *testing.T) {
			if got := CategoryOf(tt.code); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestAppError_New_DefaultMessage(t *testing.T) {
	err := New(ErrCodeClosed, "")
	if err.Message != "Closed" {
		t.Errorf("expected code text as message, got %q", err.Message)
	}
	if err.Retryable {
		t.Error("CLOSED should not be retryable")
	}
	if !New(ErrCodeTimeout, "x").Retryable {
		t.Error("TIMEOUT should be retryable")
	}
}

func TestAppError_Is(t *testing.T) {
	err := fmt.Errorf("wait: %w", Timeout("wait_until_ready"))
	if !stderrors.Is(err, ErrTimeout) {
		t.Error("expected wrapped timeout to match ErrTimeout")
	}
	if stderrors.Is(err, ErrNotInitialized) {
		t.Error("timeout must not match ErrNotInitialized")
	}
}

func TestAppError_WithCause_Chain(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := UserinfoFailed(cause)
	if !stderrors.Is(err, cause) {
		t.Error("expected cause to be reachable via errors.Is")
	}
	if !strings.Contains(err.Error(), "refused") {
		t.Errorf("Error() should contain cause, got %q", err.Error())
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ErrCodeNone},
		{"plain", fmt.Errorf("boom"), ErrCodeUnknown},
		{"app", MissingScope("profile"), ErrCodeMissingRequiredScope},
		{"wrapped", fmt.Errorf("outer: %w", InvalidIssuer("x", nil)), ErrCodeInvalidIss},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestAppError_ToResponse(t *testing.T) {
	err := InvalidArgument("token", "must not be empty")
	data, jerr := json.Marshal(err.ToResponse())
	if jerr != nil {
		t.Fatalf("marshal failed: %v", jerr)
	}
	s := string(data)
	for _, want := range []string{`"code":272`, `"text":"Invalid Argument"`, `"category":"lifecycle"`, `"argument":"token"`} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %s in %s", want, s)
		}
	}
}

func TestResponseOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ErrCodeNone},
		{"app error", Closed(), ErrCodeClosed},
		{"wrapped", fmt.Errorf("w: %w", MissingScope("email")), ErrCodeMissingRequiredScope},
		{"foreign", fmt.Errorf("plain"), ErrCodeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := ResponseOf(tt.err).Error
			if body.Code != tt.want {
				t.Errorf("expected %s, got %s", tt.want, body.Code)
			}
			if body.Text != tt.want.Text() {
				t.Errorf("expected text %q, got %q", tt.want.Text(), body.Text)
			}
		})
	}
}

func TestAsAppError(t *testing.T) {
	if _, ok := AsAppError(fmt.Errorf("plain")); ok {
		t.Error("plain error should not convert")
	}
	appErr, ok := AsAppError(fmt.Errorf("w: %w", NotSupported("require_scope")))
	if !ok || appErr.Code != ErrCodeNotSupported {
		t.Errorf("expected NotSupported, got %v", appErr)
	}
	if !IsAppError(Closed()) {
		t.Error("expected IsAppError to be true")
	}
}
