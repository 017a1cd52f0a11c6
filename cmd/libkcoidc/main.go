// Command libkcoidc builds the kcoidc C library:
//
//	go build -buildmode=c-shared -o libkcoidc.so ./cmd/libkcoidc
//
// All exports operate on the process wide default context. String results
// are allocated with malloc and owned by the caller; failed validations
// return NULL for every string field.
package main

/*
#include <stdlib.h>

#define KCOIDC_API 1
#define KCOIDC_API_MINOR 1
#define KCOIDC_VERSION (KCOIDC_API * 10000 + KCOIDC_API_MINOR * 100)

static int const KCOIDC_TOKEN_TYPE_STANDARD = 0;
static int const KCOIDC_TOKEN_TYPE_KCACCESS = 1;
static int const KCOIDC_TOKEN_TYPE_KCREFRESH = 2;
*/
import "C"

import (
	"math"
	"time"
	"unsafe"

	"github.com/kbukum/kcoidc/bridge"
	apperrors "github.com/kbukum/kcoidc/errors"
	"github.com/kbukum/kcoidc/version"
)

func status(err error) C.ulonglong {
	return C.ulonglong(apperrors.CodeOf(err))
}

// readyTimeout converts a wait in seconds, saturating instead of
// overflowing for values a host uses to mean forever.
func readyTimeout(seconds uint64) time.Duration {
	if seconds > uint64(math.MaxInt64/int64(time.Second)) {
		return math.MaxInt64
	}
	return time.Duration(seconds) * time.Second
}

func validationReturn(res bridge.ValidationResult) (*C.char, C.ulonglong, C.int, *C.char, *C.char) {
	rec := bridge.EncodeValidation(res, cAllocator{})
	return (*C.char)(rec.Subject), C.ulonglong(rec.Status), C.int(rec.TokenType),
		(*C.char)(rec.StandardClaims), (*C.char)(rec.ExtraClaims)
}

//export kcoidc_insecure_skip_verify
func kcoidc_insecure_skip_verify(enableInsecure C.int) C.ulonglong {
	return status(bridge.SetInsecureSkipVerify(enableInsecure == 1))
}

//export kcoidc_initialize
func kcoidc_initialize(issCString *C.char) C.ulonglong {
	return status(bridge.Initialize(C.GoString(issCString)))
}

//export kcoidc_wait_until_ready
func kcoidc_wait_until_ready(timeout C.ulonglong) C.ulonglong {
	return status(bridge.WaitUntilReady(readyTimeout(uint64(timeout))))
}

//export kcoidc_validate_token_s
func kcoidc_validate_token_s(tokenCString *C.char) (*C.char, C.ulonglong, C.int, *C.char, *C.char) {
	return validationReturn(bridge.ValidateToken(C.GoString(tokenCString)))
}

//export kcoidc_validate_token_and_require_scope_s
func kcoidc_validate_token_and_require_scope_s(tokenCString, requiredScopeCString *C.char) (*C.char, C.ulonglong, C.int, *C.char, *C.char) {
	return validationReturn(bridge.ValidateTokenRequireScope(C.GoString(tokenCString), C.GoString(requiredScopeCString)))
}

//export kcoidc_fetch_userinfo_with_accesstoken_s
func kcoidc_fetch_userinfo_with_accesstoken_s(tokenCString *C.char) (*C.char, C.ulonglong) {
	rec := bridge.EncodeUserinfo(bridge.FetchUserinfoWithAccessToken(C.GoString(tokenCString)), cAllocator{})
	return (*C.char)(rec.Payload), C.ulonglong(rec.Status)
}

//export kcoidc_uninitialize
func kcoidc_uninitialize() C.ulonglong {
	return status(bridge.Uninitialize())
}

//export kcoidc_version
func kcoidc_version() C.int {
	return C.int(version.APIVersion)
}

//export kcoidc_has_capability
func kcoidc_has_capability(nameCString *C.char) C.int {
	if bridge.HasCapability(C.GoString(nameCString)) {
		return 1
	}
	return 0
}

//export kcoidc_status_text
func kcoidc_status_text(code C.ulonglong) *C.char {
	return cString(apperrors.ErrorCode(code).Text())
}

//export kcoidc_free
func kcoidc_free(p unsafe.Pointer) {
	C.free(p)
}

func main() {}
