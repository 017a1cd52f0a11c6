// Package version describes the library build and the boundary API it
// implements.
//
// The API version is what C and managed hosts compare against to decide
// which optional calls they may use:
//
//	if version.CapabilitiesFor(version.APIVersion).Has(version.CapabilityRequireScope) {
//		// kcoidc_validate_token_and_require_scope_s is available
//	}
//
// Version and GitCommit are set at compile time via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/kcoidc/version.Version=1.1.0"
package version
