// Package testutil provides test doubles for exercising validation
// contexts end to end.
//
// The central piece is Issuer, an httptest OpenID Connect provider that
// serves discovery, a JWKS and a userinfo endpoint, and mints tokens signed
// with its current key:
//
//	func TestValidate(t *testing.T) {
//	    iss := testutil.NewIssuer(t)
//	    token := iss.AccessToken("user@example.com")
//	    // validate token against iss.URL()
//	}
//
// Issuer is a Fixture: besides Start and Stop it supports Reset,
// Snapshot and Restore so tests can inject failures and roll them back.
//
// FakeClock stands in for wall clock waits so readiness timeouts can be
// tested without sleeping.
package testutil
