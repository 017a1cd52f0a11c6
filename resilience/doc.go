// Package resilience provides the fault-tolerance primitives used by the
// validation engine and the host adapter.
//
//   - Retry: keeps discovery alive while the issuer is unreachable
//   - CircuitBreaker: fails userinfo calls fast while the endpoint is down
//   - RateLimiter: bounds key set refreshes triggered by unknown key ids
//   - Bulkhead: caps the number of validations offloaded to goroutines
//
// All primitives accept an optional Now function so tests can drive them
// with a simulated clock.
package resilience
