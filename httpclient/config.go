package httpclient

import (
	"fmt"
	"net/http"

	"github.com/kbukum/kcoidc/resilience"
)

const defaultMaxBodySize = 1 << 20

// Config configures the HTTP client.
type Config struct {
	// HTTP carries the transport and timeout. http.DefaultClient is used
	// when nil; security.NewHTTPClient builds the one used in production.
	HTTP *http.Client

	// Headers are default headers applied to all requests.
	Headers map[string]string

	// MaxBodySize bounds the bytes read from a response. Defaults to 1 MiB.
	MaxBodySize int64

	// CircuitBreaker configures circuit breaker behavior. Nil disables it.
	CircuitBreaker *resilience.CircuitBreakerConfig
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.HTTP == nil {
		c.HTTP = http.DefaultClient
	}
	if c.MaxBodySize == 0 {
		c.MaxBodySize = defaultMaxBodySize
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.MaxBodySize < 0 {
		return fmt.Errorf("httpclient: max body size must not be negative")
	}
	return nil
}

// DefaultCircuitBreakerConfig returns a breaker config that ignores 4xx
// answers.
func DefaultCircuitBreakerConfig(name string) *resilience.CircuitBreakerConfig {
	cfg := resilience.DefaultCircuitBreakerConfig(name)
	cfg.IsFailure = CountsAsFailure
	return &cfg
}
