package engine

import (
	"net/http"
	"time"

	"github.com/kbukum/kcoidc/observability"
)

// Defaults used when the corresponding Config field is zero.
const (
	DefaultRetryInterval    = 5 * time.Second
	DefaultRefreshInterval  = time.Hour
	DefaultRefreshRateLimit = 5 * time.Minute
)

// Logger is the logging interface used by the engine. *logger.Logger
// satisfies it.
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Printf(format string, args ...interface{})
}

// Config configures a Provider.
type Config struct {
	// HTTPClient is used for discovery, key set and userinfo requests.
	// http.DefaultClient is used when nil.
	HTTPClient *http.Client
	// Logger receives diagnostics. Nothing is logged when nil.
	Logger Logger
	// Debug enables verbose per-token tracing.
	Debug bool

	// RetryInterval is the wait between failed discovery attempts.
	RetryInterval time.Duration
	// RefreshInterval is the period of key set refreshes after the first
	// successful discovery. A negative value disables refreshing.
	RefreshInterval time.Duration
	// RefreshRateLimit is the minimum time between key set refreshes caused
	// by tokens with an unknown kid.
	RefreshRateLimit time.Duration
	// Leeway is the clock skew tolerated for exp, nbf and iat.
	Leeway time.Duration

	// OnRefresh is called after the key set changed, including the first
	// successful discovery. It runs on the goroutine that performed the refresh.
	OnRefresh func()
	// Metrics records discovery and key set events. May be nil.
	Metrics *observability.Metrics

	// Now replaces time.Now for token time checks.
	Now func() time.Time
	// After replaces time.After for retry and refresh waits.
	After func(time.Duration) <-chan time.Time
}

func (c Config) withDefaults() Config {
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.Logger == nil {
		c.Logger = nopLogger{}
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = DefaultRetryInterval
	}
	if c.RefreshInterval == 0 {
		c.RefreshInterval = DefaultRefreshInterval
	}
	if c.RefreshRateLimit <= 0 {
		c.RefreshRateLimit = DefaultRefreshRateLimit
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.After == nil {
		c.After = time.After
	}
	return c
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...map[string]interface{}) {}
func (nopLogger) Warn(string, ...map[string]interface{})  {}
func (nopLogger) Printf(string, ...interface{})           {}
