package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/kbukum/kcoidc/logger"
	"github.com/kbukum/kcoidc/observability"
)

var (
	defaultOnce    sync.Once
	defaultContext *Context
)

// Default returns the process wide Context used by the package level
// functions. Its settings are loaded with LoadSettings; invalid settings
// are logged and replaced by the defaults. OTLP export is installed for the
// life of the process when the settings enable it.
func Default() *Context {
	defaultOnce.Do(func() {
		settings, err := LoadSettings()
		if err != nil {
			logger.Warn("invalid kcoidc settings, using defaults", logger.ErrorFields("load_settings", err))
			settings = DefaultSettings()
		}
		if _, err := observability.Setup(context.Background(), settings.Metrics); err != nil {
			logger.Warn("metrics export disabled", logger.ErrorFields("setup_metrics", err))
		}
		c, err := New(WithSettings(settings))
		if err != nil {
			logger.Warn("kcoidc settings rejected, using defaults", logger.ErrorFields("new_context", err))
			c, err = New()
			if err != nil {
				panic("bridge: default context: " + err.Error())
			}
		}
		defaultContext = c
	})
	return defaultContext
}

// SetInsecureSkipVerify calls SetInsecureSkipVerify on the default Context.
func SetInsecureSkipVerify(insecure bool) error {
	return Default().SetInsecureSkipVerify(insecure)
}

// Initialize calls Initialize on the default Context.
func Initialize(issuer string) error {
	return Default().Initialize(issuer)
}

// WaitUntilReady calls WaitUntilReady on the default Context.
func WaitUntilReady(timeout time.Duration) error {
	return Default().WaitUntilReady(timeout)
}

// Uninitialize calls Uninitialize on the default Context.
func Uninitialize() error {
	return Default().Uninitialize()
}

// ValidateToken calls ValidateToken on the default Context.
func ValidateToken(token string) ValidationResult {
	return Default().ValidateToken(token)
}

// ValidateTokenRequireScope calls ValidateTokenRequireScope on the default
// Context.
func ValidateTokenRequireScope(token, scope string) ValidationResult {
	return Default().ValidateTokenRequireScope(token, scope)
}

// FetchUserinfoWithAccessToken calls FetchUserinfoWithAccessToken on the
// default Context.
func FetchUserinfoWithAccessToken(token string) UserinfoResult {
	return Default().FetchUserinfoWithAccessToken(token)
}

// RegisterLogCallback replaces the log handler of the default Context.
func RegisterLogCallback(fn func(message string)) {
	Default().RegisterLogCallback(fn)
}

// RegisterWatchCallback replaces the watch handler of the default Context.
func RegisterWatchCallback(fn func()) {
	Default().RegisterWatchCallback(fn)
}

// HasCapability reports whether the default Context's engine provides the
// named capability.
func HasCapability(name string) bool {
	return Default().Capabilities().Has(Capability(name))
}
