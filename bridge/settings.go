package bridge

import (
	"time"

	"github.com/kbukum/kcoidc/config"
	"github.com/kbukum/kcoidc/logger"
	"github.com/kbukum/kcoidc/observability"
	"github.com/kbukum/kcoidc/security"
	"github.com/kbukum/kcoidc/validation"
	"github.com/kbukum/kcoidc/version"
)

// ServiceName names the configuration file, env file and env prefix.
const ServiceName = "kcoidc"

// Settings configures a Context.
type Settings struct {
	// Issuer is initialized by Start when set.
	Issuer string `yaml:"issuer" mapstructure:"issuer" validate:"omitempty,url"`
	// Debug enables engine debug output.
	Debug bool `yaml:"debug" mapstructure:"debug"`
	// InsecureSkipVerify disables TLS verification of the issuer.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`

	HTTPTimeout     time.Duration `yaml:"http_timeout" mapstructure:"http_timeout" validate:"gte=0"`
	RefreshInterval time.Duration `yaml:"refresh_interval" mapstructure:"refresh_interval"`
	RetryInterval   time.Duration `yaml:"retry_interval" mapstructure:"retry_interval" validate:"gte=0"`
	Leeway          time.Duration `yaml:"leeway" mapstructure:"leeway" validate:"gte=0"`

	// MaxConcurrent bounds asynchronous host calls.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent" validate:"gte=0,lte=65536"`

	TLS     security.TLSConfig   `yaml:"tls" mapstructure:"tls"`
	Logging logger.Config        `yaml:"logging" mapstructure:"logging"`
	Metrics observability.Config `yaml:"metrics" mapstructure:"metrics"`
}

// DefaultSettings returns Settings with every default applied.
func DefaultSettings() Settings {
	var s Settings
	s.ApplyDefaults()
	return s
}

// ApplyDefaults fills in unset fields.
func (s *Settings) ApplyDefaults() {
	if s.HTTPTimeout <= 0 {
		s.HTTPTimeout = 60 * time.Second
	}
	if s.RefreshInterval == 0 {
		s.RefreshInterval = time.Hour
	}
	if s.RetryInterval <= 0 {
		s.RetryInterval = 5 * time.Second
	}
	if s.MaxConcurrent <= 0 {
		s.MaxConcurrent = 256
	}
	s.Logging.ApplyDefaults()
	s.Metrics.ApplyDefaults()
}

// Validate checks the settings.
func (s *Settings) Validate() error {
	if err := validation.Validate(s); err != nil {
		return err
	}
	if err := s.Logging.Validate(); err != nil {
		return err
	}
	return s.TLS.Validate()
}

// Transport returns the HTTP transport configuration of the engine.
func (s *Settings) Transport() security.TransportConfig {
	return security.TransportConfig{
		TLS:       s.TLS,
		Timeout:   s.HTTPTimeout,
		UserAgent: version.UserAgent(),
	}
}

// engineLogConfig returns the logging configuration of the engine log
// stream forwarded to the host.
func (s *Settings) engineLogConfig() *logger.Config {
	cfg := s.Logging
	cfg.Format = "console"
	if s.Debug {
		cfg.Level = "debug"
	}
	return &cfg
}

type settingsFile struct {
	KCOIDC Settings `mapstructure:"kcoidc"`
}

func (f *settingsFile) ApplyDefaults()  { f.KCOIDC.ApplyDefaults() }
func (f *settingsFile) Validate() error { return f.KCOIDC.Validate() }

// LoadSettings reads the kcoidc section of kcoidc.yml and the KCOIDC_*
// environment, for example KCOIDC_DEBUG=1 or KCOIDC_HTTP_TIMEOUT=10s.
func LoadSettings(opts ...config.Option) (Settings, error) {
	var f settingsFile
	if err := config.Load(ServiceName, &f, opts...); err != nil {
		return Settings{}, err
	}
	return f.KCOIDC, nil
}
