package bridge

import (
	"testing"
	"time"

	"github.com/kbukum/kcoidc/config"
	apperrors "github.com/kbukum/kcoidc/errors"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if s.HTTPTimeout != 60*time.Second || s.RetryInterval != 5*time.Second || s.RefreshInterval != time.Hour {
		t.Errorf("unexpected durations %+v", s)
	}
	if s.MaxConcurrent != 256 {
		t.Errorf("expected 256 max concurrent, got %d", s.MaxConcurrent)
	}
	if s.Logging.Level != "info" || s.Metrics.Endpoint != "localhost:4318" {
		t.Errorf("unexpected nested defaults %+v %+v", s.Logging, s.Metrics)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	if ua := s.Transport().UserAgent; ua == "" {
		t.Error("expected a user agent")
	}
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"bad issuer", func(s *Settings) { s.Issuer = "not a url" }},
		{"negative leeway", func(s *Settings) { s.Leeway = -time.Second }},
		{"bad log level", func(s *Settings) { s.Logging.Level = "loud" }},
		{"cert without key", func(s *Settings) { s.TLS.CertFile = "/tmp/cert.pem" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			if err := s.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSettings_EngineLogConfig(t *testing.T) {
	s := DefaultSettings()
	s.Logging.Format = "json"
	if cfg := s.engineLogConfig(); cfg.Format != "console" || cfg.Level != "info" {
		t.Errorf("unexpected engine log config %+v", cfg)
	}
	s.Debug = true
	if cfg := s.engineLogConfig(); cfg.Level != "debug" {
		t.Errorf("expected debug level, got %q", cfg.Level)
	}
}

func TestLoadSettings_Env(t *testing.T) {
	t.Setenv("KCOIDC_DEBUG", "1")
	t.Setenv("KCOIDC_HTTP_TIMEOUT", "10s")
	t.Setenv("KCOIDC_INSECURE_SKIP_VERIFY", "true")

	s, err := LoadSettings(config.WithConfigFile("/nonexistent/kcoidc.yml"))
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if !s.Debug || !s.InsecureSkipVerify {
		t.Errorf("expected flags from env, got %+v", s)
	}
	if s.HTTPTimeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %v", s.HTTPTimeout)
	}
	if s.RetryInterval != 5*time.Second {
		t.Errorf("expected default retry interval, got %v", s.RetryInterval)
	}
}

func TestNew_RejectsInvalidSettings(t *testing.T) {
	s := DefaultSettings()
	s.MaxConcurrent = 1 << 20
	_, err := New(WithSettings(s))
	if apperrors.CodeOf(err) != apperrors.ErrCodeInvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}
