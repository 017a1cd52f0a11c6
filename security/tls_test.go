package security

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kbukum/kcoidc/security/tlstest"
)

func TestTLSConfig_Build_Defaults(t *testing.T) {
	var cfg *TLSConfig
	result, err := cfg.Build(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MinVersion != tls.VersionTLS12 {
		t.Errorf("expected MinVersion=TLS12, got %d", result.MinVersion)
	}
	if result.VerifyConnection == nil {
		t.Error("expected VerifyConnection hook")
	}
	if result.ClientSessionCache == nil {
		t.Error("expected session cache")
	}
}

func TestTLSConfig_Build_CustomMinVersion(t *testing.T) {
	cfg := &TLSConfig{MinVersion: tls.VersionTLS13, ServerName: "id.example.com"}
	result, err := cfg.Build(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MinVersion != tls.VersionTLS13 {
		t.Errorf("expected MinVersion=TLS13, got %d", result.MinVersion)
	}
	if result.ServerName != "id.example.com" {
		t.Errorf("expected ServerName, got %s", result.ServerName)
	}
}

func TestTLSConfig_Build_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  func(t *testing.T) *TLSConfig
	}{
		{"missing CA file", func(*testing.T) *TLSConfig { return &TLSConfig{CAFile: "/nonexistent/ca.pem"} }},
		{"missing cert files", func(*testing.T) *TLSConfig {
			return &TLSConfig{CertFile: "/nonexistent/cert.pem", KeyFile: "/nonexistent/key.pem"}
		}},
		{"invalid CA content", func(t *testing.T) *TLSConfig {
			return &TLSConfig{CAFile: tlstest.InvalidPEM(t)}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.cfg(t).Build(nil); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestTLSConfig_Validate(t *testing.T) {
	var nilCfg *TLSConfig
	if err := nilCfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (&TLSConfig{CertFile: "cert.pem", KeyFile: "key.pem"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (&TLSConfig{CertFile: "cert.pem"}).Validate(); err == nil {
		t.Fatal("expected error when CertFile set without KeyFile")
	}
	if err := (&TLSConfig{KeyFile: "key.pem"}).Validate(); err == nil {
		t.Fatal("expected error when KeyFile set without CertFile")
	}
}

func TestTLSConfig_Build_ValidClientCert(t *testing.T) {
	certs := tlstest.Generate(t)
	result, err := (&TLSConfig{CAFile: certs.CAFile, CertFile: certs.CertFile, KeyFile: certs.KeyFile}).Build(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RootCAs == nil {
		t.Error("expected RootCAs to be set")
	}
	if len(result.Certificates) != 1 {
		t.Errorf("expected 1 certificate, got %d", len(result.Certificates))
	}
}

func TestInsecureFlag(t *testing.T) {
	var nilFlag *InsecureFlag
	if nilFlag.Enabled() {
		t.Error("nil flag must verify")
	}
	var f InsecureFlag
	if f.Enabled() {
		t.Error("zero flag must verify")
	}
	if !f.Set(true) || !f.Enabled() {
		t.Error("expected change to insecure")
	}
	if f.Set(true) {
		t.Error("expected no change on repeated set")
	}
}

func newTLSIssuer(t *testing.T, certs *tlstest.Certs) *httptest.Server {
	t.Helper()
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"proto":%q,"ua":%q}`, r.Proto, r.UserAgent())
	}))
	srv.TLS = certs.ServerConfig()
	srv.EnableHTTP2 = true
	srv.StartTLS()
	t.Cleanup(srv.Close)
	return srv
}

func TestNewHTTPClient_VerificationToggle(t *testing.T) {
	certs := tlstest.Generate(t)
	srv := newTLSIssuer(t, certs)

	var insecure InsecureFlag
	client, err := NewHTTPClient(TransportConfig{}, &insecure)
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}

	if resp, err := client.Get(srv.URL); err == nil {
		resp.Body.Close()
		t.Fatal("expected unknown CA to be rejected")
	}

	insecure.Set(true)
	client.CloseIdleConnections()
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("expected insecure request to succeed, got %v", err)
	}
	resp.Body.Close()
}

func TestNewHTTPClient_TrustedCA(t *testing.T) {
	certs := tlstest.Generate(t)
	srv := newTLSIssuer(t, certs)

	client, err := NewHTTPClient(TransportConfig{
		TLS:       TLSConfig{CAFile: certs.CAFile},
		UserAgent: "kcoidc-test/1.0",
	}, nil)
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("expected trusted request to succeed, got %v", err)
	}
	defer resp.Body.Close()
	if resp.ProtoMajor != 2 {
		t.Errorf("expected HTTP/2, got %s", resp.Proto)
	}
	var body struct {
		UA string `json:"ua"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if body.UA != "kcoidc-test/1.0" {
		t.Errorf("expected user agent to be sent, got %q", body.UA)
	}
}

func TestTransportConfig_ApplyDefaults(t *testing.T) {
	cfg := TransportConfig{}
	cfg.ApplyDefaults()
	if cfg.Timeout.Seconds() != 60 || cfg.DialTimeout.Seconds() != 30 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}
