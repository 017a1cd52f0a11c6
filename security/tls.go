package security

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync/atomic"
)

// TLSConfig holds TLS settings for connections to the issuer.
type TLSConfig struct {
	// CAFile is the path to an additional CA certificate bundle. The system
	// roots are used when empty.
	CAFile string `yaml:"ca_file" mapstructure:"ca_file"`

	// CertFile is the path to the client TLS certificate file (for mTLS).
	CertFile string `yaml:"cert_file" mapstructure:"cert_file"`

	// KeyFile is the path to the client TLS key file (for mTLS).
	KeyFile string `yaml:"key_file" mapstructure:"key_file"`

	// ServerName overrides the server name used for certificate verification.
	ServerName string `yaml:"server_name" mapstructure:"server_name"`

	// MinVersion is the minimum TLS version (e.g., tls.VersionTLS12).
	// Defaults to TLS 1.2 if not set.
	MinVersion uint16 `yaml:"min_version" mapstructure:"min_version"`
}

// InsecureFlag toggles certificate verification for connections made with a
// config built by TLSConfig.Build. The zero value verifies.
type InsecureFlag struct {
	v atomic.Bool
}

// Set enables or disables skipping verification. It reports whether the
// value changed.
func (f *InsecureFlag) Set(insecure bool) bool {
	return f.v.Swap(insecure) != insecure
}

// Enabled reports whether verification is skipped.
func (f *InsecureFlag) Enabled() bool {
	return f != nil && f.v.Load()
}

// Build creates a *tls.Config from the configuration. Chain verification is
// done in VerifyConnection so that insecure can be changed after the
// config is in use. A nil flag always verifies.
func (c *TLSConfig) Build(insecure *InsecureFlag) (*tls.Config, error) {
	if c == nil {
		c = &TLSConfig{}
	}
	roots, err := c.roots()
	if err != nil {
		return nil, err
	}
	certs, err := c.clientCerts()
	if err != nil {
		return nil, err
	}

	cfg := &tls.Config{
		ServerName:         c.ServerName,
		MinVersion:         max(c.MinVersion, tls.VersionTLS12),
		RootCAs:            roots,
		Certificates:       certs,
		ClientSessionCache: tls.NewLRUClientSessionCache(0),
		InsecureSkipVerify: true, //nolint:gosec // verified in VerifyConnection
	}
	cfg.VerifyConnection = verifier(roots, "", insecure)
	return cfg, nil
}

// Validate requires cert_file and key_file to be set together.
func (c *TLSConfig) Validate() error {
	if c != nil && (c.CertFile == "") != (c.KeyFile == "") {
		return fmt.Errorf("security/tls: both cert_file and key_file must be provided together")
	}
	return nil
}

// roots returns the system pool extended by CAFile. A nil pool means the
// system roots.
func (c *TLSConfig) roots() (*x509.CertPool, error) {
	if c.CAFile == "" {
		return nil, nil
	}
	pem, err := os.ReadFile(c.CAFile)
	if err != nil {
		return nil, fmt.Errorf("security/tls: failed to read CA file: %w", err)
	}
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("security/tls: no certificates in CA file %s", c.CAFile)
	}
	return pool, nil
}

func (c *TLSConfig) clientCerts() ([]tls.Certificate, error) {
	if c.CertFile == "" || c.KeyFile == "" {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("security/tls: failed to load client certificate: %w", err)
	}
	return []tls.Certificate{cert}, nil
}

// verifier returns a VerifyConnection hook checking the peer chain against
// roots. An empty serverName falls back to the name from the connection
// state.
func verifier(roots *x509.CertPool, serverName string, insecure *InsecureFlag) func(tls.ConnectionState) error {
	return func(cs tls.ConnectionState) error {
		if insecure.Enabled() {
			return nil
		}
		if len(cs.PeerCertificates) == 0 {
			return fmt.Errorf("security/tls: server presented no certificate")
		}
		name := serverName
		if name == "" {
			name = cs.ServerName
		}
		opts := x509.VerifyOptions{
			Roots:         roots,
			DNSName:       name,
			Intermediates: x509.NewCertPool(),
		}
		for _, cert := range cs.PeerCertificates[1:] {
			opts.Intermediates.AddCert(cert)
		}
		_, err := cs.PeerCertificates[0].Verify(opts)
		return err
	}
}
