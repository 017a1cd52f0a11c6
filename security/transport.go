package security

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// TransportConfig configures the HTTP client used for discovery, key set
// and userinfo requests.
type TransportConfig struct {
	TLS TLSConfig `yaml:"tls" mapstructure:"tls"`

	// Timeout bounds a whole request including reading the body.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// DialTimeout bounds establishing the TCP connection.
	DialTimeout time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	// UserAgent is sent with every request when set.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
}

// ApplyDefaults fills in the transport defaults.
func (c *TransportConfig) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 30 * time.Second
	}
}

// NewTransport builds an HTTP/2 capable transport whose certificate
// verification follows insecure.
func NewTransport(cfg TransportConfig, insecure *InsecureFlag) (*http.Transport, error) {
	cfg.ApplyDefaults()

	tlsConfig, err := cfg.TLS.Build(insecure)
	if err != nil {
		return nil, err
	}

	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig:       tlsConfig,
	}
	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialTLS(ctx, dialer, transport.TLSClientConfig, network, addr, insecure)
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("security/transport: enable http2: %w", err)
	}
	return transport, nil
}

// dialTLS pins the verified server name to the dialed host, which matters
// for issuers addressed by IP where no SNI is sent.
func dialTLS(ctx context.Context, dialer *net.Dialer, base *tls.Config, network, addr string, insecure *InsecureFlag) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}
	cfg.VerifyConnection = verifier(cfg.RootCAs, cfg.ServerName, insecure)

	rawConn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn := tls.Client(rawConn, cfg)
	if err := conn.HandshakeContext(ctx); err != nil {
		_ = rawConn.Close()
		return nil, err
	}
	return conn, nil
}

// NewHTTPClient wraps NewTransport in a client with the configured timeout.
func NewHTTPClient(cfg TransportConfig, insecure *InsecureFlag) (*http.Client, error) {
	cfg.ApplyDefaults()
	transport, err := NewTransport(cfg, insecure)
	if err != nil {
		return nil, err
	}

	var rt http.RoundTripper = transport
	if cfg.UserAgent != "" {
		rt = &userAgentTransport{next: transport, userAgent: cfg.UserAgent}
	}
	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: rt,
	}, nil
}

type userAgentTransport struct {
	next      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}
	return t.next.RoundTrip(req)
}

func (t *userAgentTransport) CloseIdleConnections() {
	if c, ok := t.next.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}
}
