// Package security builds the TLS configuration and HTTP transport used to
// talk to the OpenID Connect provider.
//
// Certificate verification can be switched off at runtime through an
// InsecureFlag. The flag is consulted on every handshake, so flipping it
// affects the next connection without rebuilding the transport.
//
// # TLS Configuration
//
//	cfg := security.TLSConfig{
//	    CAFile:     "/etc/ssl/private-ca.pem",
//	    ServerName: "id.example.com",
//	}
//
//	var insecure security.InsecureFlag
//	client, err := security.NewHTTPClient(security.TransportConfig{TLS: cfg}, &insecure)
package security
