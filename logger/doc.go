// Package logger provides structured logging for kcoidc using zerolog.
//
// Loggers can write to stdout, stderr or any io.Writer. The bridge uses the
// writer form to forward engine diagnostics to a host supplied log callback.
//
// # Configuration
//
//	kcoidc:
//	  logging:
//	    level: "info"
//	    format: "console"
//
// # Usage
//
//	log := logger.NewDefault("kcoidc").WithComponent("engine")
//	log.Info("discovery complete", logger.Fields("issuer", iss))
package logger
