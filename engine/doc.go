// Package engine validates OpenID Connect tokens against a single issuer.
//
// A Provider discovers the issuer's configuration and key set in the
// background, retrying every RetryInterval until it succeeds, and then
// refreshes the key set every RefreshInterval. Tokens are verified with
// golang-jwt and keys are selected from the key set with keyfunc.
//
//	p, err := engine.NewProvider("https://id.example.com", engine.Config{})
//	if err != nil { ... }
//	_ = p.Start(ctx)
//	<-p.Ready()
//	tok, err := p.ValidateToken(ctx, raw)
//
// Every error returned by the Provider carries an errors.ErrorCode that can
// be passed across the library boundary unchanged.
package engine
