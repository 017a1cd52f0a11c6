// Package bridge drives a validation engine on behalf of native and managed
// hosts.
//
// A Context owns one engine instance and walks it through the lifecycle
// Uninitialized, Initializing and Ready. Validation calls return tagged
// results: a failed ValidationResult carries only its error code, so there
// is no payload a caller could read by mistake. Results are flattened into
// records of allocator owned buffers only at the C boundary, see
// EncodeValidation and DecodeValidation.
//
// Engine diagnostics and key set refresh notifications reach the host
// through the log and watch callback slots of a Context.
//
//	ctx, err := bridge.Open("https://id.example.com")
//	if err != nil { ... }
//	defer ctx.Uninitialize()
//	if err := ctx.WaitUntilReady(10 * time.Second); err != nil { ... }
//	res := ctx.ValidateToken(raw)
//	if tok, ok := res.Token(); ok {
//		fmt.Println(tok.Subject)
//	}
//
// The package level functions operate on a process wide default Context
// for hosts that use the handle free API.
package bridge
