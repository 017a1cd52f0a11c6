// Package errors provides the status codes and structured error type shared
// by the validation engine, the bridge and the exported C ABI.
//
// Every failure that crosses the library boundary collapses into a single
// numeric ErrorCode. Zero means success; all failure codes live in the
// 0x100 block so they can never collide with it.
package errors
