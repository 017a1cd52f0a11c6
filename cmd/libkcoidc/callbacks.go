package main

/*
#include <stdlib.h>
#include "kcoidc_callbacks.h"
*/
import "C"

import (
	"unsafe"

	"github.com/kbukum/kcoidc/bridge"
)

// cHandler forwards callbacks to C function pointers. ctx is the host's
// opaque token and is never dereferenced here.
type cHandler struct {
	log   C.kcoidc_cb_func_log_s
	watch C.kcoidc_cb_func_watch
	ctx   unsafe.Pointer
}

func (h *cHandler) OnLog(message string) {
	s := cString(message)
	defer C.free(unsafe.Pointer(s))
	C.bridge_kcoidc_log_cb(h.log, s, h.ctx)
}

func (h *cHandler) OnWatchUpdate() {
	C.bridge_kcoidc_watch_cb(h.watch, h.ctx)
}

var _ bridge.Handler = (*cHandler)(nil)

//export kcoidc_register_log_cb
func kcoidc_register_log_cb(cb C.kcoidc_cb_func_log_s, ctx unsafe.Pointer) {
	if cb == nil {
		bridge.RegisterLogCallback(nil)
		return
	}
	h := &cHandler{log: cb, ctx: ctx}
	bridge.RegisterLogCallback(h.OnLog)
}

//export kcoidc_register_watch_cb
func kcoidc_register_watch_cb(cb C.kcoidc_cb_func_watch, ctx unsafe.Pointer) {
	if cb == nil {
		bridge.RegisterWatchCallback(nil)
		return
	}
	h := &cHandler{watch: cb, ctx: ctx}
	bridge.RegisterWatchCallback(h.OnWatchUpdate)
}
