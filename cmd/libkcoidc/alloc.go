package main

/*
#include <stdlib.h>
*/
import "C"

import (
	"unsafe"

	"github.com/kbukum/kcoidc/bridge"
)

// cAllocator hands out buffers from the C heap. The host releases them
// with free or kcoidc_free.
type cAllocator struct{}

var _ bridge.Allocator = cAllocator{}

func (cAllocator) Alloc(s string) unsafe.Pointer { return unsafe.Pointer(C.CString(s)) }

// cString copies s to the C heap.
func cString(s string) *C.char { return (*C.char)(cAllocator{}.Alloc(s)) }

func (cAllocator) Read(p unsafe.Pointer) string { return C.GoString((*C.char)(p)) }

func (cAllocator) Free(p unsafe.Pointer) { C.free(p) }
