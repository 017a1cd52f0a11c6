package bridge

import (
	"fmt"
	"sync"
	"unsafe"

	apperrors "github.com/kbukum/kcoidc/errors"
)

// Allocator owns the string buffers handed across the boundary. Every
// pointer returned by Alloc must be passed to Free exactly once.
type Allocator interface {
	Alloc(s string) unsafe.Pointer
	Read(p unsafe.Pointer) string
	Free(p unsafe.Pointer)
}

// ValidationRecord is the flattened form of a ValidationResult. Subject,
// StandardClaims and ExtraClaims are owned buffers; all three are nil when
// Status is not zero.
type ValidationRecord struct {
	Subject        unsafe.Pointer
	Status         apperrors.ErrorCode
	TokenType      int
	StandardClaims unsafe.Pointer
	ExtraClaims    unsafe.Pointer
}

// UserinfoRecord is the flattened form of a UserinfoResult. Payload is an
// owned buffer and nil when Status is not zero.
type UserinfoRecord struct {
	Payload unsafe.Pointer
	Status  apperrors.ErrorCode
}

// EncodeValidation flattens res, allocating its strings with alloc. The
// caller owns the returned buffers. Nothing is allocated for a failure.
func EncodeValidation(res ValidationResult, alloc Allocator) ValidationRecord {
	tok, ok := res.Token()
	if !ok {
		return ValidationRecord{Status: res.Code()}
	}
	return ValidationRecord{
		Subject:        alloc.Alloc(tok.Subject),
		Status:         apperrors.ErrCodeNone,
		TokenType:      int(tok.TokenType),
		StandardClaims: alloc.Alloc(tok.StandardClaims),
		ExtraClaims:    alloc.Alloc(tok.ExtraClaims),
	}
}

// DecodeValidation copies rec into a ValidationResult and releases every
// buffer of rec, whatever its status.
func DecodeValidation(rec *ValidationRecord, alloc Allocator) ValidationResult {
	defer ReleaseValidation(rec, alloc)

	if rec.Status != apperrors.ErrCodeNone {
		return ValidationFailed(statusError(rec.Status))
	}
	return ValidationOK(&ValidatedToken{
		Subject:        readOwned(rec.Subject, alloc),
		TokenType:      TokenType(rec.TokenType),
		StandardClaims: readOwned(rec.StandardClaims, alloc),
		ExtraClaims:    readOwned(rec.ExtraClaims, alloc),
	})
}

// ReleaseValidation frees the buffers of rec and clears them, so releasing
// a record twice is harmless.
func ReleaseValidation(rec *ValidationRecord, alloc Allocator) {
	release(&rec.Subject, alloc)
	release(&rec.StandardClaims, alloc)
	release(&rec.ExtraClaims, alloc)
}

// EncodeUserinfo flattens res, allocating its payload with alloc.
func EncodeUserinfo(res UserinfoResult, alloc Allocator) UserinfoRecord {
	payload, ok := res.Payload()
	if !ok {
		return UserinfoRecord{Status: res.Code()}
	}
	return UserinfoRecord{Payload: alloc.Alloc(payload), Status: apperrors.ErrCodeNone}
}

// DecodeUserinfo copies rec into a UserinfoResult and releases its payload.
func DecodeUserinfo(rec *UserinfoRecord, alloc Allocator) UserinfoResult {
	defer ReleaseUserinfo(rec, alloc)

	if rec.Status != apperrors.ErrCodeNone {
		return UserinfoFailed(statusError(rec.Status))
	}
	return UserinfoOK(readOwned(rec.Payload, alloc))
}

// ReleaseUserinfo frees the payload of rec and clears it.
func ReleaseUserinfo(rec *UserinfoRecord, alloc Allocator) {
	release(&rec.Payload, alloc)
}

func readOwned(p unsafe.Pointer, alloc Allocator) string {
	if p == nil {
		return ""
	}
	return alloc.Read(p)
}

func release(p *unsafe.Pointer, alloc Allocator) {
	if *p == nil {
		return
	}
	alloc.Free(*p)
	*p = nil
}

func statusError(code apperrors.ErrorCode) error {
	return apperrors.New(code, code.Text())
}

// HeapAllocator is an Allocator on the Go heap for hosts without a C
// allocator. Freeing an unknown or already freed pointer panics.
type HeapAllocator struct {
	mu     sync.Mutex
	live   map[unsafe.Pointer]struct{}
	allocs int
	frees  int
}

type heapString struct {
	s string
}

// NewHeapAllocator creates an empty HeapAllocator.
func NewHeapAllocator() *HeapAllocator {
	return &HeapAllocator{live: make(map[unsafe.Pointer]struct{})}
}

// Alloc stores a copy of s and returns its handle.
func (a *HeapAllocator) Alloc(s string) unsafe.Pointer {
	p := unsafe.Pointer(&heapString{s: s})
	a.mu.Lock()
	defer a.mu.Unlock()
	a.live[p] = struct{}{}
	a.allocs++
	return p
}

// Read returns the string behind p.
func (a *HeapAllocator) Read(p unsafe.Pointer) string {
	a.mu.Lock()
	_, ok := a.live[p]
	a.mu.Unlock()
	if !ok {
		panic(fmt.Sprintf("bridge: read of unowned buffer %p", p))
	}
	return (*heapString)(p).s
}

// Free releases p.
func (a *HeapAllocator) Free(p unsafe.Pointer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.live[p]; !ok {
		panic(fmt.Sprintf("bridge: free of unowned buffer %p", p))
	}
	delete(a.live, p)
	a.frees++
}

// Live returns the number of buffers not yet freed.
func (a *HeapAllocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

// Stats returns the total number of allocations and frees.
func (a *HeapAllocator) Stats() (allocs, frees int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allocs, a.frees
}
