package bin

import (
	"fmt"

	"github.com/pkg/errors"
)

// MaxSize is the maximum accepted property-tree file size. No legitimate
// tree approaches this; anything larger is treated as corrupt before any
// buffer is allocated.
const MaxSize = 50 * 1024 * 1024

var (
	// ErrInvalidMagic indicates data whose magic bytes are neither PROP nor
	// PTCH.
	ErrInvalidMagic = errors.New("invalid magic bytes (expected PROP or PTCH)")
	// ErrTooSmall indicates data too short to carry the magic bytes.
	ErrTooSmall = errors.New("data too small to be a property tree")
)

// TooLargeError indicates a file over the maximum accepted size.
type TooLargeError struct {
	// Size is the offending size in bytes.
	Size int64
}

// Error implements error.Error.
func (e *TooLargeError) Error() string {
	return fmt.Sprintf("property tree too large (%d bytes, maximum %d)", e.Size, MaxSize)
}

// CrashError indicates that the parser panicked on untrusted input. The
// panic is caught at the codec boundary and never propagates.
type CrashError struct {
	// Reason is a short description of the panic.
	Reason string
}

// Error implements error.Error.
func (e *CrashError) Error() string {
	return fmt.Sprintf("parser crashed: %s", e.Reason)
}
