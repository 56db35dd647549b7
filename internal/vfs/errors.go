// Package vfs provides the virtual file layer: path normalization, the
// lazily populated file store and the resolver that loads entries from
// local handles or remote HTTP resources.
//
// This file contains error types and error handling utilities.
package vfs

import (
	"errors"
	"fmt"

	"sfzplayer/internal/logging"
)

var (
	errLogger = logging.GetLogger().WithPrefix("error")

	// ErrInvalidPath indicates a malformed path (bad escape, missing extension)
	ErrInvalidPath = errors.New("invalid path format")

	// ErrRootPath indicates the path denotes the store root rather than a file
	ErrRootPath = errors.New("path denotes the root")

	// ErrNotFound indicates a remote fetch or local read did not find the file
	ErrNotFound = errors.New("file not found")

	// ErrDecode indicates audio decoding failed on fetched bytes
	ErrDecode = errors.New("audio decode failed")
)

// Error wraps file layer errors with context about the operation and
// affected path to provide more detailed error information.
type Error struct {
	Op   string // Operation that failed (e.g., "fetch", "decode")
	Path string // Affected path
	Err  error  // Underlying error
}

// Error implements the error interface, providing a formatted error message
func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("operation %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("operation %s on %s failed: %v", e.Op, e.Path, e.Err)
}

// Unwrap implements error unwrapping for the errors.Is/As functions
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given operation, path, and underlying error
func NewError(op string, path string, err error) *Error {
	vErr := &Error{
		Op:   op,
		Path: path,
		Err:  err,
	}
	errLogger.Debug("Created new error: %v", vErr)
	return vErr
}

// IsNotFound reports whether err is a NotFound failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Common operation names for consistent logging and error reporting
const (
	OpNormalize = "normalize" // Normalizing a raw path
	OpRegister  = "register"  // Registering an entry in the store
	OpResolve   = "resolve"   // Resolving an entry
	OpFetch     = "fetch"     // Reading contents from a backend
	OpDecode    = "decode"    // Decoding audio contents
	OpIndex     = "index"     // Listing a remote repository
)
