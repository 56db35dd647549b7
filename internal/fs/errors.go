// Package fs provides filesystem implementations.
//
// This file contains error types and error handling utilities.
package fs

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"

	"sfzplayer/internal/logging"
	"sfzplayer/internal/vfs"
)

var (
	errLogger = logging.GetLogger().WithPrefix("error")

	// ErrReadOnly indicates attempt to modify read-only filesystem
	ErrReadOnly = errors.New("filesystem is read-only")
)

// Error wraps filesystem errors with the operation and affected path.
type Error struct {
	Op   string // Operation that failed (e.g., "lookup", "readdir")
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

// NewFSError creates a new Error with the given operation, path, and underlying error
func NewFSError(op string, path string, err error) *Error {
	fsErr := &Error{
		Op:   op,
		Path: path,
		Err:  err,
	}
	errLogger.Debug("Created new FSError: %v", fsErr)
	return fsErr
}

// ToFuseError converts store and filesystem errors to the syscall errors
// FUSE expects.
func ToFuseError(err error) error {
	if err == nil {
		return nil
	}

	errLogger.Trace("Converting error to FUSE error: %v", err)
	switch {
	case errors.Is(err, ErrReadOnly):
		return syscall.EROFS
	case errors.Is(err, vfs.ErrNotFound), errors.Is(err, os.ErrNotExist):
		return syscall.ENOENT
	case errors.Is(err, vfs.ErrInvalidPath), errors.Is(err, vfs.ErrRootPath):
		return syscall.EINVAL
	case errors.Is(err, os.ErrPermission):
		return syscall.EACCES
	case errors.Is(err, vfs.ErrDecode):
		return syscall.EIO
	default:
		errLogger.Debug("Unknown error type, returning EIO: %v", err)
		return syscall.EIO
	}
}

// Common operation names for consistent logging and error reporting
const (
	OpLookup  = "lookup"  // Looking up a path
	OpReadDir = "readdir" // Reading directory contents
	OpOpen    = "open"    // Opening a file
	OpRead    = "read"    // Reading from a file
	OpCreate  = "create"  // Creating a new file
	OpMkdir   = "mkdir"   // Creating a new directory
	OpRemove  = "remove"  // Removing a file or directory
	OpRename  = "rename"  // Renaming/moving a file or directory
	OpSetattr = "setattr" // Setting file attributes
)

// IsTemporary returns true if the error is likely temporary and the
// operation could succeed if retried, such as a timed-out fetch.
func IsTemporary(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	switch {
	case errors.Is(err, syscall.EAGAIN):
		return true
	case errors.Is(err, syscall.EBUSY):
		return true
	case errors.Is(err, syscall.ETIMEDOUT):
		return true
	default:
		return false
	}
}

// readOnly is the error returned by every mutating operation.
func readOnly(op, path string) error {
	return ToFuseError(NewFSError(op, path, ErrReadOnly))
}
