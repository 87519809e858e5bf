// ABOUTME: Tool execution error kinds and constructors
// ABOUTME: Execution failures surface as content, never as protocol errors

package tools

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/aiharness/aiharness/internal/store"
)

// ErrorKind classifies a tool execution failure.
type ErrorKind string

const (
	KindFileNotFound     ErrorKind = "file_not_found"
	KindPermissionDenied ErrorKind = "permission_denied"
	KindInvalidPath      ErrorKind = "invalid_path"
	KindFileTooLarge     ErrorKind = "file_too_large"
	KindIOError          ErrorKind = "io_error"
	KindInvalidArguments ErrorKind = "invalid_arguments"
	KindNotFound         ErrorKind = "not_found"
	KindTimeout          ErrorKind = "timeout"
	KindBinaryFile       ErrorKind = "binary_file"
)

// Error is a classified tool execution failure.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func errFileNotFound(path string) *Error {
	return newError(KindFileNotFound, "File not found: %s", path)
}

func errPermissionDenied(path string) *Error {
	return newError(KindPermissionDenied, "Permission denied: %s", path)
}

func errInvalidPath(format string, args ...any) *Error {
	return newError(KindInvalidPath, "Invalid path: "+format, args...)
}

func errFileTooLarge(path string, size, maxSize int64) *Error {
	return newError(KindFileTooLarge, "File too large: %s (%d bytes, max %d)", path, size, maxSize)
}

func errIO(err error) *Error {
	return newError(KindIOError, "IO error: %v", err)
}

func errInvalidArguments(format string, args ...any) *Error {
	return newError(KindInvalidArguments, "Invalid arguments: "+format, args...)
}

func errToolNotFound(name string) *Error {
	return newError(KindNotFound, "Tool not found: %s", name)
}

func errBinaryFile(path string) *Error {
	return newError(KindBinaryFile, "Binary file cannot be read as text: %s", path)
}

// fromStoreError maps store failures onto tool error kinds. Missing records
// surface as not_found rather than IO failures.
func fromStoreError(err error) *Error {
	if errors.Is(err, store.ErrNotFound) {
		return newError(KindNotFound, "%v", err)
	}
	return errIO(err)
}

// fromOSError maps filesystem errors onto tool error kinds.
func fromOSError(path string, err error) *Error {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, os.ErrNotExist):
		return errFileNotFound(path)
	case errors.Is(err, fs.ErrPermission):
		return errPermissionDenied(path)
	default:
		return errIO(err)
	}
}
