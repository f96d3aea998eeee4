package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/umbrella-scan/umbrella/internal/specimen"
)

// Code classifies why a path could not be loaded.
type Code string

const (
	CodeNotFound  Code = "NOT_FOUND"
	CodeForbidden Code = "FORBIDDEN"
	CodeIO        Code = "IO_ERROR"
	CodeDecode    Code = "DECODE_FAILED"
	CodeTimeout   Code = "TIMEOUT"
	CodeCanceled  Code = "CANCELED"
)

var errIsDir = errors.New("is a directory")

// LoadError is the error stored in a Result slot when a path fails.
type LoadError struct {
	Path string
	Code Code
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s: %v", e.Path, e.Code, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// CodeOf extracts the code from err, or returns "" when err is not a
// LoadError.
func CodeOf(err error) Code {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

func newLoadError(path string, err error) *LoadError {
	var le *LoadError
	if errors.As(err, &le) {
		return le
	}
	return &LoadError{Path: path, Code: classify(err), Err: err}
}

func classify(err error) Code {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, context.Canceled):
		return CodeCanceled
	case errors.Is(err, fs.ErrNotExist):
		return CodeNotFound
	case errors.Is(err, fs.ErrPermission):
		return CodeForbidden
	case errors.Is(err, specimen.ErrDecode):
		return CodeDecode
	default:
		return CodeIO
	}
}
