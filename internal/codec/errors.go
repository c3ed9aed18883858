package codec

import (
	"errors"
	"fmt"

	"github.com/roach88/quark/internal/ir"
)

// Error represents a failure to read or write a buffer file.
type Error struct {
	// Code is one of ErrCodeIO, ErrCodeSizeMismatch, ErrCodeFormat.
	Code ir.ErrorCode

	// Path is the file being read or written.
	Path string

	// Message is a human-readable description.
	Message string

	// Err is the underlying OS or decoder error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s %s: %v", e.Code, e.Message, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s %s", e.Code, e.Message, e.Path)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the codec error code carried by err, or "" if none.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ir.ErrorCode {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

func ioError(path, msg string, err error) *Error {
	return &Error{Code: ir.ErrCodeIO, Path: path, Message: msg, Err: err}
}

func sizeMismatch(path string, size int64, width int) *Error {
	return &Error{
		Code:    ir.ErrCodeSizeMismatch,
		Path:    path,
		Message: fmt.Sprintf("file size %d is not a multiple of element width %d:", size, width),
	}
}

func formatError(path string, err error) *Error {
	return &Error{
		Code:    ir.ErrCodeFormat,
		Path:    path,
		Message: "payload is not a sequence of sequences of floats:",
		Err:     err,
	}
}
