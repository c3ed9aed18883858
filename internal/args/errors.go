package args

import (
	"errors"
	"fmt"

	"github.com/roach88/quark/internal/ir"
)

// ParseError represents a failure to turn raw tokens into typed values.
//
// Codes produced here:
//   - ARITY_MISMATCH: token count != signature length (Position is -1)
//   - INVALID_NUMBER: malformed numeric literal
//   - UNKNOWN_TYPE_TAG: tag the parser does not interpret
//
// Codec failures (IO_ERROR, SIZE_MISMATCH, FORMAT_ERROR) keep their code;
// the codec error is available through Unwrap.
type ParseError struct {
	// Code identifies the error category.
	Code ir.ErrorCode

	// Position is the zero-based argument index, or -1 for arity errors.
	Position int

	// Tag is the signature tag at Position.
	Tag ir.TypeTag

	// Token is the raw token at Position.
	Token string

	// Message is a human-readable description.
	Message string

	// Err is the underlying strconv or codec error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Position < 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: argument %d (%s %q): %s: %v", e.Code, e.Position, e.Tag, e.Token, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: argument %d (%s %q): %s", e.Code, e.Position, e.Tag, e.Token, e.Message)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// CodeOf returns the parse error code carried by err, or "" if none.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ir.ErrorCode {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// IsArityError returns true if err is an arity mismatch.
func IsArityError(err error) bool {
	return CodeOf(err) == ir.ErrCodeArityMismatch
}

// IsInvalidNumber returns true if err is a malformed numeric literal.
func IsInvalidNumber(err error) bool {
	return CodeOf(err) == ir.ErrCodeInvalidNumber
}

// NewArityError creates a ParseError for a token/signature length mismatch.
func NewArityError(got, want int) *ParseError {
	return &ParseError{
		Code:     ir.ErrCodeArityMismatch,
		Position: -1,
		Message:  fmt.Sprintf("got %d arguments, signature expects %d", got, want),
	}
}
