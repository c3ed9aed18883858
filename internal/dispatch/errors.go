package dispatch

import (
	"errors"
	"fmt"

	"github.com/roach88/quark/internal/ir"
)

// OperatorError is the single error type a dispatch returns.
//
// Codes:
//   - UNKNOWN_EXECUTOR / UNKNOWN_OPERATOR: lookup failed, nothing ran
//   - ARGUMENT_ERROR: parsing failed, Err is the *args.ParseError
//   - HANDLER_FAILED: the handler returned an error or panicked
//   - COMMIT_FAILED: an output could not be written back, Err is the *codec.Error
type OperatorError struct {
	Code      ir.ErrorCode
	Executor  string
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *OperatorError) Error() string {
	key := ir.OperatorKey{Executor: e.Executor, Operation: e.Operation}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (operator=%s): %v", e.Code, e.Message, key, e.Err)
	}
	return fmt.Sprintf("%s: %s (operator=%s)", e.Code, e.Message, key)
}

// Unwrap returns the cause.
func (e *OperatorError) Unwrap() error {
	return e.Err
}

// CodeOf returns the dispatcher code carried by err, or "" if none.
func CodeOf(err error) ir.ErrorCode {
	var oe *OperatorError
	if errors.As(err, &oe) {
		return oe.Code
	}
	return ""
}

// IsUnknownExecutor returns true if no operator was registered under the executor.
func IsUnknownExecutor(err error) bool {
	return CodeOf(err) == ir.ErrCodeUnknownExecutor
}

// IsUnknownOperator returns true if the executor exists but the operation does not.
func IsUnknownOperator(err error) bool {
	return CodeOf(err) == ir.ErrCodeUnknownOperator
}

// IsArgumentError returns true if argument parsing failed.
func IsArgumentError(err error) bool {
	return CodeOf(err) == ir.ErrCodeArgument
}

// IsHandlerFailed returns true if the handler reported failure.
func IsHandlerFailed(err error) bool {
	return CodeOf(err) == ir.ErrCodeHandlerFailed
}

// IsCommitFailed returns true if an output buffer could not be written back.
func IsCommitFailed(err error) bool {
	return CodeOf(err) == ir.ErrCodeCommitFailed
}

// ErrPanic is the cause recorded when a handler panics.
var ErrPanic = errors.New("dispatch: handler panic")

func newOperatorError(code ir.ErrorCode, req Request, msg string, err error) *OperatorError {
	return &OperatorError{
		Code:      code,
		Executor:  req.Executor,
		Operation: req.Operation,
		Message:   msg,
		Err:       err,
	}
}
