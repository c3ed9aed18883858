package compiler

import (
	"fmt"
	"regexp"

	"github.com/roach88/quark/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrInvalidName       = "E101" // executor/operation/arg name not an identifier
	ErrDuplicateOperator = "E102" // (executor, operation) declared twice
	ErrDuplicateArg      = "E103" // two args share a name within one operation
	ErrOutputNotBuffer   = "E104" // output flag on a non-flat-buffer arg
	ErrInvalidTag        = "E105" // tag outside ir.ValidTags
)

// ValidationError represents a catalog validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// Validate checks a compiled catalog as a whole.
// Returns all errors found (does not fail-fast).
func Validate(ops []ir.OperatorSig) []ValidationError {
	var errs []ValidationError
	seen := make(map[ir.OperatorKey]bool, len(ops))

	for _, op := range ops {
		key := op.Key()
		field := key.String()

		if !identPattern.MatchString(op.Executor) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("executor name %q is not an identifier", op.Executor),
				Code:    ErrInvalidName,
			})
		}
		if !identPattern.MatchString(op.Operation) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("operation name %q is not an identifier", op.Operation),
				Code:    ErrInvalidName,
			})
		}

		if seen[key] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "operator declared more than once",
				Code:    ErrDuplicateOperator,
			})
		}
		seen[key] = true

		errs = append(errs, validateArgs(field, op.Args)...)
	}

	return errs
}

func validateArgs(field string, args []ir.ArgSig) []ValidationError {
	var errs []ValidationError
	names := make(map[string]bool, len(args))

	for i, a := range args {
		argField := fmt.Sprintf("%s.args[%d]", field, i)

		if names[a.Name] {
			errs = append(errs, ValidationError{
				Field:   argField,
				Message: fmt.Sprintf("duplicate argument name %q", a.Name),
				Code:    ErrDuplicateArg,
			})
		}
		names[a.Name] = true

		if _, err := ir.ParseTypeTag(string(a.Tag)); err != nil {
			errs = append(errs, ValidationError{
				Field:   argField,
				Message: err.Error(),
				Code:    ErrInvalidTag,
			})
		}

		if a.Output && !a.Tag.IsBuffer() {
			errs = append(errs, ValidationError{
				Field:   argField,
				Message: fmt.Sprintf("only flat buffers can be outputs, %q is %s", a.Name, a.Tag),
				Code:    ErrOutputNotBuffer,
			})
		}
	}

	return errs
}
