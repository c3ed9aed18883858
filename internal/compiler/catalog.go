// Package compiler turns a CUE operator catalog into ir.OperatorSig values.
//
// A catalog declares executors, their operations, and each operation's
// positional arguments:
//
//	executor: catzilla: operation: matmul: {
//		summary: "C = alpha*A*B + beta*C"
//		args: [
//			{name: "M", type: "int32"},
//			...
//			{name: "C", type: "float-buffer", output: true},
//		]
//	}
//
// Field order is preserved: executors and operations compile in
// declaration order, and args are positional.
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/quark/internal/ir"
)

// CompileCatalogSource compiles catalog source text.
// filename is used only for error positions.
func CompileCatalogSource(filename string, src []byte) ([]ir.OperatorSig, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	return CompileCatalog(v)
}

// CompileCatalog walks every executor.<name>.operation.<name> in v.
// Uses CUE SDK's Go API directly (not CLI subprocess).
func CompileCatalog(v cue.Value) ([]ir.OperatorSig, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	execVal := v.LookupPath(cue.ParsePath("executor"))
	if !execVal.Exists() {
		return nil, &CompileError{
			Field:   "executor",
			Message: "catalog declares no executors",
			Pos:     v.Pos(),
		}
	}

	iter, err := execVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var ops []ir.OperatorSig
	for iter.Next() {
		executor := iter.Label()

		opsVal := iter.Value().LookupPath(cue.ParsePath("operation"))
		if !opsVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("executor.%s.operation", executor),
				Message: "executor declares no operations",
				Pos:     iter.Value().Pos(),
			}
		}

		opIter, err := opsVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for opIter.Next() {
			op, err := CompileOperator(executor, opIter.Value())
			if err != nil {
				return nil, err
			}
			ops = append(ops, *op)
		}
	}

	return ops, nil
}

// CompileOperator parses one operation struct.
// The operation name is taken from the value's last path selector.
func CompileOperator(executor string, v cue.Value) (*ir.OperatorSig, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	op := &ir.OperatorSig{Executor: executor}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		op.Operation = labels[len(labels)-1].String()
	}

	// Summary is optional
	if sv := v.LookupPath(cue.ParsePath("summary")); sv.Exists() {
		s, err := sv.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		op.Summary = s
	}

	argsVal := v.LookupPath(cue.ParsePath("args"))
	if !argsVal.Exists() {
		return nil, &CompileError{
			Field:   "args",
			Message: "args is required (use [] for a nullary operation)",
			Pos:     v.Pos(),
		}
	}

	args, err := parseArgs(argsVal)
	if err != nil {
		return nil, err
	}
	op.Args = args

	return op, nil
}

// parseArgs extracts the positional argument list.
func parseArgs(v cue.Value) ([]ir.ArgSig, error) {
	listIter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	args := []ir.ArgSig{}
	for listIter.Next() {
		argVal := listIter.Value()

		name, err := argVal.LookupPath(cue.ParsePath("name")).String()
		if err != nil {
			return nil, &CompileError{
				Field:   "args.name",
				Message: "every argument needs a name",
				Pos:     argVal.Pos(),
			}
		}

		typeStr, err := argVal.LookupPath(cue.ParsePath("type")).String()
		if err != nil {
			return nil, &CompileError{
				Field:   "type",
				Message: fmt.Sprintf("argument %q needs a type", name),
				Pos:     argVal.Pos(),
			}
		}
		tag, err := ir.ParseTypeTag(typeStr)
		if err != nil {
			return nil, &CompileError{
				Field:   "type",
				Message: err.Error(),
				Pos:     argVal.Pos(),
			}
		}

		arg := ir.ArgSig{Name: name, Tag: tag}

		// output is optional, default false
		if ov := argVal.LookupPath(cue.ParsePath("output")); ov.Exists() {
			out, err := ov.Bool()
			if err != nil {
				return nil, formatCUEError(err)
			}
			arg.Output = out
		}

		args = append(args, arg)
	}

	return args, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
