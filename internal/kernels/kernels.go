// Package kernels provides the built-in operators and binds them to the
// operator table declared in catalog.cue.
//
// Every operator in the catalog must have a handler here and every handler
// must be declared in the catalog; NewRegistry fails otherwise.
package kernels

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/roach88/quark/internal/compiler"
	"github.com/roach88/quark/internal/ir"
	"github.com/roach88/quark/internal/registry"
)

//go:embed catalog.cue
var catalogSrc []byte

// Catalog compiles and validates the embedded operator table.
func Catalog() ([]ir.OperatorSig, error) {
	ops, err := compiler.CompileCatalogSource("catalog.cue", catalogSrc)
	if err != nil {
		return nil, fmt.Errorf("compile catalog: %w", err)
	}
	if errs := compiler.Validate(ops); len(errs) > 0 {
		return nil, fmt.Errorf("invalid catalog: %w", errs[0])
	}
	return ops, nil
}

// Option configures the built-in handlers.
type Option func(*config)

type config struct {
	diag io.Writer
}

// WithDiagnosticWriter sets where test.test prints its payload.
// The default is os.Stdout.
func WithDiagnosticWriter(w io.Writer) Option {
	return func(c *config) { c.diag = w }
}

// NewRegistry builds the frozen registry of built-in operators.
func NewRegistry(opts ...Option) (*registry.Registry, error) {
	cfg := &config{diag: os.Stdout}
	for _, opt := range opts {
		opt(cfg)
	}

	ops, err := Catalog()
	if err != nil {
		return nil, err
	}
	return bind(ops, handlers(cfg))
}

func handlers(cfg *config) map[ir.OperatorKey]registry.Handler {
	return map[ir.OperatorKey]registry.Handler{
		{Executor: "catzilla", Operation: "matmul"}:  matmul,
		{Executor: "catzilla", Operation: "dmatmul"}: dmatmul,
		{Executor: "catzilla", Operation: "scale"}:   scale,
		{Executor: "test", Operation: "test"}:        printNested(cfg.diag),
	}
}

// bind pairs catalog entries with handlers one-to-one.
func bind(ops []ir.OperatorSig, hs map[ir.OperatorKey]registry.Handler) (*registry.Registry, error) {
	b := registry.NewBuilder()
	bound := make(map[ir.OperatorKey]bool, len(hs))

	for _, op := range ops {
		h, ok := hs[op.Key()]
		if !ok {
			return nil, fmt.Errorf("catalog declares %s but no handler implements it", op.Key())
		}
		if err := b.RegisterSig(op, h); err != nil {
			return nil, err
		}
		bound[op.Key()] = true
	}
	for key := range hs {
		if !bound[key] {
			return nil, fmt.Errorf("handler %s is not declared in the catalog", key)
		}
	}

	return b.Build(), nil
}

// printNested writes each row of the payload as space-separated values.
func printNested(w io.Writer) registry.Handler {
	return func(_ context.Context, vals []ir.Value) error {
		payload := vals[0].(ir.Nested)
		for _, row := range payload.Rows {
			fields := make([]string, len(row))
			for i, v := range row {
				fields[i] = strconv.FormatFloat(v, 'g', -1, 64)
			}
			if _, err := fmt.Fprintln(w, strings.Join(fields, " ")); err != nil {
				return fmt.Errorf("test: %w", err)
			}
		}
		return nil
	}
}
