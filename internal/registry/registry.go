// Package registry holds the immutable (executor, operation) → handler table.
//
// A Builder collects descriptors at process start; Build freezes them.
// After Build nothing can be added or removed, so a *Registry is safe
// to share without locking.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/quark/internal/ir"
)

// Handler runs one operator against its parsed arguments.
// Values arrive in signature order. Output buffers are pre-sized by
// their files; handlers write results in place and never resize them.
type Handler func(ctx context.Context, args []ir.Value) error

// Descriptor is one registered operator.
type Descriptor struct {
	Key       ir.OperatorKey
	Signature ir.Signature
	Outputs   []bool // per position, true means commit after success
	ArgNames  []string
	Summary   string
	Handler   Handler
}

// OutputPositions returns the indices flagged as outputs, ascending.
func (d *Descriptor) OutputPositions() []int {
	var out []int
	for i, o := range d.Outputs {
		if o {
			out = append(out, i)
		}
	}
	return out
}

// Registration errors.
var (
	ErrDuplicate       = errors.New("registry: operator already registered")
	ErrOutputsLength   = errors.New("registry: output flags do not match signature length")
	ErrOutputNotBuffer = errors.New("registry: only flat buffers can be outputs")
	ErrNilHandler      = errors.New("registry: nil handler")
	ErrEmptyName       = errors.New("registry: executor and operation must be non-empty")
	ErrBuilt           = errors.New("registry: builder already built")
)

// Builder accumulates descriptors before the table is frozen.
// Builder is not safe for concurrent use.
type Builder struct {
	entries map[ir.OperatorKey]*Descriptor
	built   bool
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{entries: make(map[ir.OperatorKey]*Descriptor)}
}

// Register installs one operator.
func (b *Builder) Register(executor, operation string, sig ir.Signature, outputs []bool, h Handler) error {
	names := make([]string, len(sig))
	for i := range sig {
		names[i] = fmt.Sprintf("arg%d", i)
	}
	return b.add(&Descriptor{
		Key:       ir.OperatorKey{Executor: executor, Operation: operation},
		Signature: append(ir.Signature(nil), sig...),
		Outputs:   append([]bool(nil), outputs...),
		ArgNames:  names,
		Handler:   h,
	})
}

// RegisterSig installs an operator declared in a compiled catalog.
func (b *Builder) RegisterSig(op ir.OperatorSig, h Handler) error {
	names := make([]string, len(op.Args))
	for i, a := range op.Args {
		names[i] = a.Name
	}
	return b.add(&Descriptor{
		Key:       op.Key(),
		Signature: op.Signature(),
		Outputs:   op.OutputFlags(),
		ArgNames:  names,
		Summary:   op.Summary,
		Handler:   h,
	})
}

func (b *Builder) add(d *Descriptor) error {
	if b.built {
		return ErrBuilt
	}
	if d.Key.Executor == "" || d.Key.Operation == "" {
		return ErrEmptyName
	}
	if d.Handler == nil {
		return fmt.Errorf("%w: %s", ErrNilHandler, d.Key)
	}
	if _, exists := b.entries[d.Key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, d.Key)
	}
	if len(d.Outputs) != len(d.Signature) {
		return fmt.Errorf("%w: %s has %d tags and %d flags",
			ErrOutputsLength, d.Key, len(d.Signature), len(d.Outputs))
	}
	for i, out := range d.Outputs {
		if out && !d.Signature[i].IsBuffer() {
			return fmt.Errorf("%w: %s position %d is %s",
				ErrOutputNotBuffer, d.Key, i, d.Signature[i])
		}
	}

	b.entries[d.Key] = d
	return nil
}

// Build freezes the table. The builder cannot be used afterwards.
func (b *Builder) Build() *Registry {
	b.built = true

	r := &Registry{
		byKey:     make(map[ir.OperatorKey]*Descriptor, len(b.entries)),
		executors: make(map[string][]*Descriptor),
	}
	for k, d := range b.entries {
		r.byKey[k] = d
		r.executors[k.Executor] = append(r.executors[k.Executor], d)
	}
	for _, ds := range r.executors {
		sort.Slice(ds, func(i, j int) bool {
			return ds[i].Key.Operation < ds[j].Key.Operation
		})
	}
	b.entries = nil
	return r
}

// Registry is the frozen operator table.
type Registry struct {
	byKey     map[ir.OperatorKey]*Descriptor
	executors map[string][]*Descriptor
}

// Lookup returns the descriptor for (executor, operation).
func (r *Registry) Lookup(executor, operation string) (*Descriptor, bool) {
	d, ok := r.byKey[ir.OperatorKey{Executor: executor, Operation: operation}]
	return d, ok
}

// HasExecutor reports whether any operator is registered under executor.
func (r *Registry) HasExecutor(executor string) bool {
	return len(r.executors[executor]) > 0
}

// Executors returns executor names, sorted.
func (r *Registry) Executors() []string {
	names := make([]string, 0, len(r.executors))
	for name := range r.executors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Operators returns the descriptors under executor, sorted by operation.
func (r *Registry) Operators(executor string) []*Descriptor {
	ds := r.executors[executor]
	out := make([]*Descriptor, len(ds))
	copy(out, ds)
	return out
}

// All returns every descriptor sorted by (executor, operation).
func (r *Registry) All() []*Descriptor {
	out := make([]*Descriptor, 0, len(r.byKey))
	for _, name := range r.Executors() {
		out = append(out, r.executors[name]...)
	}
	return out
}

// Len returns the number of registered operators.
func (r *Registry) Len() int {
	return len(r.byKey)
}
