package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quark/internal/ir"
)

func noop(context.Context, []ir.Value) error { return nil }

func TestRegisterAndLookup(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Register("catzilla", "scale",
		ir.Signature{ir.TagInt32, ir.TagFloat32, ir.TagFloatBuffer},
		[]bool{false, false, true}, noop))
	r := b.Build()

	d, ok := r.Lookup("catzilla", "scale")
	require.True(t, ok)
	assert.Equal(t, "catzilla.scale", d.Key.String())
	assert.Equal(t, []int{2}, d.OutputPositions())
	assert.Equal(t, []string{"arg0", "arg1", "arg2"}, d.ArgNames)

	_, ok = r.Lookup("catzilla", "nope")
	assert.False(t, ok)
	assert.True(t, r.HasExecutor("catzilla"))
	assert.False(t, r.HasExecutor("nope"))
}

func TestRegisterRejects(t *testing.T) {
	tests := []struct {
		name    string
		exec    string
		sig     ir.Signature
		outputs []bool
		h       Handler
		want    error
	}{
		{"length mismatch", "e", ir.Signature{ir.TagInt32}, nil, noop, ErrOutputsLength},
		{"scalar output", "e", ir.Signature{ir.TagFloat32}, []bool{true}, noop, ErrOutputNotBuffer},
		{"nested output", "e", ir.Signature{ir.TagNested}, []bool{true}, noop, ErrOutputNotBuffer},
		{"nil handler", "e", ir.Signature{}, []bool{}, nil, ErrNilHandler},
		{"empty executor", "", ir.Signature{}, []bool{}, noop, ErrEmptyName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewBuilder().Register(tt.exec, "op", tt.sig, tt.outputs, tt.h)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Register("e", "op", ir.Signature{}, []bool{}, noop))
	err := b.Register("e", "op", ir.Signature{}, []bool{}, noop)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Contains(t, err.Error(), "e.op")
}

func TestBuildFreezes(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Register("e", "op", ir.Signature{}, []bool{}, noop))
	r := b.Build()

	assert.ErrorIs(t, b.Register("e", "other", ir.Signature{}, []bool{}, noop), ErrBuilt)
	assert.Equal(t, 1, r.Len())
}

func TestRegisterCopiesInputs(t *testing.T) {
	sig := ir.Signature{ir.TagFloatBuffer}
	outputs := []bool{true}

	b := NewBuilder()
	require.NoError(t, b.Register("e", "op", sig, outputs, noop))
	sig[0] = ir.TagInt32
	outputs[0] = false

	d, _ := b.Build().Lookup("e", "op")
	assert.Equal(t, ir.Signature{ir.TagFloatBuffer}, d.Signature)
	assert.Equal(t, []bool{true}, d.Outputs)
}

func TestRegisterSig(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.RegisterSig(ir.OperatorSig{
		Executor:  "catzilla",
		Operation: "scale",
		Summary:   "X = alpha*X",
		Args: []ir.ArgSig{
			{Name: "N", Tag: ir.TagInt32},
			{Name: "alpha", Tag: ir.TagFloat32},
			{Name: "X", Tag: ir.TagFloatBuffer, Output: true},
		},
	}, noop))

	d, ok := b.Build().Lookup("catzilla", "scale")
	require.True(t, ok)
	assert.Equal(t, []string{"N", "alpha", "X"}, d.ArgNames)
	assert.Equal(t, "X = alpha*X", d.Summary)
	assert.Equal(t, []bool{false, false, true}, d.Outputs)
}

func TestListingIsSorted(t *testing.T) {
	b := NewBuilder()
	for _, k := range [][2]string{{"zeta", "b"}, {"alpha", "z"}, {"zeta", "a"}, {"alpha", "m"}} {
		require.NoError(t, b.Register(k[0], k[1], ir.Signature{}, []bool{}, noop))
	}
	r := b.Build()

	assert.Equal(t, []string{"alpha", "zeta"}, r.Executors())

	var keys []string
	for _, d := range r.All() {
		keys = append(keys, d.Key.String())
	}
	assert.Equal(t, []string{"alpha.m", "alpha.z", "zeta.a", "zeta.b"}, keys)

	ops := r.Operators("zeta")
	require.Len(t, ops, 2)
	assert.Equal(t, "a", ops[0].Key.Operation)
	assert.Empty(t, r.Operators("missing"))
}
