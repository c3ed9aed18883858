package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTypeTag(t *testing.T) {
	tests := []struct {
		in   string
		want TypeTag
	}{
		{"int32", TagInt32},
		{"float32", TagFloat32},
		{"float64", TagFloat64},
		{"float-buffer", TagFloatBuffer},
		{"double-buffer", TagDoubleBuffer},
		{"nested", TagNested},
		// C-style aliases
		{"int", TagInt32},
		{"float", TagFloat32},
		{"double", TagFloat64},
		{"float*", TagFloatBuffer},
		{"double*", TagDoubleBuffer},
		{" int32 ", TagInt32},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTypeTag(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTypeTagUnknown(t *testing.T) {
	for _, in := range []string{"", "int64", "FLOAT32", "half*", "string"} {
		_, err := ParseTypeTag(in)
		assert.Error(t, err, "tag %q should be rejected", in)
	}
}

func TestTypeTagKinds(t *testing.T) {
	assert.True(t, TagFloatBuffer.IsBuffer())
	assert.True(t, TagDoubleBuffer.IsBuffer())
	assert.False(t, TagNested.IsBuffer())
	assert.False(t, TagInt32.IsBuffer())

	assert.True(t, TagInt32.IsScalar())
	assert.True(t, TagFloat64.IsScalar())
	assert.False(t, TagFloatBuffer.IsScalar())
	assert.False(t, TagNested.IsScalar())
}

func TestSignatureString(t *testing.T) {
	sig := Signature{TagInt32, TagFloat32, TagFloatBuffer}
	assert.Equal(t, "[int32,float32,float-buffer]", sig.String())
	assert.Equal(t, "[]", Signature{}.String())
}

func TestOperatorSigProjections(t *testing.T) {
	op := OperatorSig{
		Executor:  "catzilla",
		Operation: "scale",
		Args: []ArgSig{
			{Name: "N", Tag: TagInt32},
			{Name: "alpha", Tag: TagFloat32},
			{Name: "X", Tag: TagFloatBuffer, Output: true},
		},
	}

	assert.Equal(t, Signature{TagInt32, TagFloat32, TagFloatBuffer}, op.Signature())
	assert.Equal(t, []bool{false, false, true}, op.OutputFlags())
	assert.Equal(t, "catzilla.scale", op.Key().String())
}

func TestOperatorSigJSONTags(t *testing.T) {
	op := OperatorSig{
		Executor:  "test",
		Operation: "test",
		Args:      []ArgSig{{Name: "payload", Tag: TagNested}},
	}

	data, err := json.Marshal(op)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"executor":"test","operation":"test","summary":"","args":[{"name":"payload","type":"nested"}]}`,
		string(data))
}
