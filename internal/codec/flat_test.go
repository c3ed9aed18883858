package codec

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quark/internal/ir"
)

func TestFlatRoundTripFloat32(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.bin")
	in := []float32{1, -2.5, 3.25, float32(math.Inf(1)), 0, math.MaxFloat32}

	require.NoError(t, EncodeFlat(path, in))
	out, err := DecodeFlat[float32](path)
	require.NoError(t, err)

	assert.Equal(t, in, out)
	assert.Len(t, out, len(in))
}

func TestFlatRoundTripFloat64(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.bin")
	in := []float64{math.Pi, -1e300, 0.5, math.SmallestNonzeroFloat64}

	require.NoError(t, EncodeFlat(path, in))
	out, err := DecodeFlat[float64](path)
	require.NoError(t, err)

	assert.Equal(t, in, out)
}

func TestFlatRoundTripNaNBits(t *testing.T) {
	// Bit patterns survive even where == does not
	path := filepath.Join(t.TempDir(), "nan.bin")
	in := []float32{float32(math.NaN())}

	require.NoError(t, EncodeFlat(path, in))
	out, err := DecodeFlat[float32](path)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, math.Float32bits(in[0]), math.Float32bits(out[0]))
}

func TestEncodeFlatWritesExactBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exact.bin")
	require.NoError(t, EncodeFlat(path, []float32{1, 2, 3}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, raw, 12)

	// Native order, no header
	assert.Equal(t, math.Float32bits(1), binary.NativeEndian.Uint32(raw[0:]))
	assert.Equal(t, math.Float32bits(3), binary.NativeEndian.Uint32(raw[8:]))
}

func TestEncodeFlatReplacesWholesale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replace.bin")
	require.NoError(t, EncodeFlat(path, []float64{1, 2, 3, 4}))
	require.NoError(t, EncodeFlat(path, []float64{9}))

	out, err := DecodeFlat[float64](path)
	require.NoError(t, err)
	assert.Equal(t, []float64{9}, out)
}

func TestDecodeFlatEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	out, err := DecodeFlat[float32](path)
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestDecodeFlatSizeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "odd.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3, 4, 5}, 0o644))

	_, err := DecodeFlat[float32](path)
	require.Error(t, err)
	assert.Equal(t, ir.ErrCodeSizeMismatch, CodeOf(err))

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, path, ce.Path)
	assert.Contains(t, err.Error(), "not a multiple of element width 4")
}

func TestDecodeFlatWidthDependsOnType(t *testing.T) {
	// 12 bytes is 3 floats but 1.5 doubles
	path := filepath.Join(t.TempDir(), "twelve.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 12), 0o644))

	f, err := DecodeFlat[float32](path)
	require.NoError(t, err)
	assert.Len(t, f, 3)

	_, err = DecodeFlat[float64](path)
	assert.Equal(t, ir.ErrCodeSizeMismatch, CodeOf(err))
}

func TestDecodeFlatMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.bin")

	_, err := DecodeFlat[float32](path)
	require.Error(t, err)
	assert.Equal(t, ir.ErrCodeIO, CodeOf(err))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDecodeFlatDirectory(t *testing.T) {
	_, err := DecodeFlat[float64](t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ir.ErrCodeIO, CodeOf(err))
	assert.Contains(t, err.Error(), "not a regular file")
}

func TestEncodeFlatUnwritablePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no-such-dir", "out.bin")

	err := EncodeFlat(path, []float32{1})
	require.Error(t, err)
	assert.Equal(t, ir.ErrCodeIO, CodeOf(err))
}

func TestFlatCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "count.bin")
	require.NoError(t, EncodeFlat(path, make([]float64, 5)))

	n, err := FlatCount[float64](path)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = FlatCount[float32](path)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}

func TestCodeOfForeignError(t *testing.T) {
	assert.Equal(t, ir.ErrorCode(""), CodeOf(os.ErrNotExist))
	assert.Equal(t, ir.ErrorCode(""), CodeOf(nil))
}
