// Package testutil holds shared test fixtures: flat buffer files, a
// deterministic clock, and a fixed ID generator.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/quark/internal/codec"
)

// WriteFloats writes data as a flat float32 file under dir and returns its path.
func WriteFloats(t testing.TB, dir, name string, data []float32) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, codec.EncodeFlat(path, data))
	return path
}

// WriteDoubles writes data as a flat float64 file under dir and returns its path.
func WriteDoubles(t testing.TB, dir, name string, data []float64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, codec.EncodeFlat(path, data))
	return path
}

// ReadFloats decodes a flat float32 file.
func ReadFloats(t testing.TB, path string) []float32 {
	t.Helper()
	data, err := codec.DecodeFlat[float32](path)
	require.NoError(t, err)
	return data
}

// ReadDoubles decodes a flat float64 file.
func ReadDoubles(t testing.TB, path string) []float64 {
	t.Helper()
	data, err := codec.DecodeFlat[float64](path)
	require.NoError(t, err)
	return data
}

// FileBytes returns the raw contents of path.
// Use it to assert a file was left byte-identical.
func FileBytes(t testing.TB, path string) []byte {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return raw
}

// Identity returns an n×n row-major identity matrix.
func Identity(n int) []float32 {
	out := make([]float32, n*n)
	for i := 0; i < n; i++ {
		out[i*n+i] = 1
	}
	return out
}
