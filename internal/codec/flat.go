package codec

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/roach88/quark/internal/ir"
)

// DecodeFlat reads a headerless native-order buffer of T from path.
//
// The element count is size / sizeof(T). Returns:
//   - IO_ERROR if the file cannot be opened, is not a regular file, or
//     cannot be read in full
//   - SIZE_MISMATCH if size is not a whole multiple of sizeof(T)
//
// A zero-length file decodes to an empty, non-nil slice.
func DecodeFlat[T ir.Element](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ioError(path, "cannot open", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, ioError(path, "cannot stat", err)
	}
	if !info.Mode().IsRegular() {
		return nil, ioError(path, "not a regular file", nil)
	}

	width := ir.ElementSize[T]()
	size := info.Size()
	if size%int64(width) != 0 {
		return nil, sizeMismatch(path, size, width)
	}
	count := int(size / int64(width))

	raw := make([]byte, size)
	if _, err := io.ReadFull(f, raw); err != nil {
		return nil, ioError(path, fmt.Sprintf("short read (want %d bytes)", size), err)
	}

	out := make([]T, count)
	decodeElems(raw, out)
	return out, nil
}

// EncodeFlat replaces the contents of path with len(data) raw elements.
//
// The file is created if missing and truncated if present; there is no
// append or partial-update mode. Returns IO_ERROR if the path cannot be
// opened for writing or the write does not complete.
func EncodeFlat[T ir.Element](path string, data []T) error {
	raw := make([]byte, len(data)*ir.ElementSize[T]())
	encodeElems(data, raw)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return ioError(path, "cannot open for writing", err)
	}

	if _, err := f.Write(raw); err != nil {
		f.Close()
		return ioError(path, "write failed", err)
	}
	if err := f.Close(); err != nil {
		return ioError(path, "close failed", err)
	}
	return nil
}

// FlatCount returns the element count a flat file of T would decode to,
// without reading its contents.
func FlatCount[T ir.Element](path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, ioError(path, "cannot stat", err)
	}
	width := ir.ElementSize[T]()
	if info.Size()%int64(width) != 0 {
		return 0, sizeMismatch(path, info.Size(), width)
	}
	return int(info.Size() / int64(width)), nil
}

func decodeElems[T ir.Element](raw []byte, out []T) {
	switch dst := any(out).(type) {
	case []float32:
		for i := range dst {
			dst[i] = math.Float32frombits(binary.NativeEndian.Uint32(raw[i*4:]))
		}
	case []float64:
		for i := range dst {
			dst[i] = math.Float64frombits(binary.NativeEndian.Uint64(raw[i*8:]))
		}
	}
}

func encodeElems[T ir.Element](data []T, raw []byte) {
	switch src := any(data).(type) {
	case []float32:
		for i, v := range src {
			binary.NativeEndian.PutUint32(raw[i*4:], math.Float32bits(v))
		}
	case []float64:
		for i, v := range src {
			binary.NativeEndian.PutUint64(raw[i*8:], math.Float64bits(v))
		}
	}
}
