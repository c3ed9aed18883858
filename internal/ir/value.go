package ir

import "fmt"

// Value is a sealed interface representing one typed operator argument.
// Only Int32, Float32, Float64, *FloatBuffer, *DoubleBuffer and Nested
// implement it.
type Value interface {
	irValue() // Sealed - only these types implement it

	// Tag reports the type tag this value was parsed under.
	Tag() TypeTag
}

// Int32 is a 32-bit signed integer scalar (dimensions, counts).
type Int32 int32

func (Int32) irValue() {}

// Tag implements Value.
func (Int32) Tag() TypeTag { return TagInt32 }

// Float32 is a single-precision scalar (alpha, beta, ...).
type Float32 float32

func (Float32) irValue() {}

// Tag implements Value.
func (Float32) Tag() TypeTag { return TagFloat32 }

// Float64 is a double-precision scalar.
type Float64 float64

func (Float64) irValue() {}

// Tag implements Value.
func (Float64) Tag() TypeTag { return TagFloat64 }

// FloatBuffer is an owned []float32 decoded from a flat file.
type FloatBuffer struct {
	buffer[float32]
}

func (*FloatBuffer) irValue() {}

// Tag implements Value.
func (*FloatBuffer) Tag() TypeTag { return TagFloatBuffer }

// DoubleBuffer is an owned []float64 decoded from a flat file.
type DoubleBuffer struct {
	buffer[float64]
}

func (*DoubleBuffer) irValue() {}

// Tag implements Value.
func (*DoubleBuffer) Tag() TypeTag { return TagDoubleBuffer }

// Nested is a structural diagnostic payload: rows of doubles.
// It is read-only; it never participates in commit.
type Nested struct {
	Rows [][]float64
	Path string
}

func (Nested) irValue() {}

// Tag implements Value.
func (Nested) Tag() TypeTag { return TagNested }

// NewFloatBuffer wraps data as an owned float buffer.
// The handle is counted against l until Release. A nil ledger is allowed.
func NewFloatBuffer(path string, data []float32, l *Ledger) *FloatBuffer {
	b := &FloatBuffer{}
	b.init(path, data, l)
	return b
}

// NewDoubleBuffer wraps data as an owned double buffer.
// The handle is counted against l until Release. A nil ledger is allowed.
func NewDoubleBuffer(path string, data []float64, l *Ledger) *DoubleBuffer {
	b := &DoubleBuffer{}
	b.init(path, data, l)
	return b
}

// Release frees every buffer in vals. Scalars are skipped.
// Safe to call on a slice containing nil entries or already-released buffers.
func Release(vals []Value) {
	for _, v := range vals {
		switch val := v.(type) {
		case *FloatBuffer:
			if val != nil {
				val.Release()
			}
		case *DoubleBuffer:
			if val != nil {
				val.Release()
			}
		case Int32, Float32, Float64, Nested, nil:
			// owned by value
		}
	}
}

// FormatValue renders a value for logs and diagnostics.
// Buffers render as tag, count and path, never their contents.
func FormatValue(v Value) string {
	switch val := v.(type) {
	case Int32:
		return fmt.Sprintf("int32(%d)", int32(val))
	case Float32:
		return fmt.Sprintf("float32(%g)", float32(val))
	case Float64:
		return fmt.Sprintf("float64(%g)", float64(val))
	case *FloatBuffer:
		return fmt.Sprintf("float-buffer[%d](%s)", val.Len(), val.Path())
	case *DoubleBuffer:
		return fmt.Sprintf("double-buffer[%d](%s)", val.Len(), val.Path())
	case Nested:
		return fmt.Sprintf("nested[%d](%s)", len(val.Rows), val.Path)
	default:
		return fmt.Sprintf("unknown(%T)", v)
	}
}
