// Package codec reads and writes numeric buffers on disk.
//
// Two encodings are recognised:
//
// Flat: the file is exactly count contiguous elements in native byte order,
// with no header and no padding. The element count is recovered from the
// file size; a size that is not a whole multiple of the element width is
// rejected with SIZE_MISMATCH. EncodeFlat is the only flat write path and
// always replaces the file wholesale.
//
// Structural: a msgpack array of arrays of floats. Self-describing, used
// for diagnostic payloads only. A container that does not convert to
// [][]float64 is rejected with FORMAT_ERROR.
//
// All failures are *Error values carrying an ir.ErrorCode and the path.
package codec
