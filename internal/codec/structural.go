package codec

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

var (
	errNilContainer = errors.New("nil where an array was expected")
	errNilElement   = errors.New("nil where a number was expected")
)

// DecodeStructural reads a msgpack payload of rows of floats.
//
// Integer and single-precision elements are widened to float64. Returns
// IO_ERROR if the file cannot be read, FORMAT_ERROR if the stored container
// does not convert to [][]float64 (a map, a flat array, strings, nil
// containers or elements, bytes after the payload, ...).
func DecodeStructural(path string) ([][]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ioError(path, "cannot read", err)
	}

	r := bytes.NewReader(data)
	rows, err := decodeRows(msgpack.NewDecoder(r))
	if err != nil {
		return nil, formatError(path, err)
	}
	if r.Len() != 0 {
		return nil, formatError(path, fmt.Errorf("%d trailing bytes after payload", r.Len()))
	}
	return rows, nil
}

func decodeRows(dec *msgpack.Decoder) ([][]float64, error) {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, errNilContainer
	}

	rows := make([][]float64, n)
	for i := range rows {
		m, err := dec.DecodeArrayLen()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if m < 0 {
			return nil, fmt.Errorf("row %d: %w", i, errNilContainer)
		}

		row := make([]float64, m)
		for j := range row {
			// DecodeFloat64 reads nil as 0
			code, err := dec.PeekCode()
			if err != nil {
				return nil, fmt.Errorf("row %d element %d: %w", i, j, err)
			}
			if code == msgpcode.Nil {
				return nil, fmt.Errorf("row %d element %d: %w", i, j, errNilElement)
			}
			if row[j], err = dec.DecodeFloat64(); err != nil {
				return nil, fmt.Errorf("row %d element %d: %w", i, j, err)
			}
		}
		rows[i] = row
	}
	return rows, nil
}

// EncodeStructural replaces path with the msgpack encoding of rows.
func EncodeStructural(path string, rows [][]float64) error {
	data, err := msgpack.Marshal(rows)
	if err != nil {
		return formatError(path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ioError(path, "cannot write", err)
	}
	return nil
}
