// Package args converts ordered command-line tokens into typed values.
//
// Interpretation of each token is determined solely by the signature tag at
// the same position. Scalars are parsed as base-10 literals; buffer tokens
// are file paths decoded through the codec package.
//
// OWNERSHIP: a successful Parse hands every decoded buffer to the caller,
// who must release them (ir.Release). A failed Parse releases whatever it
// had already decoded before returning, so no buffer escapes a failure.
package args

import (
	"errors"
	"strconv"

	"github.com/roach88/quark/internal/codec"
	"github.com/roach88/quark/internal/ir"
)

// Option configures Parse.
type Option func(*parser)

// WithLedger accounts every decoded buffer against l.
func WithLedger(l *ir.Ledger) Option {
	return func(p *parser) {
		p.ledger = l
	}
}

type parser struct {
	ledger *ir.Ledger
}

// Parse converts tokens into values according to sig.
//
// The arity check happens before any token is interpreted: a length
// mismatch returns ARITY_MISMATCH regardless of token content.
// Parsing is left to right and stops at the first failure.
func Parse(tokens []string, sig ir.Signature, opts ...Option) ([]ir.Value, error) {
	if len(tokens) != len(sig) {
		return nil, NewArityError(len(tokens), len(sig))
	}

	p := &parser{}
	for _, opt := range opts {
		opt(p)
	}

	vals := make([]ir.Value, 0, len(sig))
	for i, tag := range sig {
		v, err := p.parseOne(i, tokens[i], tag)
		if err != nil {
			ir.Release(vals)
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// parseOne interprets a single token under tag.
func (p *parser) parseOne(pos int, token string, tag ir.TypeTag) (ir.Value, error) {
	switch tag {
	case ir.TagInt32:
		n, err := strconv.ParseInt(token, 10, 32)
		if err != nil {
			return nil, invalidNumber(pos, token, tag, err)
		}
		return ir.Int32(n), nil

	case ir.TagFloat32:
		f, err := strconv.ParseFloat(token, 32)
		if err != nil {
			return nil, invalidNumber(pos, token, tag, err)
		}
		return ir.Float32(f), nil

	case ir.TagFloat64:
		f, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return nil, invalidNumber(pos, token, tag, err)
		}
		return ir.Float64(f), nil

	case ir.TagFloatBuffer:
		data, err := codec.DecodeFlat[float32](token)
		if err != nil {
			return nil, codecFailure(pos, token, tag, err)
		}
		return ir.NewFloatBuffer(token, data, p.ledger), nil

	case ir.TagDoubleBuffer:
		data, err := codec.DecodeFlat[float64](token)
		if err != nil {
			return nil, codecFailure(pos, token, tag, err)
		}
		return ir.NewDoubleBuffer(token, data, p.ledger), nil

	case ir.TagNested:
		rows, err := codec.DecodeStructural(token)
		if err != nil {
			return nil, codecFailure(pos, token, tag, err)
		}
		return ir.Nested{Rows: rows, Path: token}, nil

	default:
		return nil, &ParseError{
			Code:     ir.ErrCodeUnknownTypeTag,
			Position: pos,
			Tag:      tag,
			Token:    token,
			Message:  "unknown type tag",
		}
	}
}

// invalidNumber wraps a strconv failure. Out-of-range literals are reported
// the same way as malformed ones: the token is not a valid value of tag.
func invalidNumber(pos int, token string, tag ir.TypeTag, err error) *ParseError {
	msg := "not a base-10 numeric literal"
	var ne *strconv.NumError
	if errors.As(err, &ne) && errors.Is(ne.Err, strconv.ErrRange) {
		msg = "numeric literal out of range"
	}
	return &ParseError{
		Code:     ir.ErrCodeInvalidNumber,
		Position: pos,
		Tag:      tag,
		Token:    token,
		Message:  msg,
		Err:      err,
	}
}

// codecFailure tags a codec error with its argument position, keeping the
// codec's code unchanged.
func codecFailure(pos int, token string, tag ir.TypeTag, err error) *ParseError {
	code := codec.CodeOf(err)
	if code == "" {
		code = ir.ErrCodeIO
	}
	return &ParseError{
		Code:     code,
		Position: pos,
		Tag:      tag,
		Token:    token,
		Message:  "cannot load buffer",
		Err:      err,
	}
}
