package ir

import (
	"fmt"
	"strings"
)

// TypeTag names the kind of value expected at one signature position.
type TypeTag string

// Recognised type tags.
const (
	TagInt32        TypeTag = "int32"
	TagFloat32      TypeTag = "float32"
	TagFloat64      TypeTag = "float64"
	TagFloatBuffer  TypeTag = "float-buffer"
	TagDoubleBuffer TypeTag = "double-buffer"
	TagNested       TypeTag = "nested" // structural diagnostic payload
)

// tagAliases maps the C-style spellings used by older catalogs.
var tagAliases = map[string]TypeTag{
	"int":     TagInt32,
	"float":   TagFloat32,
	"double":  TagFloat64,
	"float*":  TagFloatBuffer,
	"double*": TagDoubleBuffer,
}

// ValidTags lists the canonical tags in declaration order.
var ValidTags = []TypeTag{
	TagInt32,
	TagFloat32,
	TagFloat64,
	TagFloatBuffer,
	TagDoubleBuffer,
	TagNested,
}

// ParseTypeTag resolves a canonical tag or alias.
func ParseTypeTag(s string) (TypeTag, error) {
	s = strings.TrimSpace(s)
	for _, t := range ValidTags {
		if string(t) == s {
			return t, nil
		}
	}
	if t, ok := tagAliases[s]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown type tag %q", s)
}

// IsBuffer reports whether the tag is a flat buffer kind.
// Only flat buffers may be flagged as outputs.
func (t TypeTag) IsBuffer() bool {
	return t == TagFloatBuffer || t == TagDoubleBuffer
}

// IsScalar reports whether the tag is a numeric scalar kind.
func (t TypeTag) IsScalar() bool {
	return t == TagInt32 || t == TagFloat32 || t == TagFloat64
}

// Signature is the ordered list of tags an operator expects.
type Signature []TypeTag

// String renders the signature as "[int32,float-buffer,...]".
func (s Signature) String() string {
	parts := make([]string, len(s))
	for i, t := range s {
		parts[i] = string(t)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// ArgSig is one named, typed signature position.
type ArgSig struct {
	Name   string  `json:"name"`
	Tag    TypeTag `json:"type"`
	Output bool    `json:"output,omitempty"` // written back after success
}

// OperatorSig represents a compiled operator declaration from the catalog.
type OperatorSig struct {
	Executor  string   `json:"executor"`
	Operation string   `json:"operation"`
	Summary   string   `json:"summary"`
	Args      []ArgSig `json:"args"`
}

// Key returns the operator's (executor, operation) key.
func (o OperatorSig) Key() OperatorKey {
	return OperatorKey{Executor: o.Executor, Operation: o.Operation}
}

// Signature extracts the positional tags.
func (o OperatorSig) Signature() Signature {
	sig := make(Signature, len(o.Args))
	for i, a := range o.Args {
		sig[i] = a.Tag
	}
	return sig
}

// OutputFlags extracts the per-position output flags.
func (o OperatorSig) OutputFlags() []bool {
	flags := make([]bool, len(o.Args))
	for i, a := range o.Args {
		flags[i] = a.Output
	}
	return flags
}
