// Package synth writes synthetic input buffers for operators.
//
// A Spec names a shape, a fill distribution, an element type and a
// destination. Flat output is the headerless layout operators read;
// structural output is the msgpack rows layout used by diagnostics.
package synth

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/roach88/quark/internal/codec"
	"github.com/roach88/quark/internal/ir"
)

// Dist is a fill distribution.
type Dist string

const (
	Zeros   Dist = "zeros"
	Ones    Dist = "ones"
	Uniform Dist = "uniform" // [0, 1)
	Normal  Dist = "normal"  // mean 0, stddev 1
)

// ParseDist validates a distribution name.
func ParseDist(s string) (Dist, error) {
	switch d := Dist(s); d {
	case Zeros, Ones, Uniform, Normal:
		return d, nil
	}
	return "", fmt.Errorf("unknown distribution %q (want zeros, ones, uniform or normal)", s)
}

// Spec describes one file to generate.
type Spec struct {
	Path       string
	Shape      []int
	Dist       Dist
	DType      ir.TypeTag // TagFloat32 or TagFloat64
	Structural bool       // msgpack rows instead of flat
}

// MaxCount bounds the element count of a generated buffer.
const MaxCount = math.MaxInt32

// ParseShape parses "2x3" or "6" into dimensions.
// The product of the dimensions must not exceed MaxCount.
func ParseShape(s string) ([]int, error) {
	parts := strings.Split(strings.ToLower(s), "x")
	shape := make([]int, len(parts))
	count := 1
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid shape %q: dimensions must be positive integers", s)
		}
		if n > MaxCount/count {
			return nil, fmt.Errorf("invalid shape %q: more than %d elements", s, MaxCount)
		}
		count *= n
		shape[i] = n
	}
	return shape, nil
}

// Count returns the element count of shape.
func Count(shape []int) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Generate writes one file.
func Generate(spec Spec) error {
	n := Count(spec.Shape)
	if n <= 0 {
		return fmt.Errorf("%s: empty shape", spec.Path)
	}
	if n > MaxCount {
		return fmt.Errorf("%s: more than %d elements", spec.Path, MaxCount)
	}
	sample, err := sampler(spec.Dist)
	if err != nil {
		return err
	}

	if spec.Structural {
		return codec.EncodeStructural(spec.Path, rows(spec.Shape, sample))
	}

	switch spec.DType {
	case ir.TagFloat32, ir.TagFloatBuffer:
		return codec.EncodeFlat(spec.Path, fill[float32](n, sample))
	case ir.TagFloat64, ir.TagDoubleBuffer:
		return codec.EncodeFlat(spec.Path, fill[float64](n, sample))
	default:
		return fmt.Errorf("%s: unsupported element type %q", spec.Path, spec.DType)
	}
}

// GenerateAll writes every spec concurrently.
// The first failure cancels files not yet started.
func GenerateAll(ctx context.Context, specs []Spec, limit int) error {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, spec := range specs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return Generate(spec)
		})
	}
	return g.Wait()
}

func sampler(d Dist) (func() float64, error) {
	switch d {
	case Zeros:
		return func() float64 { return 0 }, nil
	case Ones:
		return func() float64 { return 1 }, nil
	case Uniform:
		u := distuv.Uniform{Min: 0, Max: 1}
		return u.Rand, nil
	case Normal:
		nd := distuv.Normal{Mu: 0, Sigma: 1}
		return nd.Rand, nil
	}
	return nil, fmt.Errorf("unknown distribution %q", d)
}

func fill[T ir.Element](n int, sample func() float64) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = T(sample())
	}
	return out
}

// rows lays shape out as shape[0] rows of the remaining dimensions.
// A one-dimensional shape becomes a single row.
func rows(shape []int, sample func() float64) [][]float64 {
	r, c := 1, shape[0]
	if len(shape) > 1 {
		r, c = shape[0], Count(shape[1:])
	}
	out := make([][]float64, r)
	for i := range out {
		out[i] = fill[float64](c, sample)
	}
	return out
}
