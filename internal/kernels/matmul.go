package kernels

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/roach88/quark/internal/ir"
)

// dims is a validated (M, N, K) triple.
type dims struct {
	m, n, k int
}

func gemmDims(vals []ir.Value) (dims, error) {
	m, n, k := int(vals[0].(ir.Int32)), int(vals[1].(ir.Int32)), int(vals[2].(ir.Int32))
	if m < 0 || n < 0 || k < 0 {
		return dims{}, fmt.Errorf("negative dimension (M=%d N=%d K=%d)", m, n, k)
	}
	return dims{m: m, n: n, k: k}, nil
}

// check verifies each buffer holds at least what the dimensions address.
func (d dims) check(lenA, lenB, lenC int) error {
	switch {
	case lenA < d.m*d.k:
		return fmt.Errorf("A holds %d elements, M*K needs %d", lenA, d.m*d.k)
	case lenB < d.k*d.n:
		return fmt.Errorf("B holds %d elements, K*N needs %d", lenB, d.k*d.n)
	case lenC < d.m*d.n:
		return fmt.Errorf("C holds %d elements, M*N needs %d", lenC, d.m*d.n)
	}
	return nil
}

func stride(cols int) int {
	return max(1, cols)
}

// matmul: [M, N, K, alpha, A, B, beta, C]
func matmul(_ context.Context, vals []ir.Value) error {
	d, err := gemmDims(vals)
	if err != nil {
		return fmt.Errorf("matmul: %w", err)
	}
	alpha := float32(vals[3].(ir.Float32))
	a := vals[4].(*ir.FloatBuffer).Data()
	b := vals[5].(*ir.FloatBuffer).Data()
	beta := float32(vals[6].(ir.Float32))
	c := vals[7].(*ir.FloatBuffer).Data()

	if err := d.check(len(a), len(b), len(c)); err != nil {
		return fmt.Errorf("matmul: %w", err)
	}
	if d.m == 0 || d.n == 0 {
		return nil
	}
	if d.k == 0 {
		scaleOutput(c[:d.m*d.n], beta)
		return nil
	}

	blas32.Gemm(blas.NoTrans, blas.NoTrans, alpha,
		blas32.General{Rows: d.m, Cols: d.k, Stride: stride(d.k), Data: a[:d.m*d.k]},
		blas32.General{Rows: d.k, Cols: d.n, Stride: stride(d.n), Data: b[:d.k*d.n]},
		beta,
		blas32.General{Rows: d.m, Cols: d.n, Stride: stride(d.n), Data: c[:d.m*d.n]},
	)
	return nil
}

// dmatmul: [M, N, K, alpha, A, B, beta, C] in double precision.
func dmatmul(_ context.Context, vals []ir.Value) error {
	d, err := gemmDims(vals)
	if err != nil {
		return fmt.Errorf("dmatmul: %w", err)
	}
	alpha := float64(vals[3].(ir.Float64))
	a := vals[4].(*ir.DoubleBuffer).Data()
	b := vals[5].(*ir.DoubleBuffer).Data()
	beta := float64(vals[6].(ir.Float64))
	c := vals[7].(*ir.DoubleBuffer).Data()

	if err := d.check(len(a), len(b), len(c)); err != nil {
		return fmt.Errorf("dmatmul: %w", err)
	}
	if d.m == 0 || d.n == 0 {
		return nil
	}
	if d.k == 0 {
		scaleOutput(c[:d.m*d.n], beta)
		return nil
	}

	blas64.Gemm(blas.NoTrans, blas.NoTrans, alpha,
		blas64.General{Rows: d.m, Cols: d.k, Stride: stride(d.k), Data: a[:d.m*d.k]},
		blas64.General{Rows: d.k, Cols: d.n, Stride: stride(d.n), Data: b[:d.k*d.n]},
		beta,
		blas64.General{Rows: d.m, Cols: d.n, Stride: stride(d.n), Data: c[:d.m*d.n]},
	)
	return nil
}

// scale: [N, alpha, X]
func scale(_ context.Context, vals []ir.Value) error {
	n := int(vals[0].(ir.Int32))
	alpha := float32(vals[1].(ir.Float32))
	x := vals[2].(*ir.FloatBuffer).Data()

	if n < 0 {
		return fmt.Errorf("scale: negative N=%d", n)
	}
	if len(x) < n {
		return fmt.Errorf("scale: X holds %d elements, N needs %d", len(x), n)
	}
	if n == 0 {
		return nil
	}

	blas32.Scal(alpha, blas32.Vector{N: n, Inc: 1, Data: x[:n]})
	return nil
}

// scaleOutput applies C = beta*C for an empty product. beta == 0 overwrites
// C with zeros so NaN and Inf in the old contents do not survive, as Gemm does.
func scaleOutput[T float32 | float64](c []T, beta T) {
	if beta == 0 {
		clear(c)
		return
	}
	for i := range c {
		c[i] *= beta
	}
}
