package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/quark/internal/codec"
	"github.com/roach88/quark/internal/dispatch"
	"github.com/roach88/quark/internal/ir"
	"github.com/roach88/quark/internal/kernels"
)

// SmokeOptions holds flags for the smoke command.
type SmokeOptions struct {
	*RootOptions
	Dir string
}

// SmokeCheck is the outcome of one built-in check.
type SmokeCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Error  string `json:"error,omitempty"`
}

// SmokeResult is the payload of smoke.
type SmokeResult struct {
	Checks []SmokeCheck `json:"checks"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
}

// String renders the text form of the result.
func (r SmokeResult) String() string {
	var sb strings.Builder
	for _, c := range r.Checks {
		if c.Passed {
			fmt.Fprintf(&sb, "PASS  %s\n", c.Name)
		} else {
			fmt.Fprintf(&sb, "FAIL  %s: %s\n", c.Name, c.Error)
		}
	}
	fmt.Fprintf(&sb, "%d passed, %d failed", r.Passed, r.Failed)
	return sb.String()
}

// NewSmokeCommand creates the smoke command.
func NewSmokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SmokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Run the built-in operators against known inputs",
		Long: `Write small input buffers to a scratch directory, dispatch each built-in
operator against them and compare the written-back outputs. Also checks
that a failing operator leaves its output file untouched.

Exits non-zero if any check fails.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSmoke(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", "", "scratch directory to keep (default: a removed temp dir)")

	return cmd
}

type smokeCase struct {
	name string
	run  func(ctx context.Context, d *dispatch.Dispatcher, dir string) error
}

var smokeCases = []smokeCase{
	{"catzilla.matmul identity", smokeMatmulIdentity},
	{"catzilla.dmatmul alpha beta", smokeDmatmul},
	{"catzilla.scale", smokeScale},
	{"failed handler leaves output", smokeShortOutput},
	{"unknown operator", smokeUnknownOperator},
}

func runSmoke(opts *SmokeOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.Logger(formatter.GetErrWriter())

	dir := opts.Dir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "quark-smoke-")
		if err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitFailure, "failed to create scratch dir", err)
		}
		defer os.RemoveAll(tmp)
		dir = tmp
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to create scratch dir", err)
	}

	reg, err := kernels.NewRegistry(kernels.WithDiagnosticWriter(io.Discard))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load operator table", err)
	}
	ledger := ir.NewLedger()
	d := dispatch.New(reg, dispatch.WithLogger(logger), dispatch.WithLedger(ledger))

	result := SmokeResult{Checks: make([]SmokeCheck, 0, len(smokeCases)+1)}
	add := func(name string, err error) {
		c := SmokeCheck{Name: name, Passed: err == nil}
		if err != nil {
			c.Error = err.Error()
			result.Failed++
		} else {
			result.Passed++
		}
		result.Checks = append(result.Checks, c)
	}

	formatter.VerboseLog("running %d checks in %s", len(smokeCases), dir)
	for _, sc := range smokeCases {
		add(sc.name, sc.run(cmd.Context(), d, dir))
	}
	var leak error
	if n := ledger.Outstanding(); n != 0 {
		leak = fmt.Errorf("%d buffers outstanding", n)
	}
	add("buffers released", leak)

	if result.Failed > 0 {
		if formatter.Format != "json" {
			fmt.Fprintln(cmd.OutOrStdout(), result)
		}
		_ = formatter.Error(ErrCodeSmoke, fmt.Sprintf("%d of %d checks failed", result.Failed, len(result.Checks)), result)
		return NewExitError(ExitFailure, "smoke checks failed")
	}
	return formatter.Success(result)
}

func smokeMatmulIdentity(ctx context.Context, d *dispatch.Dispatcher, dir string) error {
	a, b, c := filepath.Join(dir, "identity_A.bin"), filepath.Join(dir, "identity_B.bin"), filepath.Join(dir, "identity_C.bin")
	if err := writeAll(
		func() error { return codec.EncodeFlat(a, []float32{1, 0, 0, 1}) },
		func() error { return codec.EncodeFlat(b, []float32{1, 2, 3, 4}) },
		func() error { return codec.EncodeFlat(c, []float32{0, 0, 0, 0}) },
	); err != nil {
		return err
	}
	if err := d.Dispatch(ctx, "catzilla", "matmul", []string{"2", "2", "2", "1.0", a, b, "0.0", c}); err != nil {
		return err
	}
	return expectFlat(c, []float32{1, 2, 3, 4})
}

func smokeDmatmul(ctx context.Context, d *dispatch.Dispatcher, dir string) error {
	a, b, c := filepath.Join(dir, "dmatmul_A.bin"), filepath.Join(dir, "dmatmul_B.bin"), filepath.Join(dir, "dmatmul_C.bin")
	if err := writeAll(
		func() error { return codec.EncodeFlat(a, []float64{1, 2, 3, 4}) },
		func() error { return codec.EncodeFlat(b, []float64{1, 0, 0, 1}) },
		func() error { return codec.EncodeFlat(c, []float64{1, 1, 1, 1}) },
	); err != nil {
		return err
	}
	if err := d.Dispatch(ctx, "catzilla", "dmatmul", []string{"2", "2", "2", "2", a, b, "1", c}); err != nil {
		return err
	}
	return expectFlat(c, []float64{3, 5, 7, 9})
}

func smokeScale(ctx context.Context, d *dispatch.Dispatcher, dir string) error {
	x := filepath.Join(dir, "scale_X.bin")
	if err := codec.EncodeFlat(x, []float32{1, 2, 3, 4}); err != nil {
		return err
	}
	if err := d.Dispatch(ctx, "catzilla", "scale", []string{"4", "0.5", x}); err != nil {
		return err
	}
	return expectFlat(x, []float32{0.5, 1, 1.5, 2})
}

func smokeShortOutput(ctx context.Context, d *dispatch.Dispatcher, dir string) error {
	a, b, c := filepath.Join(dir, "short_A.bin"), filepath.Join(dir, "short_B.bin"), filepath.Join(dir, "short_C.bin")
	if err := writeAll(
		func() error { return codec.EncodeFlat(a, []float32{1, 0, 0, 1}) },
		func() error { return codec.EncodeFlat(b, []float32{1, 2, 3, 4}) },
		func() error { return codec.EncodeFlat(c, []float32{7, 7}) },
	); err != nil {
		return err
	}
	before, err := os.ReadFile(c)
	if err != nil {
		return err
	}

	err = d.Dispatch(ctx, "catzilla", "matmul", []string{"2", "2", "2", "1", a, b, "0", c})
	if !dispatch.IsHandlerFailed(err) {
		return fmt.Errorf("want %s, got %v", ir.ErrCodeHandlerFailed, err)
	}

	after, err := os.ReadFile(c)
	if err != nil {
		return err
	}
	if !bytes.Equal(before, after) {
		return fmt.Errorf("%s changed after a failed dispatch", c)
	}
	return nil
}

func smokeUnknownOperator(ctx context.Context, d *dispatch.Dispatcher, _ string) error {
	err := d.Dispatch(ctx, "catzilla", "conv2d", nil)
	if !dispatch.IsUnknownOperator(err) {
		return fmt.Errorf("want %s, got %v", ir.ErrCodeUnknownOperator, err)
	}
	return nil
}

func writeAll(steps ...func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func expectFlat[T ir.Element](path string, want []T) error {
	got, err := codec.DecodeFlat[T](path)
	if err != nil {
		return err
	}
	if !slices.Equal(got, want) {
		return fmt.Errorf("%s: got %v, want %v", filepath.Base(path), got, want)
	}
	return nil
}
