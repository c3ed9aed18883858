package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/quark/internal/ir"
	"github.com/roach88/quark/internal/synth"
)

// GenOptions holds flags for the gen command.
type GenOptions struct {
	*RootOptions
	Shapes     []string
	Outs       []string
	Dist       string
	DType      string
	Structural bool
	Jobs       int
}

// GeneratedFile is one entry of the gen result.
type GeneratedFile struct {
	Path  string `json:"path"`
	Shape []int  `json:"shape"`
	Count int    `json:"count"`
	DType string `json:"dtype"`
	Dist  string `json:"dist"`
}

// GenResult is the success payload of gen.
type GenResult struct {
	Files []GeneratedFile `json:"files"`
}

// String renders the text form of the result.
func (r GenResult) String() string {
	lines := make([]string, len(r.Files))
	for i, f := range r.Files {
		lines[i] = fmt.Sprintf("%s  %s %s (%d elements, %s)", f.Path, f.DType, shapeString(f.Shape), f.Count, f.Dist)
	}
	return strings.Join(lines, "\n")
}

// NewGenCommand creates the gen command.
func NewGenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "gen --shape <RxC> --out <file> [--shape <RxC> --out <file>]...",
		Short: "Write synthetic input buffers",
		Long: `Write flat buffer files filled from a distribution, ready to pass to exec.

Each --shape pairs with the --out at the same position. Files are written
concurrently.

Example:
  quark gen --rng uniform --shape 64x32 --out A.bin --shape 32x16 --out B.bin
  quark gen --rng zeros --shape 64x16 --out C.bin
  quark gen --structural --rng normal --shape 4x3 --out payload.mp`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGen(opts, cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Shapes, "shape", nil, "buffer shape, e.g. 2x3 (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Outs, "out", nil, "output path (repeatable, pairs with --shape)")
	cmd.Flags().StringVar(&opts.Dist, "rng", "uniform", "fill distribution (zeros|ones|uniform|normal)")
	cmd.Flags().StringVar(&opts.DType, "dtype", "float32", "element type (float32|float64)")
	cmd.Flags().BoolVar(&opts.Structural, "structural", false, "write msgpack rows instead of a flat buffer")
	cmd.Flags().IntVar(&opts.Jobs, "jobs", 4, "maximum files written at once")

	return cmd
}

func runGen(opts *GenOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	specs, err := genSpecs(opts)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid gen flags", err)
	}

	for _, s := range specs {
		formatter.VerboseLog("generating %s: %s %s (%s)", s.Path, s.DType, shapeString(s.Shape), s.Dist)
	}
	if err := synth.GenerateAll(cmd.Context(), specs, opts.Jobs); err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to write buffers", err)
	}

	result := GenResult{Files: make([]GeneratedFile, len(specs))}
	for i, s := range specs {
		dtype := string(s.DType)
		if s.Structural {
			dtype = string(ir.TagNested)
		}
		result.Files[i] = GeneratedFile{
			Path:  s.Path,
			Shape: s.Shape,
			Count: synth.Count(s.Shape),
			DType: dtype,
			Dist:  string(s.Dist),
		}
	}
	return formatter.Success(result)
}

func genSpecs(opts *GenOptions) ([]synth.Spec, error) {
	if len(opts.Shapes) == 0 {
		return nil, fmt.Errorf("at least one --shape/--out pair is required")
	}
	if len(opts.Shapes) != len(opts.Outs) {
		return nil, fmt.Errorf("got %d --shape and %d --out flags, they must pair up", len(opts.Shapes), len(opts.Outs))
	}

	dist, err := synth.ParseDist(opts.Dist)
	if err != nil {
		return nil, err
	}
	dtype, err := parseElemType(opts.DType)
	if err != nil {
		return nil, err
	}

	specs := make([]synth.Spec, len(opts.Shapes))
	for i, s := range opts.Shapes {
		shape, err := synth.ParseShape(s)
		if err != nil {
			return nil, err
		}
		specs[i] = synth.Spec{
			Path:       opts.Outs[i],
			Shape:      shape,
			Dist:       dist,
			DType:      dtype,
			Structural: opts.Structural,
		}
	}
	return specs, nil
}

// parseElemType accepts a scalar or buffer spelling of a float type.
func parseElemType(s string) (ir.TypeTag, error) {
	tag, err := ir.ParseTypeTag(s)
	if err != nil {
		return "", err
	}
	switch tag {
	case ir.TagFloat32, ir.TagFloatBuffer:
		return ir.TagFloat32, nil
	case ir.TagFloat64, ir.TagDoubleBuffer:
		return ir.TagFloat64, nil
	}
	return "", fmt.Errorf("element type must be float32 or float64, got %q", s)
}

func shapeString(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = fmt.Sprint(d)
	}
	return strings.Join(parts, "x")
}
