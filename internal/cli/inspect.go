package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/quark/internal/codec"
	"github.com/roach88/quark/internal/ir"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	DType      string
	Cols       int
	Structural bool
	CountOnly  bool
}

// InspectResult is the decoded content of one buffer file.
type InspectResult struct {
	Path  string      `json:"path"`
	DType string      `json:"dtype"`
	Count int         `json:"count"`
	Rows  [][]float64 `json:"rows,omitempty"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Decode and print a buffer file",
		Long: `Decode a flat buffer (element type from --dtype) or a structural payload
and print its values, --cols per row. With --count only the element count of
a flat file is reported, taken from its size.

Example:
  quark inspect C.bin --cols 16
  quark inspect C.bin --dtype float64 --format json
  quark inspect payload.mp --structural
  quark inspect C.bin --count`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DType, "dtype", "float32", "element type of a flat file (float32|float64)")
	cmd.Flags().IntVar(&opts.Cols, "cols", 0, "values per row (0 prints one row)")
	cmd.Flags().BoolVar(&opts.Structural, "structural", false, "decode msgpack rows instead of a flat buffer")
	cmd.Flags().BoolVar(&opts.CountOnly, "count", false, "report the element count without printing values")

	return cmd
}

func runInspect(opts *InspectOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if opts.Cols < 0 {
		err := fmt.Errorf("--cols must be >= 0, got %d", opts.Cols)
		_ = formatter.Error(ErrCodeInvalidInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid inspect flags", err)
	}

	result, err := inspectFile(path, opts)
	if err != nil {
		code := ErrCodeGeneric
		if codec.CodeOf(err) == ir.ErrCodeIO {
			code = ErrCodeNotFound
		}
		_ = formatter.Error(code, err.Error(), map[string]any{"codec": string(codec.CodeOf(err))})
		return WrapExitError(ExitFailure, "failed to decode buffer", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	renderInspect(cmd.OutOrStdout(), result)
	return nil
}

func inspectFile(path string, opts *InspectOptions) (*InspectResult, error) {
	if opts.Structural {
		rows, err := codec.DecodeStructural(path)
		if err != nil {
			return nil, err
		}
		count := 0
		for _, r := range rows {
			count += len(r)
		}
		if opts.CountOnly {
			rows = nil
		}
		return &InspectResult{Path: path, DType: string(ir.TagNested), Count: count, Rows: rows}, nil
	}

	dtype, err := parseElemType(opts.DType)
	if err != nil {
		return nil, err
	}
	if opts.CountOnly {
		n, err := flatCount(path, dtype)
		if err != nil {
			return nil, err
		}
		return &InspectResult{Path: path, DType: string(dtype), Count: n}, nil
	}

	var values []float64
	switch dtype {
	case ir.TagFloat32:
		data, err := codec.DecodeFlat[float32](path)
		if err != nil {
			return nil, err
		}
		values = make([]float64, len(data))
		for i, v := range data {
			values[i] = float64(v)
		}
	default:
		values, err = codec.DecodeFlat[float64](path)
		if err != nil {
			return nil, err
		}
	}

	return &InspectResult{
		Path:  path,
		DType: string(dtype),
		Count: len(values),
		Rows:  chunk(values, opts.Cols),
	}, nil
}

func flatCount(path string, dtype ir.TypeTag) (int, error) {
	if dtype == ir.TagFloat32 {
		return codec.FlatCount[float32](path)
	}
	return codec.FlatCount[float64](path)
}

// chunk splits values into rows of cols. cols == 0 keeps one row.
func chunk(values []float64, cols int) [][]float64 {
	if cols == 0 || cols >= len(values) {
		return [][]float64{values}
	}
	rows := make([][]float64, 0, (len(values)+cols-1)/cols)
	for start := 0; start < len(values); start += cols {
		rows = append(rows, values[start:min(start+cols, len(values))])
	}
	return rows
}

func renderInspect(w io.Writer, r *InspectResult) {
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "%s: %s, %d elements\n", r.Path, r.DType, r.Count)

	for _, row := range r.Rows {
		fields := make([]string, len(row))
		for i, v := range row {
			fields[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		fmt.Fprintln(w, strings.Join(fields, " "))
	}
}
