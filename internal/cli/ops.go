package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/quark/internal/ir"
	"github.com/roach88/quark/internal/kernels"
	"github.com/roach88/quark/internal/registry"
)

// OperatorInfo is one row of the ops listing.
type OperatorInfo struct {
	Executor  string      `json:"executor"`
	Operation string      `json:"operation"`
	Summary   string      `json:"summary"`
	Args      []ir.ArgSig `json:"args"`
}

// NewOpsCommand creates the ops command.
func NewOpsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ops [executor]",
		Short: "List registered operators and their signatures",
		Long: `List every registered operator, or only those under one executor.

Output positions are marked with a trailing "!" in the text listing.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			executor := ""
			if len(args) == 1 {
				executor = args[0]
			}
			return runOps(rootOpts, executor, cmd)
		},
	}

	return cmd
}

func runOps(opts *RootOptions, executor string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	reg, err := kernels.NewRegistry()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load operator table", err)
	}

	descs := reg.All()
	if executor != "" {
		if !reg.HasExecutor(executor) {
			msg := fmt.Sprintf("no executor named %q", executor)
			_ = formatter.Error(ErrCodeNotFound, msg, map[string]any{"executors": reg.Executors()})
			return NewExitError(ExitCommandError, msg)
		}
		descs = reg.Operators(executor)
	}

	infos := make([]OperatorInfo, len(descs))
	for i, d := range descs {
		infos[i] = operatorInfo(d)
	}

	if formatter.Format == "json" {
		return formatter.Success(infos)
	}
	renderOps(cmd.OutOrStdout(), infos)
	return nil
}

func operatorInfo(d *registry.Descriptor) OperatorInfo {
	args := make([]ir.ArgSig, len(d.Signature))
	for i, tag := range d.Signature {
		args[i] = ir.ArgSig{Name: d.ArgNames[i], Tag: tag, Output: d.Outputs[i]}
	}
	return OperatorInfo{
		Executor:  d.Key.Executor,
		Operation: d.Key.Operation,
		Summary:   d.Summary,
		Args:      args,
	}
}

func renderOps(w io.Writer, infos []OperatorInfo) {
	table := newTable(w, []string{"EXECUTOR", "OPERATION", "ARGS"})
	for _, info := range infos {
		parts := make([]string, len(info.Args))
		for i, a := range info.Args {
			parts[i] = a.Name + ":" + string(a.Tag)
			if a.Output {
				parts[i] += "!"
			}
		}
		table.Append([]string{info.Executor, info.Operation, strings.Join(parts, " ")})
	}
	table.Render()
}
