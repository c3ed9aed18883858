package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/quark/internal/dispatch"
	"github.com/roach88/quark/internal/ir"
	"github.com/roach88/quark/internal/kernels"
	"github.com/roach88/quark/internal/store"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	Executor  string
	Operation string
	Args      []string
	Journal   string

	// IDGenerator allows overriding dispatch IDs (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator dispatch.IDGenerator
}

// ExecResult is the success payload of exec.
type ExecResult struct {
	ID        string   `json:"id"`
	Executor  string   `json:"executor"`
	Operation string   `json:"operation"`
	State     string   `json:"state"`
	Committed []string `json:"committed"`
	ElapsedNS int64    `json:"elapsed_ns"`
}

// String renders the text form of the result.
func (r ExecResult) String() string {
	s := fmt.Sprintf("%s.%s %s in %s", r.Executor, r.Operation, r.State, time.Duration(r.ElapsedNS))
	if len(r.Committed) > 0 {
		s += "\nwrote " + strings.Join(r.Committed, ", ")
	}
	return s
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	return newExecCommand(&ExecOptions{RootOptions: rootOpts})
}

func newExecCommand(opts *ExecOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec -e <executor> -w <operation> [-a <arg>]... [arg]...",
		Short: "Dispatch one operator",
		Long: `Parse the argument tokens against the operator's signature, run it,
and write every output buffer back to its file if the operator succeeds.

Arguments are positional. Values given with -a come first, followed by any
bare arguments. Buffer arguments are paths to flat files.

Example:
  quark exec -e catzilla -w matmul -a 2 -a 2 -a 2 -a 1.0 -a A.bin -a B.bin -a 0.0 -a C.bin
  quark exec -e catzilla -w scale 4 0.5 X.bin --journal quark.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Args = append(opts.Args, args...)
			return runExec(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Executor, "executor", "e", "", "executor name (required)")
	cmd.Flags().StringVarP(&opts.Operation, "workload", "w", "", "operation name (required)")
	cmd.Flags().StringArrayVarP(&opts.Args, "arg", "a", nil, "argument token (repeatable, in signature order)")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "record the outcome in this SQLite journal")
	_ = cmd.MarkFlagRequired("executor")
	_ = cmd.MarkFlagRequired("workload")

	return cmd
}

func runExec(opts *ExecOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.Logger(formatter.GetErrWriter())

	reg, err := kernels.NewRegistry(kernels.WithDiagnosticWriter(cmd.OutOrStdout()))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load operator table", err)
	}

	ledger := ir.NewLedger()
	dopts := []dispatch.Option{
		dispatch.WithLogger(logger),
		dispatch.WithLedger(ledger),
	}
	if opts.IDGenerator != nil {
		dopts = append(dopts, dispatch.WithIDGenerator(opts.IDGenerator))
	}

	journal := opts.Journal
	if journal == "" {
		journal = opts.Config.Journal
	}
	if journal != "" {
		st, err := store.Open(journal)
		if err != nil {
			_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		dopts = append(dopts, dispatch.WithRecorder(st))
	}

	d := dispatch.New(reg, dopts...)
	formatter.VerboseLog("dispatching %s.%s with %d args", opts.Executor, opts.Operation, len(opts.Args))
	out, err := d.Execute(cmd.Context(), dispatch.Request{
		Executor:  opts.Executor,
		Operation: opts.Operation,
		Args:      opts.Args,
	})
	formatter.VerboseLog("dispatch %s ended %s after %s", out.ID, out.State, out.Elapsed)
	if n := ledger.Outstanding(); n != 0 {
		logger.Error("buffers outstanding after dispatch", "count", n)
	}

	if err != nil {
		details := map[string]any{
			"code":  string(out.Err.Code),
			"state": out.State.String(),
			"trace": traceNames(out.Trace),
		}
		_ = formatter.ErrorTraced(ErrCodeDispatch, err.Error(), details, out.ID)
		return WrapExitError(ExitFailure, "dispatch failed", err)
	}

	committed := out.Committed
	if committed == nil {
		committed = []string{}
	}
	return formatter.SuccessTraced(ExecResult{
		ID:        out.ID,
		Executor:  opts.Executor,
		Operation: opts.Operation,
		State:     out.State.String(),
		Committed: committed,
		ElapsedNS: out.Elapsed.Nanoseconds(),
	}, out.ID)
}

func traceNames(trace []dispatch.State) []string {
	names := make([]string, len(trace))
	for i, s := range trace {
		names[i] = s.String()
	}
	return names
}
