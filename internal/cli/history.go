package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/quark/internal/ir"
	"github.com/roach88/quark/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Journal string
	Limit   int
	Summary bool
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show journaled dispatches",
		Long: `List dispatches recorded by exec --journal, oldest first, or summarize
them per operator with --summary.

Example:
  quark history --journal quark.db --limit 20
  quark history --journal quark.db --summary --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite journal (default from config)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "show only the most recent N dispatches (0 for all)")
	cmd.Flags().BoolVar(&opts.Summary, "summary", false, "aggregate per operator")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	path := opts.Journal
	if path == "" {
		path = opts.Config.Journal
	}
	if path == "" {
		msg := "no journal given: pass --journal or set journal in the config file"
		_ = formatter.Error(ErrCodeJournal, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	// Opening would create an empty journal; a typo should not.
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		msg := fmt.Sprintf("journal not found: %s", path)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	st, err := store.Open(path)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	if opts.Summary {
		sums, err := st.Summarize(cmd.Context())
		if err != nil {
			_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		if formatter.Format == "json" {
			return formatter.Success(sums)
		}
		renderSummary(cmd.OutOrStdout(), sums)
		return nil
	}

	records, err := st.ListDispatches(cmd.Context(), opts.Limit)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}
	if formatter.Format == "json" {
		return formatter.Success(records)
	}
	renderHistory(cmd.OutOrStdout(), records)
	return nil
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	return table
}

func renderHistory(w io.Writer, records []ir.DispatchRecord) {
	table := newTable(w, []string{"SEQ", "ID", "OPERATOR", "STATE", "CODE", "ELAPSED"})
	for _, r := range records {
		code := r.ErrorCode
		if code == "" {
			code = "-"
		}
		table.Append([]string{
			fmt.Sprint(r.Seq),
			r.ID,
			r.Executor + "." + r.Operation,
			r.State,
			code,
			time.Duration(r.ElapsedNS).String(),
		})
	}
	table.Render()
}

func renderSummary(w io.Writer, sums []store.OperatorSummary) {
	p := message.NewPrinter(language.English)
	table := newTable(w, []string{"OPERATOR", "TOTAL", "COMMITTED", "FAILED", "MEAN"})
	for _, s := range sums {
		table.Append([]string{
			s.Executor + "." + s.Operation,
			p.Sprintf("%d", s.Total),
			p.Sprintf("%d", s.Committed),
			p.Sprintf("%d", s.Failed),
			time.Duration(s.MeanNS).String(),
		})
	}
	table.Render()
}
