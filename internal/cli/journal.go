package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/aepbridge/internal/dyn"
	"github.com/roach88/aepbridge/internal/journal"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Database   string
	Module     string
	Method     string
	FailedOnly bool
	Limit      int
}

// JournalEntry is one journaled call as printed by the journal command.
type JournalEntry struct {
	Seq        int64     `json:"seq"`
	ID         string    `json:"id"`
	Op         string    `json:"op"`
	Args       dyn.List  `json:"args"`
	Result     dyn.Value `json:"result,omitempty"`
	Error      *CLIError `json:"error,omitempty"`
	DurationMS float64   `json:"duration_ms"`
}

// JournalResult holds the complete journal output.
type JournalResult struct {
	Entries []JournalEntry `json:"entries"`
	Total   int            `json:"total"`
	Failed  int            `json:"failed"`
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List journaled bridge calls",
		Long: `List the calls recorded in a journal database, oldest first.

Examples:
  aepbridge journal --db ./calls.db
  aepbridge journal --db ./calls.db --module AEPIdentity --limit 20
  aepbridge journal --db ./calls.db --failed --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Module, "module", "", "only calls to this module")
	cmd.Flags().StringVar(&opts.Method, "method", "", "only calls to this method")
	cmd.Flags().BoolVar(&opts.FailedOnly, "failed", false, "only failed calls")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum entries to print (0 = all)")

	return cmd
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, "--limit must be non-negative")
	}

	// Reading never creates a journal.
	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "journal not found", err)
	}
	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer j.Close()

	filter := journal.Filter{
		Module:     opts.Module,
		Method:     opts.Method,
		FailedOnly: opts.FailedOnly,
		Limit:      opts.Limit,
	}
	entries, err := j.List(ctx, filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}
	filter.Limit = 0
	total, err := j.Count(ctx, filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count journal", err)
	}

	filter.FailedOnly = true
	failed, err := j.Count(ctx, filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count journal", err)
	}

	result := JournalResult{Entries: make([]JournalEntry, 0, len(entries)), Total: total, Failed: failed}
	for _, e := range entries {
		result.Entries = append(result.Entries, toJournalEntry(e))
	}

	if opts.Format == "json" {
		return outputJournalJSON(cmd.OutOrStdout(), result)
	}
	return outputJournalText(cmd.OutOrStdout(), result)
}

func toJournalEntry(e journal.Entry) JournalEntry {
	out := JournalEntry{
		Seq:        e.Seq,
		ID:         e.ID,
		Op:         e.Op(),
		Args:       e.Args,
		DurationMS: float64(e.Duration.Microseconds()) / 1000,
	}
	if out.Args == nil {
		out.Args = dyn.List{}
	}
	if e.Failed() {
		out.Error = &CLIError{
			Code:    e.ErrorCode,
			Message: e.ErrorMessage,
			Details: e.ErrorKind,
		}
		return out
	}
	out.Result = e.Result
	if out.Result == nil {
		out.Result = dyn.Null{}
	}
	return out
}

func outputJournalJSON(w io.Writer, result JournalResult) error {
	resp := CLIResponse{
		Status: "ok",
		Data:   result,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func outputJournalText(w io.Writer, result JournalResult) error {
	if len(result.Entries) == 0 {
		fmt.Fprintln(w, "No journaled calls")
		return nil
	}

	for _, e := range result.Entries {
		args, err := dyn.MarshalCanonical(e.Args)
		if err != nil {
			return err
		}
		if e.Error != nil {
			fmt.Fprintf(w, "[%d] ✗ %s %s -> %s/%s: %s\n", e.Seq, e.Op, args, e.Error.Details, e.Error.Code, e.Error.Message)
			continue
		}
		res, err := dyn.MarshalCanonical(e.Result)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "[%d] ✓ %s %s -> %s\n", e.Seq, e.Op, args, res)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Shown: %d of %d (%d failed)\n", len(result.Entries), result.Total, result.Failed)
	return nil
}
