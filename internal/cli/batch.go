package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/semfilter/internal/filterir"
)

// BatchOptions holds flags for the batch command.
type BatchOptions struct {
	*RootOptions
	SchemaFile string
	Session    string
	Jobs       int
}

// BatchItem is the outcome for one intent file.
type BatchItem struct {
	File        string          `json:"file"`
	Status      filterir.Status `json:"status,omitempty"`
	Explanation string          `json:"explanation,omitempty"`
	WhereSQL    string          `json:"where_sql,omitempty"`
	Params      []any           `json:"params,omitempty"`
	Pending     []string        `json:"pending_terms,omitempty"`
	Error       *CLIError       `json:"error,omitempty"`
}

// BatchResult holds the batch outcome.
type BatchResult struct {
	Items    []BatchItem `json:"items"`
	Compiled int         `json:"compiled"`
	Pending  int         `json:"pending"`
	Failed   int         `json:"failed"`
	Total    int         `json:"total"`
}

// NewBatchCommand creates the batch command.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "batch <intents-dir>",
		Short: "Resolve and compile every intent in a directory",
		Long: `Resolve every *.json intent in a directory against one schema and
compile those that come out RESOLVED. Files are processed concurrently;
results are reported in file name order.

Exit codes:
  0 - Every intent resolved (compiled or awaiting confirmation)
  1 - One or more intents were rejected
  2 - Command error

Examples:
  semfilter batch ./intents --schema orders.yaml
  semfilter batch ./intents --schema orders.yaml --jobs 4 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.SchemaFile, "schema", "", "schema file (JSON or YAML)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "confirmation session to apply")
	cmd.Flags().IntVar(&opts.Jobs, "jobs", runtime.NumCPU(), "maximum intents processed at once")
	_ = cmd.MarkFlagRequired("schema")

	return cmd
}

func runBatch(ctx context.Context, opts *BatchOptions, dir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	out := opts.formatter(cmd)

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("intents directory not found: %s", dir))
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list intents", err)
	}
	sort.Strings(files)

	schema, err := LoadSchema(opts.SchemaFile)
	if err != nil {
		return reportLoadError(out, err)
	}
	svc, err := opts.services()
	if err != nil {
		return err
	}

	var prior []filterir.Confirmation
	if opts.Session != "" {
		store, err := opts.openStore()
		if err != nil {
			return err
		}
		prior, err = store.Snapshot(ctx, opts.Session)
		store.Close()
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read confirmations", err)
		}
	}

	items := make([]BatchItem, len(files))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Jobs > 0 {
		g.SetLimit(opts.Jobs)
	}
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			items[i] = svc.processIntent(file, schema, prior)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return WrapExitError(ExitCommandError, "batch interrupted", err)
	}

	result := BatchResult{Items: items, Total: len(items)}
	for _, item := range items {
		switch {
		case item.Error != nil:
			result.Failed++
		case item.WhereSQL != "":
			result.Compiled++
		default:
			result.Pending++
		}
	}
	svc.logger.Info("batch finished",
		"total", result.Total,
		"compiled", result.Compiled,
		"pending", result.Pending,
		"failed", result.Failed)

	if opts.Format == "json" {
		if err := out.SuccessWithSession(result, opts.Session); err != nil {
			return err
		}
	} else {
		renderBatch(cmd, result)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d intent(s) failed", result.Failed))
	}
	return nil
}

// processIntent resolves one intent file and compiles it when RESOLVED.
// Failures are recorded in the item rather than returned.
func (s *services) processIntent(file string, schema filterir.Schema, prior []filterir.Confirmation) BatchItem {
	item := BatchItem{File: filepath.Base(file)}
	fail := func(err error) BatchItem {
		item.Error = cliError(err)
		return item
	}

	intent, err := LoadIntent(file)
	if err != nil {
		return fail(err)
	}
	spec, err := s.resolver.Resolve(intent, schema, prior)
	if err != nil {
		return fail(err)
	}
	item.Status = spec.Status
	item.Explanation = spec.Explanation
	item.Pending = spec.PendingTerms()
	if spec.Status != filterir.StatusResolved {
		return item
	}

	filter, err := s.compiler.Compile(spec, schema)
	if err != nil {
		return fail(err)
	}
	item.WhereSQL = filter.WhereSQL
	item.Params = filter.Params
	return item
}

func cliError(err error) *CLIError {
	var ferr *filterir.Error
	if errors.As(err, &ferr) {
		return &CLIError{Code: string(ferr.Code), Message: ferr.Message, Reason: ferr.Reason}
	}
	var le *LoadError
	if errors.As(err, &le) {
		return &CLIError{Code: le.Code, Message: le.Message}
	}
	return &CLIError{Code: ErrCodeGeneric, Message: err.Error()}
}

func renderBatch(cmd *cobra.Command, result BatchResult) {
	w := cmd.OutOrStdout()
	t := newTable(w)
	t.AppendHeader(table.Row{"File", "Status", "Result"})
	for _, item := range result.Items {
		switch {
		case item.Error != nil:
			t.AppendRow(table.Row{item.File, item.Error.Code, item.Error.Message})
		case item.WhereSQL != "":
			t.AppendRow(table.Row{item.File, item.Status, item.WhereSQL})
		default:
			t.AppendRow(table.Row{item.File, item.Status, item.Explanation})
		}
	}
	t.AppendFooter(table.Row{"", "Total", fmt.Sprintf("%d compiled, %d pending, %d failed",
		result.Compiled, result.Pending, result.Failed)})
	t.Render()
}
