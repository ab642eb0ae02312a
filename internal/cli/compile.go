package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/semfilter/internal/filterir"
	"github.com/roach88/semfilter/internal/sqlcheck"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	SpecFile   string
	SchemaFile string
	Check      bool
	OutputFile string
}

// CompileResult is the compile command's payload.
type CompileResult struct {
	*filterir.CompiledFilter

	// Checked reports the filter was dry-run against DuckDB.
	Checked bool `json:"checked,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a RESOLVED spec to a parameterized WHERE clause",
		Long: `Compile a RESOLVED spec into a WHERE fragment with $n placeholders.

The spec's resolution token is checked against the spec's tree, the
schema and the dictionary. With --check the fragment is also run against
an empty DuckDB table shaped like the schema.

Examples:
  semfilter compile --spec spec.json --schema orders.yaml
  semfilter compile --spec spec.json --schema orders.yaml --check
  semfilter compile --spec spec.json --schema orders.yaml -o filter.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.SpecFile, "spec", "", "resolved spec file (JSON)")
	cmd.Flags().StringVar(&opts.SchemaFile, "schema", "", "schema file (JSON or YAML)")
	cmd.Flags().BoolVar(&opts.Check, "check", false, "dry-run the filter against DuckDB")
	cmd.Flags().StringVarP(&opts.OutputFile, "output", "o", "", "write the compiled filter to this file")
	_ = cmd.MarkFlagRequired("spec")
	_ = cmd.MarkFlagRequired("schema")

	return cmd
}

func runCompile(ctx context.Context, opts *CompileOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	out := opts.formatter(cmd)

	spec, err := LoadSpec(opts.SpecFile)
	if err != nil {
		return reportLoadError(out, err)
	}
	schema, err := LoadSchema(opts.SchemaFile)
	if err != nil {
		return reportLoadError(out, err)
	}

	svc, err := opts.services()
	if err != nil {
		return err
	}

	filter, err := svc.compiler.Compile(spec, schema)
	if err != nil {
		return out.FilterError(err)
	}
	result := CompileResult{CompiledFilter: filter}

	if opts.Check {
		if err := checkFilter(ctx, opts.RootOptions, filter, schema); err != nil {
			if outErr := out.Error(ErrCodeCheckFailed, err.Error(), nil); outErr != nil {
				return outErr
			}
			return WrapExitError(ExitFailure, "dry-run failed", err)
		}
		result.Checked = true
		out.VerboseLog("Dry-run against DuckDB passed")
	}

	if opts.OutputFile != "" {
		data, err := json.MarshalIndent(filter, "", "  ")
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to encode filter", err)
		}
		if err := os.WriteFile(opts.OutputFile, append(data, '\n'), 0644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write filter", err)
		}
	}

	if opts.Format == "json" {
		return out.Success(result)
	}
	w := cmd.OutOrStdout()
	renderFilter(w, filter)
	if result.Checked {
		fmt.Fprintln(w, "✓ Checked against DuckDB")
	}
	return nil
}

// checkFilter dry-runs filter in a throwaway DuckDB instance.
func checkFilter(ctx context.Context, opts *RootOptions, filter *filterir.CompiledFilter, schema filterir.Schema) error {
	checker, err := sqlcheck.Open(ctx, opts.log())
	if err != nil {
		return err
	}
	defer checker.Close()

	_, err = checker.Check(ctx, filter, schema)
	return err
}
