package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/semfilter/internal/filterir"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	IntentFile string
	SchemaFile string
	Session    string
	OutputFile string
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve an intent against a schema",
		Long: `Resolve the semantic terms of an intent against a schema.

The result is RESOLVED, NEEDS_CONFIRMATION or UNRESOLVED. Unless it is
UNRESOLVED it carries a resolution token: pass a RESOLVED spec to compile,
or a NEEDS_CONFIRMATION token to confirm.

With --session, confirmations stored earlier in that session apply.

Exit codes:
  0 - Resolved (any status)
  1 - Intent rejected (unknown column, bad operator, ...)
  2 - Command error

Examples:
  semfilter resolve --intent intent.json --schema orders.yaml
  semfilter resolve --intent intent.json --schema orders.yaml -o spec.json
  semfilter resolve --intent intent.json --schema orders.yaml --session 0190... --store confirm.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.IntentFile, "intent", "", "intent file (JSON or YAML)")
	cmd.Flags().StringVar(&opts.SchemaFile, "schema", "", "schema file (JSON or YAML)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "confirmation session to apply")
	cmd.Flags().StringVarP(&opts.OutputFile, "output", "o", "", "write the resolved spec to this file")
	_ = cmd.MarkFlagRequired("intent")
	_ = cmd.MarkFlagRequired("schema")

	return cmd
}

func runResolve(ctx context.Context, opts *ResolveOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	out := opts.formatter(cmd)

	intent, schema, err := loadRequest(opts.IntentFile, opts.SchemaFile)
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
		defer store.Close()

		prior, err = store.Snapshot(ctx, opts.Session)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read confirmations", err)
		}
		out.VerboseLog("Session %s: %d stored confirmation(s)", opts.Session, len(prior))
	}

	spec, err := svc.resolver.Resolve(intent, schema, prior)
	if err != nil {
		return out.FilterError(err)
	}

	if opts.OutputFile != "" {
		if err := writeSpec(opts.OutputFile, spec); err != nil {
			return WrapExitError(ExitCommandError, "failed to write spec", err)
		}
		out.VerboseLog("Wrote spec to %s", opts.OutputFile)
	}

	if opts.Format == "json" {
		return out.SuccessWithSession(spec, opts.Session)
	}
	renderSpec(cmd.OutOrStdout(), spec)
	return nil
}

// loadRequest reads the intent and schema files every resolving command
// takes.
func loadRequest(intentFile, schemaFile string) (filterir.Intent, filterir.Schema, error) {
	intent, err := LoadIntent(intentFile)
	if err != nil {
		return filterir.Intent{}, filterir.Schema{}, err
	}
	schema, err := LoadSchema(schemaFile)
	if err != nil {
		return filterir.Intent{}, filterir.Schema{}, err
	}
	return intent, schema, nil
}

// reportLoadError prints an input error and returns the matching exit
// error. Decoding errors raised by the filter model keep their code.
func reportLoadError(out *OutputFormatter, err error) error {
	var le *LoadError
	if errors.As(err, &le) {
		if outErr := out.Error(le.Code, fmt.Sprintf("%s: %s", le.Path, le.Message), nil); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitCommandError, "invalid input", err)
	}
	if _, ok := filterir.CodeOf(err); ok {
		return out.FilterError(err)
	}
	if outErr := out.Error(ErrCodeBadInput, err.Error(), nil); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitCommandError, "invalid input", err)
}
