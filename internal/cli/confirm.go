package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/semfilter/internal/confirmstore"
	"github.com/roach88/semfilter/internal/filterir"
)

// ConfirmOptions holds flags for the confirm command.
type ConfirmOptions struct {
	*RootOptions
	IntentFile string
	SchemaFile string
	Token      string
	Session    string
	OutputFile string

	// sessions creates an ID when --session is empty.
	sessions confirmstore.SessionGenerator
}

// ConfirmResult is the confirm command's payload.
type ConfirmResult struct {
	Spec      *filterir.ResolvedSpec `json:"spec"`
	Confirmed []string               `json:"confirmed_terms"`
}

// NewConfirmCommand creates the confirm command.
func NewConfirmCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConfirmOptions{RootOptions: rootOpts, sessions: confirmstore.UUIDv7Generator{}}

	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Confirm the pending terms of a resolution",
		Long: `Approve the expansions a NEEDS_CONFIRMATION resolution is waiting on.

--token must be the resolution token of that resolution, unexpired and
issued for the same intent, schema and dictionary. The confirmation is
stored in the session (a new session is created when --session is empty)
and the intent is resolved again, which must now be RESOLVED.

Examples:
  semfilter confirm --intent intent.json --schema orders.yaml --token eyJ...
  semfilter confirm --intent intent.json --schema orders.yaml --token eyJ... --session 0190... --store confirm.db -o spec.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfirm(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.IntentFile, "intent", "", "intent file (JSON or YAML)")
	cmd.Flags().StringVar(&opts.SchemaFile, "schema", "", "schema file (JSON or YAML)")
	cmd.Flags().StringVar(&opts.Token, "token", "", "resolution token of the NEEDS_CONFIRMATION result")
	cmd.Flags().StringVar(&opts.Session, "session", "", "confirmation session (created when empty)")
	cmd.Flags().StringVarP(&opts.OutputFile, "output", "o", "", "write the resolved spec to this file")
	_ = cmd.MarkFlagRequired("intent")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}

func runConfirm(ctx context.Context, opts *ConfirmOptions, cmd *cobra.Command) error {
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
	store, err := opts.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	session := opts.Session
	if session == "" {
		session = opts.sessions.NewSessionID()
		out.VerboseLog("Created session %s", session)
	}

	prior, err := store.Snapshot(ctx, session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read confirmations", err)
	}

	spec, confirmation, err := svc.resolver.Confirm(intent, schema, opts.Token, prior)
	if err != nil {
		return out.FilterError(err)
	}

	// Confirm verified the token, so only its expiry is needed here.
	payload, err := svc.signer.Decode(confirmation.Token)
	if err != nil {
		return out.FilterError(err)
	}
	if err := store.Put(ctx, session, confirmation, payload.Expiry()); err != nil {
		return WrapExitError(ExitCommandError, "failed to store confirmation", err)
	}
	svc.logger.Info("stored confirmation",
		"session", session,
		"terms", confirmation.Terms,
		"expires_at", payload.Expiry())

	if opts.OutputFile != "" {
		if err := writeSpec(opts.OutputFile, spec); err != nil {
			return WrapExitError(ExitCommandError, "failed to write spec", err)
		}
	}

	if opts.Format == "json" {
		return out.SuccessWithSession(ConfirmResult{Spec: spec, Confirmed: confirmation.Terms}, session)
	}
	renderConfirm(cmd.OutOrStdout(), session, confirmation.Terms, spec)
	return nil
}

func renderConfirm(w io.Writer, session string, terms []string, spec *filterir.ResolvedSpec) {
	fmt.Fprintf(w, "Session: %s\n", session)
	fmt.Fprintf(w, "Confirmed %d term(s)\n", len(terms))
	for _, term := range terms {
		fmt.Fprintf(w, "  ✓ %s\n", term)
	}
	fmt.Fprintln(w)
	renderSpec(w, spec)
}
