package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/semfilter/internal/dictionary"
)

// DictSummary counts the entries of a dictionary.
type DictSummary struct {
	Version    string `json:"version"`
	Source     string `json:"source"`
	States     int    `json:"states"`
	Regions    int    `json:"regions"`
	Aliases    int    `json:"aliases"`
	Predicates int    `json:"predicates"`
}

// NewDictCommand creates the dict command group.
func NewDictCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dict",
		Short: "Inspect and validate dictionaries",
		Long: `Inspect and validate term dictionaries.

The dictionary is the file given as argument, else --dictionary or the
configured one, else the built-in dictionary.`,
	}
	cmd.AddCommand(newDictValidateCommand(rootOpts))
	cmd.AddCommand(newDictShowCommand(rootOpts))
	return cmd
}

func newDictValidateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a dictionary file",
		Long: `Validate a dictionary and report every problem found.

Exit codes:
  0 - Dictionary valid
  1 - Validation errors found
  2 - Command error (file not found)

Examples:
  semfilter dict validate regions.cue
  semfilter dict validate --dictionary regions.yaml --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDictValidate(opts, args, cmd)
		},
	}
}

func newDictShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show [file]",
		Short: "Print a dictionary's regions and predicates",
		Example: `  semfilter dict show
  semfilter dict show regions.yaml --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDictShow(opts, args, cmd)
		},
	}
}

// loadDict loads args[0], or the configured dictionary.
func loadDict(opts *RootOptions, args []string) (*dictionary.Dictionary, string, error) {
	if len(args) == 0 {
		cfg, err := opts.config()
		if err != nil {
			return nil, "", err
		}
		source := cfg.Dictionary
		if source == "" {
			source = "built-in"
		}
		dict, err := opts.dictionary()
		return dict, source, err
	}

	path := args[0]
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, path, NewExitError(ExitCommandError, fmt.Sprintf("dictionary file not found: %s", path))
	}
	dict, err := dictionary.LoadFile(path)
	return dict, path, err
}

func runDictValidate(opts *RootOptions, args []string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	dict, source, err := loadDict(opts, args)
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) && exitErr.Code == ExitCommandError && exitErr.Err == nil {
			return err
		}
		problems := problemList(err)
		if outErr := out.Error(ErrCodeBadInput, fmt.Sprintf("%s: %d problem(s)", source, len(problems)), problems); outErr != nil {
			return outErr
		}
		if opts.Format != "json" {
			for _, p := range problems {
				fmt.Fprintf(cmd.OutOrStdout(), "  ✗ %s\n", p)
			}
		}
		return WrapExitError(ExitFailure, "dictionary invalid", err)
	}

	summary := summarize(dict, source)
	if opts.Format == "json" {
		return out.Success(summary)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s (%s): %d states, %d regions, %d aliases, %d predicates\n",
		summary.Version, summary.Source, summary.States, summary.Regions, summary.Aliases, summary.Predicates)
	return nil
}

func runDictShow(opts *RootOptions, args []string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	dict, source, err := loadDict(opts, args)
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return err
		}
		return WrapExitError(ExitCommandError, "failed to load dictionary", err)
	}

	if opts.Format == "json" {
		return out.Success(dict.Definition())
	}
	renderDict(cmd.OutOrStdout(), dict, source)
	return nil
}

// problemList flattens a multierror into one line per problem.
func problemList(err error) []string {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		out := make([]string, len(merr.Errors))
		for i, e := range merr.Errors {
			out[i] = e.Error()
		}
		return out
	}
	return []string{err.Error()}
}

func summarize(dict *dictionary.Dictionary, source string) DictSummary {
	def := dict.Definition()
	return DictSummary{
		Version:    def.Version,
		Source:     source,
		States:     len(def.States),
		Regions:    len(def.Regions),
		Aliases:    len(def.RegionAliases),
		Predicates: len(def.Predicates),
	}
}

func renderDict(w io.Writer, dict *dictionary.Dictionary, source string) {
	def := dict.Definition()
	fmt.Fprintf(w, "Dictionary %s (%s)\n\n", def.Version, source)

	aliases := make(map[string][]string)
	for alias, key := range def.RegionAliases {
		aliases[key] = append(aliases[key], alias)
	}

	regions := newTable(w)
	regions.AppendHeader(table.Row{"Region", "States", "Aliases"})
	for _, key := range sortedNames(def.Regions) {
		names := aliases[key]
		sort.Strings(names)
		regions.AppendRow(table.Row{key, strings.Join(dict.RegionMembers(key), ", "), strings.Join(names, ", ")})
	}
	regions.Render()

	if len(def.Predicates) == 0 {
		return
	}
	fmt.Fprintln(w)
	preds := newTable(w)
	preds.AppendHeader(table.Row{"Predicate", "Expansion", "Columns", "Description"})
	for _, key := range sortedNames(def.Predicates) {
		p := def.Predicates[key]
		preds.AppendRow(table.Row{key, p.Expansion, strings.Join(p.ColumnPatterns, ", "), p.Description})
	}
	preds.Render()
}

func sortedNames[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
