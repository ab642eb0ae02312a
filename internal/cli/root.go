package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/semfilter/internal/config"
	"github.com/roach88/semfilter/internal/confirmstore"
	"github.com/roach88/semfilter/internal/dictionary"
	"github.com/roach88/semfilter/internal/querysql"
	"github.com/roach88/semfilter/internal/resolver"
	"github.com/roach88/semfilter/internal/token"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	Dictionary string
	Store      string
	LogLevel   string

	// Filled by the root command before any subcommand runs. Commands
	// built on their own (tests) load them lazily.
	cfg    *config.Config
	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the semfilter CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "semfilter",
		Short: "semfilter - semantic filters to safe SQL",
		Long: `Resolve natural-language filter intents into parameterized SQL.

Business terms expand through a dictionary. Ambiguous expansions need a
human confirmation, carried by a signed resolution token, before the
filter compiles.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			cfg, err := config.Load(config.Sources{File: opts.ConfigFile, Flags: cmd.Flags()})
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load configuration", err)
			}
			opts.cfg = cfg
			opts.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: cfg.Level(),
			}))
			return nil
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (default "+config.DefaultFile+" when present)")
	flags.StringVar(&opts.Dictionary, "dictionary", "", "dictionary file (.cue, .yaml or .json); built-in when empty")
	flags.StringVar(&opts.Store, "store", "", `confirmation store: "memory" or a SQLite path`)
	flags.StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")

	// Add subcommands
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewConfirmCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewBatchCommand(opts))
	cmd.AddCommand(NewDictCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// config returns the loaded configuration, loading it without flags when
// the root command did not run.
func (o *RootOptions) config() (*config.Config, error) {
	if o.cfg != nil {
		return o.cfg, nil
	}
	cfg, err := config.Load(config.Sources{File: o.ConfigFile})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if o.Dictionary != "" {
		cfg.Dictionary = o.Dictionary
	}
	if o.Store != "" {
		cfg.ConfirmStore = o.Store
	}
	o.cfg = cfg
	return cfg, nil
}

func (o *RootOptions) log() *slog.Logger {
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.logger
}

// services is what the resolving commands share.
type services struct {
	dict     *dictionary.Dictionary
	signer   *token.Signer
	resolver *resolver.Resolver
	compiler *querysql.Compiler
	logger   *slog.Logger
}

// services validates the configuration and builds the resolver and
// compiler. The secret is only checked here, so commands that never sign
// run without one.
func (o *RootOptions) services() (*services, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	dict, err := o.dictionary()
	if err != nil {
		return nil, err
	}
	signer, err := token.NewSigner([]byte(cfg.TokenSecret))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid token secret", err)
	}

	logger := o.log()
	return &services{
		dict:     dict,
		signer:   signer,
		resolver: resolver.New(dict, signer, resolver.WithLogger(logger)),
		compiler: querysql.NewCompiler(signer, dict.Version(), querysql.WithLogger(logger)),
		logger: logger,
	}, nil
}

// dictionary loads the configured dictionary, or the built-in one.
func (o *RootOptions) dictionary() (*dictionary.Dictionary, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	if cfg.Dictionary == "" {
		return dictionary.Default(), nil
	}
	if _, err := os.Stat(cfg.Dictionary); os.IsNotExist(err) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("dictionary file not found: %s", cfg.Dictionary))
	}
	dict, err := dictionary.LoadFile(cfg.Dictionary)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load dictionary", err)
	}
	return dict, nil
}

// openStore opens the configured confirmation store.
func (o *RootOptions) openStore() (confirmstore.Store, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	if cfg.ConfirmStore == config.StoreMemory {
		return confirmstore.NewMemory(), nil
	}
	store, err := confirmstore.OpenSQLite(cfg.ConfirmStore)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open confirmation store", err)
	}
	return store, nil
}
