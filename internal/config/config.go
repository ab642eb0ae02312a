// Package config loads semfilter process configuration.
//
// Sources are layered lowest to highest precedence:
//
//  1. built-in defaults
//  2. YAML config file (semfilter.yaml unless --config names another)
//  3. .env file
//  4. process environment (FILTER_TOKEN_SECRET, SEMFILTER_*)
//  5. explicitly set command-line flags
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/roach88/semfilter/internal/token"
)

const (
	// DefaultFile is read when present and no file is named explicitly.
	DefaultFile = "semfilter.yaml"

	// DefaultDotEnv is read when present and no .env path is named.
	DefaultDotEnv = ".env"

	// SecretEnv holds the token signing secret.
	SecretEnv = "FILTER_TOKEN_SECRET"

	// EnvPrefix namespaces every other environment key.
	EnvPrefix = "SEMFILTER_"

	// StoreMemory selects the in-process confirmation store.
	StoreMemory = "memory"
)

// Config is the resolved process configuration.
type Config struct {
	// TokenSecret signs resolution tokens. Must be at least 32 bytes.
	TokenSecret string `koanf:"token_secret"`

	// Dictionary is a .cue/.yaml/.json dictionary file. Empty selects the
	// built-in dictionary.
	Dictionary string `koanf:"dictionary"`

	// ConfirmStore is "memory" or the path of a SQLite database.
	ConfirmStore string `koanf:"confirm_store"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `koanf:"log_level"`
}

// Sources names the inputs Load reads. Empty paths fall back to the
// defaults when those files exist.
type Sources struct {
	File   string
	DotEnv string
	Flags  *pflag.FlagSet
}

// ErrNoSecret is returned by Validate when no signing secret is configured.
var ErrNoSecret = fmt.Errorf("token secret not configured; set %s", SecretEnv)

// Load builds a Config from src. It does not validate; call Validate
// before using the secret.
func Load(src Sources) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]any{
		"token_secret":  "",
		"dictionary":    "",
		"confirm_store": StoreMemory,
		"log_level":     "info",
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := pick(src.File, DefaultFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	if path := pick(src.DotEnv, DefaultDotEnv); path != "" {
		vars, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", path, err)
		}
		dotenv := make(map[string]any, len(vars))
		for name, value := range vars {
			if key := envKey(name); key != "" {
				dotenv[key] = value
			}
		}
		if err := k.Load(confmap.Provider(dotenv, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if src.Flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(src.Flags, ".", k, flagKey(src.Flags)), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

// pick returns explicit, or fallback when explicit is empty and the
// fallback file exists. An explicit path is returned even when missing so
// the load fails loudly.
func pick(explicit, fallback string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(fallback); err == nil {
		return fallback
	}
	return ""
}

// envKey maps an environment variable to a config key, or "" to skip it.
// FILTER_TOKEN_SECRET -> token_secret, SEMFILTER_CONFIRM_STORE -> confirm_store.
func envKey(name string) string {
	if name == SecretEnv {
		return "token_secret"
	}
	if strings.HasPrefix(name, EnvPrefix) {
		return strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	}
	return ""
}

// flagKey maps explicitly set flags onto config keys.
func flagKey(flags *pflag.FlagSet) func(f *pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		if !f.Changed {
			return "", nil
		}
		switch f.Name {
		case "dictionary":
			return "dictionary", posflag.FlagVal(flags, f)
		case "store":
			return "confirm_store", posflag.FlagVal(flags, f)
		case "log-level":
			return "log_level", posflag.FlagVal(flags, f)
		case "verbose":
			if v, _ := flags.GetBool("verbose"); v {
				return "log_level", "debug"
			}
		}
		return "", nil
	}
}

// Validate checks the configuration is usable. All problems are reported.
func (c *Config) Validate() error {
	var result *multierror.Error
	switch {
	case c.TokenSecret == "":
		result = multierror.Append(result, ErrNoSecret)
	case len(c.TokenSecret) < token.MinSecretLength:
		result = multierror.Append(result,
			fmt.Errorf("%s is %d bytes; %w", SecretEnv, len(c.TokenSecret), token.ErrSecretTooShort))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		result = multierror.Append(result, err)
	}
	if c.ConfirmStore == "" {
		result = multierror.Append(result, fmt.Errorf("confirm_store is required (%q or a SQLite path)", StoreMemory))
	}
	return result.ErrorOrNil()
}

// Level returns the slog level for LogLevel. Unknown levels yield Info.
func (c *Config) Level() slog.Level {
	l, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level %q: %w", s, err)
	}
	return l, nil
}
