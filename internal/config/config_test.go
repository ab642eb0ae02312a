package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/semfilter/internal/token"
)

const secret = "0123456789abcdef0123456789abcdef"

// isolate runs the test in an empty directory with no config env vars.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv(SecretEnv, "")
	os.Unsetenv(SecretEnv)
	for _, name := range []string{"SEMFILTER_DICTIONARY", "SEMFILTER_CONFIRM_STORE", "SEMFILTER_LOG_LEVEL", "SEMFILTER_TOKEN_SECRET"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	return dir
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Bool("verbose", false, "")
	fs.String("dictionary", "", "")
	fs.String("store", "", "")
	fs.String("log-level", "", "")
	fs.String("format", "json", "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(Sources{})
	require.NoError(t, err)
	assert.Equal(t, &Config{ConfirmStore: StoreMemory, LogLevel: "info"}, cfg)
}

func TestLoad_Precedence(t *testing.T) {
	dir := isolate(t)

	yamlPath := writeFile(t, filepath.Join(dir, "custom.yaml"), `
dictionary: from-file.cue
confirm_store: file.db
log_level: warn
token_secret: file-secret-file-secret-file-secret
`)
	envPath := writeFile(t, filepath.Join(dir, "custom.env"), `
SEMFILTER_CONFIRM_STORE=dotenv.db
FILTER_TOKEN_SECRET=dotenv-secret-dotenv-secret-dotenv
UNRELATED=ignored
`)
	t.Setenv(SecretEnv, secret)

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--store", "flag.db"}))

	cfg, err := Load(Sources{File: yamlPath, DotEnv: envPath, Flags: fs})
	require.NoError(t, err)

	assert.Equal(t, "from-file.cue", cfg.Dictionary, "file beats defaults")
	assert.Equal(t, "warn", cfg.LogLevel, "unset flags do not override")
	assert.Equal(t, secret, cfg.TokenSecret, "environment beats .env")
	assert.Equal(t, "flag.db", cfg.ConfirmStore, "flags beat everything")
}

func TestLoad_DotEnvBeatsFile(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, DefaultFile), "confirm_store: file.db\n")
	writeFile(t, filepath.Join(dir, DefaultDotEnv), "SEMFILTER_CONFIRM_STORE=dotenv.db\n")

	cfg, err := Load(Sources{})
	require.NoError(t, err)
	assert.Equal(t, "dotenv.db", cfg.ConfirmStore)
}

func TestLoad_PrefixedEnv(t *testing.T) {
	isolate(t)
	t.Setenv("SEMFILTER_DICTIONARY", "env.yaml")
	t.Setenv("SEMFILTER_LOG_LEVEL", "error")

	cfg, err := Load(Sources{})
	require.NoError(t, err)
	assert.Equal(t, "env.yaml", cfg.Dictionary)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestLoad_VerboseFlag(t *testing.T) {
	isolate(t)

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--verbose"}))
	cfg, err := Load(Sources{Flags: fs})
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, cfg.Level())

	fs = testFlags()
	require.NoError(t, fs.Parse([]string{"--format", "text"}))
	cfg, err = Load(Sources{Flags: fs})
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	dir := isolate(t)

	_, err := Load(Sources{File: filepath.Join(dir, "nope.yaml")})
	assert.ErrorContains(t, err, "error reading config file")

	_, err = Load(Sources{DotEnv: filepath.Join(dir, "nope.env")})
	assert.ErrorContains(t, err, "nope.env")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr []string
	}{
		{
			name: "valid",
			cfg:  Config{TokenSecret: secret, ConfirmStore: StoreMemory, LogLevel: "info"},
		},
		{
			name:    "missing secret",
			cfg:     Config{ConfirmStore: StoreMemory, LogLevel: "info"},
			wantErr: []string{"token secret not configured"},
		},
		{
			name:    "short secret",
			cfg:     Config{TokenSecret: "short", ConfirmStore: StoreMemory, LogLevel: "debug"},
			wantErr: []string{"is 5 bytes", "at least 32 bytes"},
		},
		{
			name:    "everything wrong",
			cfg:     Config{TokenSecret: "short", LogLevel: "loud"},
			wantErr: []string{"at least 32 bytes", `log_level "loud"`, "confirm_store is required"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestConfig_ValidateWrapsSecretError(t *testing.T) {
	err := (&Config{TokenSecret: "short", ConfirmStore: StoreMemory, LogLevel: "info"}).Validate()
	assert.ErrorIs(t, err, token.ErrSecretTooShort)

	err = (&Config{ConfirmStore: StoreMemory, LogLevel: "info"}).Validate()
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "token_secret", envKey("FILTER_TOKEN_SECRET"))
	assert.Equal(t, "confirm_store", envKey("SEMFILTER_CONFIRM_STORE"))
	assert.Equal(t, "", envKey("HOME"))
}
