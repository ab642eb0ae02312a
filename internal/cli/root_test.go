package cli

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/semfilter/internal/config"
	"github.com/roach88/semfilter/internal/testutil"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "semfilter", cmd.Use)
	assert.Contains(t, cmd.Long, "parameterized SQL")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"resolve", "confirm", "compile", "batch", "dict", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"config", "dictionary", "store", "log-level"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestRequiredFlags(t *testing.T) {
	tests := []struct {
		command  string
		required []string
	}{
		{"resolve", []string{"intent", "schema"}},
		{"confirm", []string{"intent", "schema", "token"}},
		{"compile", []string{"spec", "schema"}},
		{"batch", []string{"schema"}},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			cmd := NewRootCommand()
			sub, _, err := cmd.Find([]string{tt.command})
			require.NoError(t, err)
			for _, name := range tt.required {
				flag := sub.Flags().Lookup(name)
				require.NotNil(t, flag, name)
				assert.Equal(t, []string{"true"}, flag.Annotations["cobra_annotation_bash_completion_one_required_flag"], name)
			}
		})
	}
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	cliEnv(t)

	_, err := execute(NewRootCommand(), "--format", "xml", "dict", "show")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestRootCommand_InvalidLogLevel(t *testing.T) {
	dir := cliEnv(t)
	schema := writeFile(t, dir, "orders.yaml", ordersSchemaYAML)
	intent := writeFile(t, dir, "intent.json", stateIntentJSON)

	_, err := execute(NewRootCommand(), "--log-level", "loud", "resolve", "--intent", intent, "--schema", schema)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `log_level "loud"`)
}

func TestRootCommand_DictionaryFlag(t *testing.T) {
	dir := cliEnv(t)
	path := writeFile(t, dir, "border.yaml", borderDictYAML)

	out, err := execute(NewRootCommand(), "--dictionary", path, "--format", "json", "dict", "validate")
	require.NoError(t, err)

	var summary DictSummary
	resp := decodeResponse(t, out, &summary)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "border_v1", summary.Version)
	assert.Equal(t, path, summary.Source)
}

func TestRootCommand_ConfigFile(t *testing.T) {
	dir := cliEnv(t)
	writeFile(t, dir, "border.yaml", borderDictYAML)
	writeFile(t, dir, config.DefaultFile, "dictionary: border.yaml\n")

	out, err := execute(NewRootCommand(), "dict", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ border_v1 (border.yaml)")
}

func TestRootCommand_MissingSecret(t *testing.T) {
	dir := cliEnv(t)
	require.NoError(t, os.Unsetenv(config.SecretEnv))
	schema := writeFile(t, dir, "orders.yaml", ordersSchemaYAML)
	intent := writeFile(t, dir, "intent.json", stateIntentJSON)

	_, err := execute(NewRootCommand(), "resolve", "--intent", intent, "--schema", schema)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestRootCommand_SecretFromDotEnv(t *testing.T) {
	dir := cliEnv(t)
	require.NoError(t, os.Unsetenv(config.SecretEnv))
	writeFile(t, dir, ".env", config.SecretEnv+"="+testutil.TestSecret+"\n")
	schema := writeFile(t, dir, "orders.yaml", ordersSchemaYAML)
	intent := writeFile(t, dir, "intent.json", stateIntentJSON)

	out, err := execute(NewRootCommand(), "resolve", "--intent", intent, "--schema", schema)
	require.NoError(t, err)
	assert.Contains(t, out, "Status: RESOLVED")
}
