package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/semfilter/internal/config"
	"github.com/roach88/semfilter/internal/testutil"
)

const ordersSchemaYAML = `signature: orders-v1
columns:
  - {name: state, type: VARCHAR}
  - {name: company, type: VARCHAR}
  - {name: weight, type: DOUBLE}
`

// stateIntentJSON resolves without confirmation.
const stateIntentJSON = `{
  "schema_signature": "orders-v1",
  "root": {
    "logic": "AND",
    "conditions": [
      {"semantic_key": "New York", "target_column": "state"},
      {"column": "weight", "operator": "gt", "operands": [{"type": "number", "value": 5}]}
    ]
  }
}`

// northeastIntentYAML needs the region and the predicate confirmed.
const northeastIntentYAML = `schema_signature: orders-v1
root:
  logic: AND
  conditions:
    - {semantic_key: northeast, target_column: state}
    - {semantic_key: BUSINESS_RECIPIENT, target_column: ""}
`

const unknownColumnIntentJSON = `{
  "root": {
    "logic": "AND",
    "conditions": [
      {"column": "region", "operator": "eq", "operands": [{"type": "string", "value": "x"}]}
    ]
  }
}`

// cliEnv isolates a test in an empty working directory with the test
// secret set, so no semfilter.yaml or .env leaks in.
func cliEnv(t *testing.T) string {
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
	t.Setenv(config.SecretEnv, testutil.TestSecret)
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs cmd with args and returns stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// decodeResponse decodes a JSON envelope, with Data decoded into data.
func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var raw struct {
		CLIResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), out)
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.CLIResponse
}
