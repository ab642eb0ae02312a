package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stateScenarioYAML = `name: state_direct
description: A state name and an explicit condition
schema:
  signature: orders-v1
  columns:
    - {name: state, type: VARCHAR}
    - {name: weight, type: DOUBLE}
intent:
  logic: AND
  conditions:
    - {semantic_key: New York, target_column: state}
    - column: weight
      operator: gt
      operands: [{type: number, value: 5}]
expect:
  status: RESOLVED
  where_sql: '"state" = $1 AND "weight" > $2'
  params: [NY, 5]
`

const wrongScenarioYAML = `name: wrong_expectation
description: Expects a confirmation that never comes
schema:
  signature: orders-v1
  columns:
    - {name: state, type: VARCHAR}
intent:
  logic: AND
  conditions:
    - {semantic_key: New York, target_column: state}
expect:
  status: NEEDS_CONFIRMATION
`

func scenarioTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	scenarios := filepath.Join(dir, "scenarios")
	require.NoError(t, os.MkdirAll(scenarios, 0755))
	for name, content := range files {
		writeFile(t, scenarios, name, content)
	}
	return scenarios
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(NewTestCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentDir(t *testing.T) {
	_, err := execute(NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	scenarios := scenarioTree(t, nil)

	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), scenarios)
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandUpdateThenCompare(t *testing.T) {
	scenarios := scenarioTree(t, map[string]string{"state_direct.yaml": stateScenarioYAML})
	golden := filepath.Join(filepath.Dir(scenarios), "golden", "state_direct.golden")

	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), scenarios, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ state_direct (golden updated)")
	require.FileExists(t, golden)

	out, err = execute(NewTestCommand(&RootOptions{Format: "text"}), scenarios)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ state_direct")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")

	require.NoError(t, os.WriteFile(golden, []byte(`{"scenario_name":"stale"}`), 0644))
	out, err = execute(NewTestCommand(&RootOptions{Format: "text"}), scenarios)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "snapshot does not match golden file")
}

func TestTestCommandExpectationFailure(t *testing.T) {
	scenarios := scenarioTree(t, map[string]string{
		"state_direct.yaml":      stateScenarioYAML,
		"wrong_expectation.yaml": wrongScenarioYAML,
	})

	out, err := execute(NewTestCommand(&RootOptions{Format: "json"}), scenarios)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result TestResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Failed)

	byName := make(map[string]ScenarioResult)
	for _, s := range result.Scenarios {
		byName[s.Name] = s
	}
	assert.True(t, byName["state_direct"].Pass)
	require.False(t, byName["wrong_expectation"].Pass)
	assert.Contains(t, byName["wrong_expectation"].Errors[0], "status: expected NEEDS_CONFIRMATION")
}

func TestTestCommandFilter(t *testing.T) {
	scenarios := scenarioTree(t, map[string]string{
		"state_direct.yaml":      stateScenarioYAML,
		"wrong_expectation.yaml": wrongScenarioYAML,
	})

	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), scenarios, "--filter", "state*")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ state_direct")
	assert.NotContains(t, out, "wrong_expectation")
}

func TestTestCommandBadScenario(t *testing.T) {
	scenarios := scenarioTree(t, map[string]string{"broken.yaml": "name: [oops"})

	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), scenarios)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommandBundledScenarios(t *testing.T) {
	scenarios := filepath.Join("..", "harness", "testdata", "scenarios")

	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), scenarios)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ northeast_business")
	assert.Contains(t, out, "✓ All scenarios passed")
}
