package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/semfilter/internal/filterir"
)

func batchDir(t *testing.T, dir string) string {
	t.Helper()
	intents := filepath.Join(dir, "intents")
	writeFile(t, intents, "a_state.json", stateIntentJSON)
	writeFile(t, intents, "b_region.json", `{"root": {"logic": "AND", "conditions": [
		{"semantic_key": "west coast", "target_column": "state"}
	]}}`)
	writeFile(t, intents, "c_unknown.json", unknownColumnIntentJSON)
	writeFile(t, intents, "ignored.yaml", "root: {logic: AND, conditions: []}\n")
	return intents
}

func TestBatch_JSON(t *testing.T) {
	dir := cliEnv(t)
	schema := writeFile(t, dir, "orders.yaml", ordersSchemaYAML)
	intents := batchDir(t, dir)

	out, err := execute(NewBatchCommand(&RootOptions{Format: "json"}),
		intents, "--schema", schema, "--jobs", "2")
	require.Error(t, err, "one intent is rejected")
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result BatchResult
	decodeResponse(t, out, &result)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.Compiled)
	assert.Equal(t, 1, result.Pending)
	assert.Equal(t, 1, result.Failed)

	require.Len(t, result.Items, 3)
	assert.Equal(t, "a_state.json", result.Items[0].File)
	assert.Equal(t, `"state" = $1 AND "weight" > $2`, result.Items[0].WhereSQL)
	assert.Equal(t, []any{"NY", float64(5)}, result.Items[0].Params)

	assert.Equal(t, "b_region.json", result.Items[1].File)
	assert.Equal(t, filterir.StatusNeedsConfirmation, result.Items[1].Status)
	assert.Equal(t, []string{"west coast"}, result.Items[1].Pending)
	assert.Empty(t, result.Items[1].WhereSQL)

	assert.Equal(t, "c_unknown.json", result.Items[2].File)
	require.NotNil(t, result.Items[2].Error)
	assert.Equal(t, string(filterir.ErrCodeUnknownColumn), result.Items[2].Error.Code)
}

func TestBatch_Text(t *testing.T) {
	dir := cliEnv(t)
	schema := writeFile(t, dir, "orders.yaml", ordersSchemaYAML)
	intents := filepath.Join(dir, "intents")
	writeFile(t, intents, "one.json", stateIntentJSON)

	out, err := execute(NewBatchCommand(&RootOptions{Format: "text"}), intents, "--schema", schema)
	require.NoError(t, err)
	assert.Contains(t, out, "one.json")
	assert.Contains(t, out, `"state" = $1 AND "weight" > $2`)
	assert.Contains(t, out, "1 compiled, 0 pending, 0 failed")
}

func TestBatch_SameResultAnyConcurrency(t *testing.T) {
	dir := cliEnv(t)
	schema := writeFile(t, dir, "orders.yaml", ordersSchemaYAML)
	intents := batchDir(t, dir)

	run := func(jobs string) BatchResult {
		out, _ := execute(NewBatchCommand(&RootOptions{Format: "json"}), intents, "--schema", schema, "--jobs", jobs)
		var result BatchResult
		decodeResponse(t, out, &result)
		return result
	}
	serial := run("1")
	parallel := run("8")

	require.Len(t, parallel.Items, len(serial.Items))
	for i := range serial.Items {
		assert.Equal(t, serial.Items[i].File, parallel.Items[i].File)
		assert.Equal(t, serial.Items[i].WhereSQL, parallel.Items[i].WhereSQL)
		assert.Equal(t, serial.Items[i].Status, parallel.Items[i].Status)
	}
}

func TestBatch_MissingDir(t *testing.T) {
	dir := cliEnv(t)
	schema := writeFile(t, dir, "orders.yaml", ordersSchemaYAML)

	_, err := execute(NewBatchCommand(&RootOptions{Format: "text"}), filepath.Join(dir, "nope"), "--schema", schema)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "intents directory not found")
}
