package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/semfilter/internal/confirmstore"
	"github.com/roach88/semfilter/internal/filterir"
	"github.com/roach88/semfilter/internal/testutil"
)

// pendingToken resolves the northeast intent and returns its token.
func pendingToken(t *testing.T, intent, schema string) string {
	t.Helper()
	out, err := execute(NewResolveCommand(&RootOptions{Format: "json"}), "--intent", intent, "--schema", schema)
	require.NoError(t, err)

	var spec filterir.ResolvedSpec
	decodeResponse(t, out, &spec)
	require.Equal(t, filterir.StatusNeedsConfirmation, spec.Status)
	return spec.ResolutionToken
}

func TestConfirm_RoundTripSQLite(t *testing.T) {
	dir := cliEnv(t)
	schema := writeFile(t, dir, "orders.yaml", ordersSchemaYAML)
	intent := writeFile(t, dir, "intent.yaml", northeastIntentYAML)
	storePath := filepath.Join(dir, "confirm.db")
	tok := pendingToken(t, intent, schema)

	out, err := execute(NewRootCommand(), "--store", storePath, "--format", "json",
		"confirm", "--intent", intent, "--schema", schema, "--token", tok)
	require.NoError(t, err)

	var result ConfirmResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	require.NotEmpty(t, resp.Session)
	assert.Equal(t, []string{"BUSINESS_RECIPIENT", "northeast"}, result.Confirmed)
	require.NotNil(t, result.Spec)
	assert.Equal(t, filterir.StatusResolved, result.Spec.Status)

	// A later resolve in the same session picks the confirmation up.
	out, err = execute(NewRootCommand(), "--store", storePath, "--format", "json",
		"resolve", "--intent", intent, "--schema", schema, "--session", resp.Session)
	require.NoError(t, err)

	var spec filterir.ResolvedSpec
	again := decodeResponse(t, out, &spec)
	assert.Equal(t, resp.Session, again.Session)
	assert.Equal(t, filterir.StatusResolved, spec.Status)
	assert.Empty(t, spec.PendingConfirmations)

	// Another session sees nothing.
	out, err = execute(NewRootCommand(), "--store", storePath, "--format", "json",
		"resolve", "--intent", intent, "--schema", schema, "--session", "other")
	require.NoError(t, err)
	decodeResponse(t, out, &spec)
	assert.Equal(t, filterir.StatusNeedsConfirmation, spec.Status)
}

func TestConfirm_FixedSessionText(t *testing.T) {
	dir := cliEnv(t)
	schema := writeFile(t, dir, "orders.yaml", ordersSchemaYAML)
	intent := writeFile(t, dir, "intent.yaml", northeastIntentYAML)
	storePath := filepath.Join(dir, "confirm.db")
	tok := pendingToken(t, intent, schema)

	opts := &ConfirmOptions{
		RootOptions: &RootOptions{Format: "text", Store: storePath},
		IntentFile:  intent,
		SchemaFile:  schema,
		Token:       tok,
		sessions:    testutil.NewFixedSessionGenerator("review-42"),
	}
	cmd := NewConfirmCommand(opts.RootOptions)
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	require.NoError(t, runConfirm(context.Background(), opts, cmd))

	assert.Contains(t, buf.String(), "Session: review-42")
	assert.Contains(t, buf.String(), "Confirmed 2 term(s)")
	assert.Contains(t, buf.String(), "✓ northeast")
	assert.Contains(t, buf.String(), "Status: RESOLVED")

	store, err := confirmstore.OpenSQLite(storePath)
	require.NoError(t, err)
	defer store.Close()
	stored, err := store.Snapshot(context.Background(), "review-42")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, tok, stored[0].Token)
}

func TestConfirm_WritesResolvedSpec(t *testing.T) {
	dir := cliEnv(t)
	schema := writeFile(t, dir, "orders.yaml", ordersSchemaYAML)
	intent := writeFile(t, dir, "intent.yaml", northeastIntentYAML)
	specPath := filepath.Join(dir, "spec.json")
	tok := pendingToken(t, intent, schema)

	_, err := execute(NewConfirmCommand(&RootOptions{Format: "text", Store: "memory"}),
		"--intent", intent, "--schema", schema, "--token", tok, "-o", specPath)
	require.NoError(t, err)

	out, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), "--spec", specPath, "--schema", schema)
	require.NoError(t, err)

	var filter filterir.CompiledFilter
	decodeResponse(t, out, &filter)
	assert.Equal(t,
		`(TRIM(CAST(COALESCE("company", '') AS VARCHAR)) != $1) AND "state" IN ($2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		filter.WhereSQL)
	assert.Equal(t, []any{"", "CT", "MA", "ME", "NH", "NJ", "NY", "PA", "RI", "VT"}, filter.Params)
	assert.Equal(t, []string{"company", "state"}, filter.ColumnsUsed)
}

func TestConfirm_RejectsBadToken(t *testing.T) {
	dir := cliEnv(t)
	schema := writeFile(t, dir, "orders.yaml", ordersSchemaYAML)
	intent := writeFile(t, dir, "intent.yaml", northeastIntentYAML)

	out, err := execute(NewConfirmCommand(&RootOptions{Format: "json"}),
		"--intent", intent, "--schema", schema, "--token", "not-a-token")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(filterir.ErrCodeTokenInvalidOrExpired), resp.Error.Code)
}

func TestConfirm_TokenForAnotherIntent(t *testing.T) {
	dir := cliEnv(t)
	schema := writeFile(t, dir, "orders.yaml", ordersSchemaYAML)
	intent := writeFile(t, dir, "intent.yaml", northeastIntentYAML)
	other := writeFile(t, dir, "other.yaml", `root:
  logic: AND
  conditions:
    - {semantic_key: west coast, target_column: state}
`)
	tok := pendingToken(t, other, schema)

	out, err := execute(NewConfirmCommand(&RootOptions{Format: "json"}),
		"--intent", intent, "--schema", schema, "--token", tok)
	require.Error(t, err)

	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(filterir.ErrCodeTokenHashMismatch), resp.Error.Code)
}
