package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/semfilter/internal/dictionary"
)

const borderDictYAML = `version: border_v1
states:
  texas: TX
  new mexico: NM
  arizona: AZ
  california: CA
regions:
  BORDER: [TX, NM, AZ, CA]
region_aliases:
  border states: BORDER
  the border: BORDER
predicates: {}
fallback_suggestions: [BORDER]
`

const brokenDictYAML = `version: broken_v1
states:
  texas: TX
regions:
  BORDER: [TX, ZZ]
region_aliases:
  the border: NOWHERE
predicates: {}
fallback_suggestions: [BORDER]
`

func TestDictValidate_BuiltIn(t *testing.T) {
	cliEnv(t)

	out, err := execute(NewDictCommand(&RootOptions{Format: "json"}), "validate")
	require.NoError(t, err)

	var summary DictSummary
	resp := decodeResponse(t, out, &summary)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "built-in", summary.Source)
	assert.Equal(t, dictionary.Default().Version(), summary.Version)
	assert.Positive(t, summary.Regions)
	assert.Positive(t, summary.Predicates)
}

func TestDictValidate_File(t *testing.T) {
	dir := cliEnv(t)
	path := writeFile(t, dir, "border.yaml", borderDictYAML)

	out, err := execute(NewDictCommand(&RootOptions{Format: "text"}), "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ border_v1")
	assert.Contains(t, out, "4 states, 1 regions, 2 aliases, 0 predicates")
}

func TestDictValidate_ReportsEveryProblem(t *testing.T) {
	dir := cliEnv(t)
	path := writeFile(t, dir, "broken.yaml", brokenDictYAML)

	out, err := execute(NewDictCommand(&RootOptions{Format: "json"}), "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeBadInput, resp.Error.Code)

	details, ok := resp.Error.Details.([]any)
	require.True(t, ok, "details lists the problems")
	require.GreaterOrEqual(t, len(details), 2)
	assert.Contains(t, out, `unknown state code \"ZZ\"`)
	assert.Contains(t, out, "unknown region NOWHERE")
}

func TestDictValidate_MissingFile(t *testing.T) {
	dir := cliEnv(t)

	_, err := execute(NewDictCommand(&RootOptions{Format: "text"}), "validate", filepath.Join(dir, "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "dictionary file not found")
}

func TestDictShow_Text(t *testing.T) {
	dir := cliEnv(t)
	path := writeFile(t, dir, "border.yaml", borderDictYAML)

	out, err := execute(NewDictCommand(&RootOptions{Format: "text"}), "show", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Dictionary border_v1")
	assert.Contains(t, out, "BORDER")
	assert.Contains(t, out, "AZ, CA, NM, TX")
	assert.Contains(t, out, "border states, the border")
	assert.NotContains(t, out, "Predicate")
}

func TestDictShow_BuiltInPredicates(t *testing.T) {
	cliEnv(t)

	out, err := execute(NewDictCommand(&RootOptions{Format: "text"}), "show")
	require.NoError(t, err)
	assert.Contains(t, out, "BUSINESS_RECIPIENT")
	assert.Contains(t, out, "company_name")
}

func TestDictShow_JSON(t *testing.T) {
	dir := cliEnv(t)
	path := writeFile(t, dir, "border.yaml", borderDictYAML)

	out, err := execute(NewDictCommand(&RootOptions{Format: "json"}), "show", path)
	require.NoError(t, err)

	var def dictionary.Definition
	decodeResponse(t, out, &def)
	assert.Equal(t, "border_v1", def.Version)
	assert.Equal(t, []string{"TX", "NM", "AZ", "CA"}, def.Regions["BORDER"])
	assert.Equal(t, "BORDER", def.RegionAliases["the border"])
}
