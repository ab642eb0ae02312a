package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/semfilter/internal/filterir"
)

func TestScenarioGoldens(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			require.Equal(t, name, scenario.Name, "scenario name must match its file name")

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestSnapshot_ErrorOnly(t *testing.T) {
	r := NewResult()
	r.Err = filterir.Errorf(filterir.ErrCodeSchemaChanged, "changed")

	data, err := Snapshot("broken", r)
	require.NoError(t, err)
	assert.Equal(t, `{"error":"SCHEMA_CHANGED","scenario_name":"broken"}`, string(data))
}

func TestSnapshot_OmitsTokens(t *testing.T) {
	scenario := &Scenario{
		Name:    "tokens",
		Schema:  ordersSchema(),
		Intent:  and(ref("northeast", "state")),
		Confirm: true,
		Expect:  Expectation{FinalStatus: filterir.StatusResolved},
	}
	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	data, err := Snapshot(scenario.Name, result)
	require.NoError(t, err)
	assert.NotContains(t, string(data), result.Initial.ResolutionToken)
	assert.NotContains(t, string(data), result.Final.ResolutionToken)
	assert.Contains(t, string(data), `"confirmed_terms":["northeast"]`)
}

func TestSnapshot_Deterministic(t *testing.T) {
	scenario := &Scenario{
		Name:   "twice",
		Schema: ordersSchema(),
		Intent: and(ref("BUSINESS_RECIPIENT", ""), ref("gizmo zone", "state")),
		Expect: Expectation{Status: filterir.StatusUnresolved},
	}

	var snaps []string
	for i := 0; i < 3; i++ {
		result, err := Run(scenario)
		require.NoError(t, err)
		data, err := Snapshot(scenario.Name, result)
		require.NoError(t, err)
		snaps = append(snaps, string(data))
	}
	assert.Equal(t, snaps[0], snaps[1])
	assert.Equal(t, snaps[1], snaps[2])
	assert.Contains(t, snaps[0], `"pending_terms":["BUSINESS_RECIPIENT"]`)
}
