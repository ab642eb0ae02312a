package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/semfilter/internal/canonical"
	"github.com/roach88/semfilter/internal/filterir"
)

// Snapshot returns the canonical JSON of a scenario outcome. Tokens are
// left out; the status, terms, SQL and params they bind are kept.
func Snapshot(name string, r *Result) ([]byte, error) {
	snap := map[string]any{"scenario_name": name}

	if r.Initial != nil {
		snap["initial"] = resolutionMap(r.Initial)
	}
	if r.Final != nil {
		snap["final"] = resolutionMap(r.Final)
	}
	if r.Confirmation != nil {
		snap["confirmed_terms"] = r.Confirmation.Terms
	}
	if code := r.ErrorCode(); code != "" {
		snap["error"] = string(code)
	}
	if f := r.Filter; f != nil {
		snap["filter"] = map[string]any{
			"where_sql":    f.WhereSQL,
			"params":       append([]any{}, f.Params...),
			"columns_used": f.ColumnsUsed,
			"explanation":  f.Explanation,
		}
	}
	return canonical.Marshal(snap)
}

func resolutionMap(spec *filterir.ResolvedSpec) map[string]any {
	unresolved := make([]any, len(spec.UnresolvedTerms))
	for i, u := range spec.UnresolvedTerms {
		keys := make([]string, len(u.Suggestions))
		for j, sug := range u.Suggestions {
			keys[j] = sug.Key
		}
		unresolved[i] = map[string]any{"phrase": u.Phrase, "suggestions": keys}
	}
	return map[string]any{
		"status":        string(spec.Status),
		"pending_terms": spec.PendingTerms(),
		"unresolved":    unresolved,
		"explanation":   spec.Explanation,
	}
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	data, err := Snapshot(scenario.Name, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return result, nil
}
