package harness

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/semfilter/internal/filterir"
)

// ExpectationError describes one unmet expectation.
type ExpectationError struct {
	Field    string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *ExpectationError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Field, e.Expected, e.Actual)
}

func mismatch(field string, expected, actual any) string {
	return (&ExpectationError{
		Field:    field,
		Expected: render(expected),
		Actual:   render(actual),
	}).Error()
}

// render shows values the way scenarios write them.
func render(v any) string {
	switch val := v.(type) {
	case string:
		return fmt.Sprintf("%q", val)
	case filterir.Status:
		return string(val)
	case filterir.ErrorCode:
		if val == "" {
			return "no error"
		}
		return string(val)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// checkExpectations compares result with e and returns one message per
// mismatch.
func checkExpectations(e Expectation, r *Result) []string {
	var errs []string

	code := r.ErrorCode()
	if code != e.Error {
		msg := mismatch("error", e.Error, code)
		if r.Err != nil {
			msg += " (" + r.Err.Error() + ")"
		}
		errs = append(errs, msg)
	}
	if e.Reason != "" {
		if got := filterir.ReasonOf(r.Err); got != e.Reason {
			errs = append(errs, mismatch("reason", e.Reason, got))
		}
	}

	if r.Initial != nil {
		errs = append(errs, checkInitial(e, r.Initial)...)
	} else if e.Status != "" {
		errs = append(errs, mismatch("status", e.Status, "no resolution"))
	}

	if e.FinalStatus != "" {
		out := r.Outcome()
		switch {
		case out == nil:
			errs = append(errs, mismatch("final_status", e.FinalStatus, "no resolution"))
		case out.Status != e.FinalStatus:
			errs = append(errs, mismatch("final_status", e.FinalStatus, out.Status))
		}
	}

	if e.WhereSQL != "" || e.Params != nil || e.Explanation != "" {
		errs = append(errs, checkFilter(e, r.Filter)...)
	}
	return errs
}

func checkInitial(e Expectation, spec *filterir.ResolvedSpec) []string {
	var errs []string
	if e.Status != "" && spec.Status != e.Status {
		errs = append(errs, mismatch("status", e.Status, spec.Status))
	}
	if e.PendingTerms != nil {
		if got := spec.PendingTerms(); !sameStrings(got, e.PendingTerms) {
			errs = append(errs, mismatch("pending_terms", e.PendingTerms, got))
		}
	}
	if e.Unresolved != nil {
		phrases := make([]string, len(spec.UnresolvedTerms))
		counts := make([]int, len(spec.UnresolvedTerms))
		for i, u := range spec.UnresolvedTerms {
			phrases[i] = u.Phrase
			counts[i] = len(u.Suggestions)
		}
		if !sameStrings(phrases, e.Unresolved) {
			errs = append(errs, mismatch("unresolved", e.Unresolved, phrases))
		} else if e.Suggestions != nil && !sameInts(counts, e.Suggestions) {
			errs = append(errs, mismatch("suggestions", e.Suggestions, counts))
		}
	}
	return errs
}

func checkFilter(e Expectation, f *filterir.CompiledFilter) []string {
	if f == nil {
		return []string{mismatch("filter", "a compiled filter", "none")}
	}
	var errs []string
	if e.WhereSQL != "" && strings.TrimSpace(e.WhereSQL) != f.WhereSQL {
		errs = append(errs, mismatch("where_sql", strings.TrimSpace(e.WhereSQL), f.WhereSQL))
	}
	if e.Params != nil {
		want, _ := json.Marshal(e.Params)
		got, _ := json.Marshal(f.Params)
		if string(want) != string(got) {
			errs = append(errs, fmt.Sprintf("params: expected %s, got %s", want, got))
		}
	}
	if e.Explanation != "" && e.Explanation != f.Explanation {
		errs = append(errs, mismatch("explanation", e.Explanation, f.Explanation))
	}
	return errs
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
