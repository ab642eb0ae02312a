package harness

import (
	"github.com/roach88/semfilter/internal/filterir"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates every expectation held.
	Pass bool `json:"pass"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Initial is the first resolution. Nil when resolution failed.
	Initial *filterir.ResolvedSpec `json:"initial,omitempty"`

	// Final is the resolution after confirmation. Nil when no confirmation
	// ran or it failed.
	Final *filterir.ResolvedSpec `json:"final,omitempty"`

	// Confirmation is what the store recorded for the session.
	Confirmation *filterir.Confirmation `json:"confirmation,omitempty"`

	// Filter is the compiled output. Nil unless the run reached RESOLVED.
	Filter *filterir.CompiledFilter `json:"filter,omitempty"`

	// Err is the error the run stopped with, if any.
	Err error `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{Pass: true, Errors: []string{}}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Outcome returns the last resolution reached.
func (r *Result) Outcome() *filterir.ResolvedSpec {
	if r.Final != nil {
		return r.Final
	}
	return r.Initial
}

// ErrorCode returns the code of Err, or "" when the run did not fail or
// failed outside the filter error taxonomy.
func (r *Result) ErrorCode() filterir.ErrorCode {
	code, _ := filterir.CodeOf(r.Err)
	return code
}
