package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/semfilter/internal/filterir"
)

// Scenario defines one end-to-end filter resolution case.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Dictionary optionally names a dictionary file, relative to the
	// scenario file. Empty uses the built-in dictionary.
	Dictionary string `yaml:"dictionary,omitempty"`

	// Schema is the data source the intent is resolved against.
	Schema filterir.SchemaDoc `yaml:"schema"`

	// IntentSignature overrides the schema signature carried by the intent.
	// Empty means the intent carries none.
	IntentSignature string `yaml:"intent_signature,omitempty"`

	// Intent is the root group of the filter request.
	Intent map[string]any `yaml:"intent"`

	// Confirm runs the confirmation round trip when the first resolution
	// needs confirmation.
	Confirm bool `yaml:"confirm,omitempty"`

	// Advance moves the clock forward between resolution and confirmation.
	Advance time.Duration `yaml:"advance,omitempty"`

	// Session is the confirmation session ID. Defaults to the fixed test
	// session.
	Session string `yaml:"session,omitempty"`

	// Expect is checked after the run.
	Expect Expectation `yaml:"expect"`
}

// Expectation lists the outcomes a scenario asserts. Empty fields are not
// checked.
type Expectation struct {
	// Status of the first resolution.
	Status filterir.Status `yaml:"status,omitempty"`

	// PendingTerms of the first resolution, in order.
	PendingTerms []string `yaml:"pending_terms,omitempty"`

	// Unresolved phrases of the first resolution, in order.
	Unresolved []string `yaml:"unresolved,omitempty"`

	// Suggestions is the number of suggestions per unresolved phrase.
	Suggestions []int `yaml:"suggestions,omitempty"`

	// FinalStatus is the status after confirmation, or of the only
	// resolution when there was none.
	FinalStatus filterir.Status `yaml:"final_status,omitempty"`

	// Error is the error code the run must stop with.
	Error filterir.ErrorCode `yaml:"error,omitempty"`

	// Reason narrows token errors.
	Reason string `yaml:"reason,omitempty"`

	// WhereSQL is the compiled WHERE fragment.
	WhereSQL string `yaml:"where_sql,omitempty"`

	// Params are the compiled parameters. Compared after JSON encoding, so
	// 5 and 5.0 are equal.
	Params []any `yaml:"params,omitempty"`

	// Explanation of the compiled filter.
	Explanation string `yaml:"explanation,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Reject unknown fields so typos like "expects:" fail loudly
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Dictionary != "" && !filepath.IsAbs(scenario.Dictionary) {
		scenario.Dictionary = filepath.Join(filepath.Dir(path), scenario.Dictionary)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Schema.Columns) == 0 {
		return fmt.Errorf("schema.columns is required and must be non-empty")
	}
	for i, col := range s.Schema.Columns {
		if col.Name == "" {
			return fmt.Errorf("schema.columns[%d]: name is required", i)
		}
	}
	if len(s.Intent) == 0 {
		return fmt.Errorf("intent is required")
	}
	if s.Advance < 0 {
		return fmt.Errorf("advance must be non-negative")
	}
	if s.Dictionary != "" {
		if _, err := os.Stat(s.Dictionary); os.IsNotExist(err) {
			return fmt.Errorf("dictionary file not found: %s", s.Dictionary)
		}
	}

	e := s.Expect
	if e.Status == "" && e.FinalStatus == "" && e.Error == "" {
		return fmt.Errorf("expect needs at least one of status, final_status or error")
	}
	for name, st := range map[string]filterir.Status{"status": e.Status, "final_status": e.FinalStatus} {
		if st != "" && !st.Valid() {
			return fmt.Errorf("expect.%s: unknown status %q", name, st)
		}
	}
	if len(e.Suggestions) > 0 && len(e.Suggestions) != len(e.Unresolved) {
		return fmt.Errorf("expect.suggestions needs one count per unresolved phrase")
	}
	return nil
}

// intent converts the scenario's YAML tree into a typed Intent, going
// through the same JSON decoder callers use.
func (s *Scenario) intent() (filterir.Intent, error) {
	doc := map[string]any{"root": s.Intent}
	if s.IntentSignature != "" {
		doc["schema_signature"] = s.IntentSignature
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return filterir.Intent{}, fmt.Errorf("encode intent: %w", err)
	}
	intent, err := filterir.ParseIntent(data)
	if err != nil {
		return filterir.Intent{}, fmt.Errorf("decode intent: %w", err)
	}
	return intent, nil
}
