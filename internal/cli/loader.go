package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/semfilter/internal/filterir"
)

// LoadError is a file that could not be read or decoded.
type LoadError struct {
	Code    string
	Path    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Message)
}

func readInput(path, what string) ([]byte, error) {
	if path == "" {
		return nil, &LoadError{Code: ErrCodeBadInput, Path: "-", Message: what + " file is required"}
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: what + " file not found"}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: err.Error()}
	}
	return data, nil
}

// LoadSchema reads a schema document from JSON or YAML. A document
// without a signature gets one derived from its columns.
func LoadSchema(path string) (filterir.Schema, error) {
	data, err := readInput(path, "schema")
	if err != nil {
		return filterir.Schema{}, err
	}
	// JSON is a subset of YAML, so one decoder serves both.
	var doc filterir.SchemaDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return filterir.Schema{}, &LoadError{Code: ErrCodeBadInput, Path: path, Message: err.Error()}
	}
	if len(doc.Columns) == 0 {
		return filterir.Schema{}, &LoadError{Code: ErrCodeBadInput, Path: path, Message: "schema has no columns"}
	}
	for i, col := range doc.Columns {
		if col.Name == "" {
			return filterir.Schema{}, &LoadError{Code: ErrCodeBadInput, Path: path,
				Message: fmt.Sprintf("columns[%d]: name is required", i)}
		}
	}
	return doc.Schema(), nil
}

// LoadIntent reads an intent from JSON, or from YAML when the file has a
// .yaml/.yml extension.
func LoadIntent(path string) (filterir.Intent, error) {
	data, err := readInput(path, "intent")
	if err != nil {
		return filterir.Intent{}, err
	}
	if isYAML(path) {
		if data, err = yamlToJSON(data); err != nil {
			return filterir.Intent{}, &LoadError{Code: ErrCodeBadInput, Path: path, Message: err.Error()}
		}
	}
	intent, err := filterir.ParseIntent(data)
	if err != nil {
		return filterir.Intent{}, fmt.Errorf("%s: %w", path, err)
	}
	return intent, nil
}

// LoadSpec reads a resolved spec as written by "resolve --output" or
// printed by "resolve --format json".
func LoadSpec(path string) (*filterir.ResolvedSpec, error) {
	data, err := readInput(path, "spec")
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Status != "" && len(envelope.Data) > 0 {
		data = envelope.Data
	}

	spec, err := filterir.ParseResolvedSpec(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}

// writeSpec stores spec as indented JSON for a later compile.
func writeSpec(path string, spec *filterir.ResolvedSpec) error {
	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode spec: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return &LoadError{Code: ErrCodeWriteFailed, Path: path, Message: err.Error()}
	}
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}
