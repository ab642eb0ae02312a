package dictionary

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed dictionary.cue
var schemaCUE string

// LoadFile reads a dictionary from disk. The format follows the file
// extension: .cue files are checked against the embedded #Dictionary
// schema, .yaml, .yml and .json files are decoded as YAML.
func LoadFile(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return ParseCUE(data, path)
	case ".yaml", ".yml", ".json":
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported dictionary format %q", filepath.Ext(path))
	}
}

// ParseCUE decodes a dictionary written in CUE. The document's top-level
// fields are unified with #Dictionary, so unknown fields, malformed state
// codes and unknown predicate expansions fail before decoding.
func ParseCUE(data []byte, filename string) (*Dictionary, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("dictionary.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile dictionary schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(filename, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Dictionary")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(filename, err)
	}

	var def Definition
	if err := unified.Decode(&def); err != nil {
		return nil, formatCUEError(filename, err)
	}
	return New(def)
}

// ParseYAML decodes a dictionary written in YAML or JSON.
// Unknown fields are rejected.
func ParseYAML(data []byte) (*Dictionary, error) {
	var def Definition
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&def); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary: %w", err)
	}
	return New(def)
}

// formatCUEError flattens CUE's error list into one error with positions.
func formatCUEError(filename string, err error) error {
	if len(cueerrors.Errors(err)) == 0 {
		return fmt.Errorf("dictionary %s: %w", filename, err)
	}
	return fmt.Errorf("dictionary %s: %s", filename, strings.TrimSpace(cueerrors.Details(err, nil)))
}
