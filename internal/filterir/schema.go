package filterir

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Schema is a read-only view of the caller's data source: which columns
// exist, their engine types, and an opaque signature that changes whenever
// the source changes.
type Schema struct {
	columns   map[string]struct{}
	types     map[string]string
	Signature string
}

// Column describes one column of a Schema.
type Column struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
}

// NewSchema builds a Schema. Columns with an empty Type have no type
// information and skip type checks during compilation.
func NewSchema(signature string, columns ...Column) Schema {
	s := Schema{
		columns:   make(map[string]struct{}, len(columns)),
		types:     make(map[string]string, len(columns)),
		Signature: signature,
	}
	for _, c := range columns {
		s.columns[c.Name] = struct{}{}
		if c.Type != "" {
			s.types[c.Name] = c.Type
		}
	}
	return s
}

// Has reports whether column exists.
func (s Schema) Has(column string) bool {
	_, ok := s.columns[column]
	return ok
}

// Type returns the declared engine type of column, or "" when unknown.
func (s Schema) Type(column string) string {
	return s.types[column]
}

// Names returns the column names in sorted order.
func (s Schema) Names() []string {
	names := make([]string, 0, len(s.columns))
	for name := range s.columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Columns returns the columns in name order.
func (s Schema) Columns() []Column {
	names := s.Names()
	cols := make([]Column, len(names))
	for i, name := range names {
		cols[i] = Column{Name: name, Type: s.types[name]}
	}
	return cols
}

// SchemaSignature derives a signature from column names and types for
// callers whose data source does not supply one.
func SchemaSignature(columns []Column) string {
	sorted := append([]Column(nil), columns...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	h := sha256.New()
	h.Write([]byte("semfilter/schema/v1"))
	h.Write([]byte{0x00})
	for _, c := range sorted {
		h.Write([]byte(c.Name))
		h.Write([]byte{0x1f})
		h.Write([]byte(strings.ToUpper(strings.TrimSpace(c.Type))))
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SchemaDoc is the serialized form of a Schema, as read from schema files
// and scenarios.
type SchemaDoc struct {
	Signature string   `json:"signature,omitempty" yaml:"signature,omitempty"`
	Columns   []Column `json:"columns" yaml:"columns"`
}

// Schema builds the Schema. An empty Signature is derived from the
// columns with SchemaSignature.
func (d SchemaDoc) Schema() Schema {
	sig := d.Signature
	if sig == "" {
		sig = SchemaSignature(d.Columns)
	}
	return NewSchema(sig, d.Columns...)
}
