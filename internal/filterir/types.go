package filterir

import (
	"fmt"
	"math"
)

// Node is one element of a filter tree.
//
// This is a sealed interface - only types in this package implement it.
// Consumers type-switch over Condition, SemanticRef and Group (value or
// pointer) and treat anything else as an internal error.
type Node interface {
	filterNode() // Marker method - seals interface to this package
}

// LiteralType tags the type of a Literal's value.
type LiteralType string

const (
	LiteralString  LiteralType = "string"
	LiteralNumber  LiteralType = "number"
	LiteralBoolean LiteralType = "boolean"
	LiteralDate    LiteralType = "date"
)

// Valid reports whether t is a known literal type.
func (t LiteralType) Valid() bool {
	switch t {
	case LiteralString, LiteralNumber, LiteralBoolean, LiteralDate:
		return true
	}
	return false
}

// Literal is a typed operand value.
//
// Value holds a string for string and date literals, a bool for boolean
// literals, and an int64 or float64 for number literals. Integral numbers
// inside the exactly-representable float range are always stored as int64,
// so two literals that print the same bind the same parameter.
type Literal struct {
	Type  LiteralType `json:"type"`
	Value any         `json:"value"`
}

// maxExactInt is the largest integer a float64 represents exactly (2^53).
const maxExactInt = 1 << 53

// String returns a string literal.
func String(v string) Literal { return Literal{Type: LiteralString, Value: v} }

// Date returns a date literal. Dates travel as ISO-8601 strings.
func Date(v string) Literal { return Literal{Type: LiteralDate, Value: v} }

// Bool returns a boolean literal.
func Bool(v bool) Literal { return Literal{Type: LiteralBoolean, Value: v} }

// Int returns a number literal holding an integer.
func Int(v int64) Literal { return Literal{Type: LiteralNumber, Value: v} }

// Number returns a number literal. Integral values are stored as int64.
func Number(v float64) Literal {
	return Literal{Type: LiteralNumber, Value: normalizeNumber(v)}
}

func normalizeNumber(v float64) any {
	if v == math.Trunc(v) && math.Abs(v) <= maxExactInt {
		return int64(v)
	}
	return v
}

// check verifies that Value matches Type.
func (l Literal) check() error {
	if !l.Type.Valid() {
		return Errorf(ErrCodeTypeMismatch, "unknown literal type %q", l.Type)
	}
	if l.Value == nil {
		return Errorf(ErrCodeMissingOperand, "%s literal has no value", l.Type)
	}
	ok := false
	switch l.Type {
	case LiteralString, LiteralDate:
		_, ok = l.Value.(string)
	case LiteralBoolean:
		_, ok = l.Value.(bool)
	case LiteralNumber:
		switch v := l.Value.(type) {
		case int64:
			ok = true
		case float64:
			ok = !math.IsNaN(v) && !math.IsInf(v, 0)
		}
	}
	if !ok {
		return Errorf(ErrCodeTypeMismatch, "%s literal cannot hold %T value %v", l.Type, l.Value, l.Value)
	}
	return nil
}

// Text renders the literal value the way it is shown to humans and the way
// IN-list members are ordered.
func (l Literal) Text() string {
	switch v := l.Value.(type) {
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case int64:
		return fmt.Sprintf("%d", v)
	case float64:
		return FormatFloat(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Condition compares one column against zero or more operands.
type Condition struct {
	Column   string    `json:"column"`
	Operator Operator  `json:"operator"`
	Operands []Literal `json:"operands"`
}

func (Condition) filterNode() {}

// SemanticRef is an unresolved business term aimed at a column.
// The resolver replaces it with a Condition or drops it.
type SemanticRef struct {
	SemanticKey  string `json:"semantic_key"`
	TargetColumn string `json:"target_column"`
}

func (SemanticRef) filterNode() {}

// Group combines child nodes with a single logical connective.
type Group struct {
	Logic      Logic  `json:"logic"`
	Conditions []Node `json:"conditions"`
}

func (Group) filterNode() {}

// Logic is the connective of a Group.
type Logic string

const (
	And Logic = "AND"
	Or  Logic = "OR"
)

// Valid reports whether l is AND or OR.
func (l Logic) Valid() bool {
	return l == And || l == Or
}

// Intent is the untrusted filter request produced upstream.
type Intent struct {
	Root            Group  `json:"root"`
	SchemaSignature string `json:"schema_signature,omitempty"`
}

// PendingConfirmation describes a term whose expansion a human must approve.
type PendingConfirmation struct {
	Term      string `json:"term"`
	Expansion string `json:"expansion"`
	Tier      string `json:"tier"`
}

// Suggestion is a candidate canonical term offered for an unresolved phrase.
type Suggestion struct {
	Key       string `json:"key"`
	Expansion string `json:"expansion"`
}

// UnresolvedTerm is a phrase that matched no dictionary.
type UnresolvedTerm struct {
	Phrase      string       `json:"phrase"`
	Suggestions []Suggestion `json:"suggestions"`
}

// Confirmation records that a human approved the pending terms of a
// NEEDS_CONFIRMATION resolution. Token is that resolution's token.
type Confirmation struct {
	Token string   `json:"token"`
	Terms []string `json:"terms"`
}

// ResolvedSpec is the resolver's output. Root contains no SemanticRef.
type ResolvedSpec struct {
	Status               Status                `json:"resolution_status"`
	Root                 Group                 `json:"root"`
	Explanation          string                `json:"explanation"`
	ResolutionToken      string                `json:"resolution_token,omitempty"`
	PendingConfirmations []PendingConfirmation `json:"pending_confirmations,omitempty"`
	UnresolvedTerms      []UnresolvedTerm      `json:"unresolved_terms,omitempty"`
	SchemaSignature      string                `json:"schema_signature"`
	CanonicalDictVersion string                `json:"canonical_dict_version"`
}

// PendingTerms returns the terms awaiting confirmation, in order.
func (s *ResolvedSpec) PendingTerms() []string {
	terms := make([]string, 0, len(s.PendingConfirmations))
	for _, p := range s.PendingConfirmations {
		terms = append(terms, p.Term)
	}
	return terms
}

// CompiledFilter is the compiler's output. Params are in placeholder order.
type CompiledFilter struct {
	WhereSQL        string   `json:"where_sql"`
	Params          []any    `json:"params"`
	ColumnsUsed     []string `json:"columns_used"`
	Explanation     string   `json:"explanation"`
	SchemaSignature string   `json:"schema_signature"`
}
