package filterir

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// UnmarshalJSON decodes a literal and checks its value against its type.
// Numbers are normalized the same way Number does.
func (l *Literal) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type  LiteralType     `json:"type"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode literal: %w", err)
	}
	if !raw.Type.Valid() {
		return Errorf(ErrCodeTypeMismatch, "unknown literal type %q", raw.Type)
	}
	l.Type = raw.Type
	l.Value = nil
	if len(raw.Value) == 0 || bytes.Equal(raw.Value, []byte("null")) {
		return nil
	}

	switch raw.Type {
	case LiteralString, LiteralDate:
		var s string
		if err := json.Unmarshal(raw.Value, &s); err != nil {
			return Errorf(ErrCodeTypeMismatch, "%s literal needs a JSON string, got %s", raw.Type, raw.Value)
		}
		l.Value = s
	case LiteralBoolean:
		var b bool
		if err := json.Unmarshal(raw.Value, &b); err != nil {
			return Errorf(ErrCodeTypeMismatch, "boolean literal needs true or false, got %s", raw.Value)
		}
		l.Value = b
	case LiteralNumber:
		dec := json.NewDecoder(bytes.NewReader(raw.Value))
		dec.UseNumber()
		var n json.Number
		if err := dec.Decode(&n); err != nil {
			return Errorf(ErrCodeTypeMismatch, "number literal needs a JSON number, got %s", raw.Value)
		}
		v, err := numberValue(n)
		if err != nil {
			return err
		}
		l.Value = v
	}
	return nil
}

func numberValue(n json.Number) (any, error) {
	if i, err := n.Int64(); err == nil && i <= maxExactInt && i >= -maxExactInt {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, Errorf(ErrCodeTypeMismatch, "number %s is out of range", n)
	}
	return normalizeNumber(f), nil
}

// UnmarshalJSON decodes a group and discriminates its children by shape:
// "logic" marks a group, "semantic_key" a semantic reference, and
// "column" with "operator" a condition.
func (g *Group) UnmarshalJSON(data []byte) error {
	var raw struct {
		Logic      Logic             `json:"logic"`
		Conditions []json.RawMessage `json:"conditions"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode group: %w", err)
	}
	if !raw.Logic.Valid() {
		return Errorf(ErrCodeInvalidOperator, "unknown group logic %q", raw.Logic)
	}

	g.Logic = raw.Logic
	g.Conditions = make([]Node, 0, len(raw.Conditions))
	for i, msg := range raw.Conditions {
		node, err := DecodeNode(msg)
		if err != nil {
			return fmt.Errorf("conditions[%d]: %w", i, err)
		}
		g.Conditions = append(g.Conditions, node)
	}
	return nil
}

// DecodeNode decodes a single tree node from JSON.
func DecodeNode(data []byte) (Node, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode node: %w", err)
	}

	_, hasLogic := probe["logic"]
	_, hasKey := probe["semantic_key"]
	_, hasColumn := probe["column"]
	_, hasOperator := probe["operator"]

	switch {
	case hasLogic:
		var g Group
		if err := json.Unmarshal(data, &g); err != nil {
			return nil, err
		}
		return g, nil
	case hasKey:
		var ref SemanticRef
		if err := json.Unmarshal(data, &ref); err != nil {
			return nil, fmt.Errorf("decode semantic reference: %w", err)
		}
		return ref, nil
	case hasColumn && hasOperator:
		var c Condition
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, err
		}
		if c.Operands == nil {
			c.Operands = []Literal{}
		}
		return c, nil
	default:
		return nil, fmt.Errorf("decode node: unrecognized node shape %s", data)
	}
}

// ParseIntent decodes an Intent from JSON.
func ParseIntent(data []byte) (Intent, error) {
	var intent Intent
	if err := json.Unmarshal(data, &intent); err != nil {
		return Intent{}, err
	}
	return intent, nil
}

// ParseResolvedSpec decodes a ResolvedSpec from JSON.
func ParseResolvedSpec(data []byte) (*ResolvedSpec, error) {
	var spec ResolvedSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, err
	}
	return &spec, nil
}
