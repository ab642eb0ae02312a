package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/semfilter/internal/filterir"
)

// DomainSpec prefixes resolved-spec hashes. The version suffix allows a
// future change of the tree serialization without colliding with old hashes.
const DomainSpec = "semfilter/spec/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Group returns a canonical deep copy of g. Children of every group are
// ordered by sort key, and in / not_in operands by their text. The input is
// not modified. Applying Group twice yields the same tree as applying it
// once.
func Group(g filterir.Group) filterir.Group {
	out := filterir.Group{Logic: g.Logic, Conditions: make([]filterir.Node, 0, len(g.Conditions))}
	for _, child := range g.Conditions {
		out.Conditions = append(out.Conditions, node(child))
	}

	type keyed struct {
		key  string
		tie  string
		node filterir.Node
	}
	items := make([]keyed, len(out.Conditions))
	for i, n := range out.Conditions {
		items[i] = keyed{key: SortKey(n), tie: mustJSON(n), node: n}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].key != items[j].key {
			return items[i].key < items[j].key
		}
		return items[i].tie < items[j].tie
	})
	for i, it := range items {
		out.Conditions[i] = it.node
	}
	return out
}

func node(n filterir.Node) filterir.Node {
	switch v := n.(type) {
	case filterir.Condition:
		return condition(v)
	case *filterir.Condition:
		return condition(*v)
	case filterir.SemanticRef:
		return v
	case *filterir.SemanticRef:
		return *v
	case filterir.Group:
		return Group(v)
	case *filterir.Group:
		return Group(*v)
	}
	return n
}

func condition(c filterir.Condition) filterir.Condition {
	ops := append([]filterir.Literal{}, c.Operands...)
	if c.Operator.IsSet() {
		SortLiterals(ops)
	}
	return filterir.Condition{Column: c.Column, Operator: c.Operator, Operands: ops}
}

// SortLiterals orders literals by their text, breaking ties by type.
func SortLiterals(lits []filterir.Literal) {
	sort.SliceStable(lits, func(i, j int) bool {
		a, b := lits[i].Text(), lits[j].Text()
		if a != b {
			return a < b
		}
		return lits[i].Type < lits[j].Type
	})
}

// SortKey returns the ordering key for a node:
//
//	C:column:operator:[sorted operand json]
//	G:logic:[sorted child keys]
//	S:semantic_key:target_column
func SortKey(n filterir.Node) string {
	switch v := n.(type) {
	case filterir.Condition:
		return conditionKey(v)
	case *filterir.Condition:
		return conditionKey(*v)
	case filterir.SemanticRef:
		return "S:" + v.SemanticKey + ":" + v.TargetColumn
	case *filterir.SemanticRef:
		return "S:" + v.SemanticKey + ":" + v.TargetColumn
	case filterir.Group:
		return groupKey(v)
	case *filterir.Group:
		return groupKey(*v)
	}
	return fmt.Sprintf("?:%T", n)
}

func conditionKey(c filterir.Condition) string {
	parts := make([]string, len(c.Operands))
	for i, lit := range c.Operands {
		parts[i] = mustJSON(lit)
	}
	sort.Strings(parts)
	return "C:" + c.Column + ":" + string(c.Operator) + ":[" + strings.Join(parts, ",") + "]"
}

func groupKey(g filterir.Group) string {
	keys := make([]string, len(g.Conditions))
	for i, child := range g.Conditions {
		keys[i] = SortKey(child)
	}
	sort.Strings(keys)
	return "G:" + string(g.Logic) + ":[" + strings.Join(keys, ",") + "]"
}

// Value converts a tree node into the generic form Marshal accepts.
func Value(n any) (any, error) {
	switch v := n.(type) {
	case filterir.Literal:
		if v.Value == nil {
			return nil, fmt.Errorf("%s literal has no value", v.Type)
		}
		return map[string]any{"type": string(v.Type), "value": v.Value}, nil
	case filterir.Condition:
		ops := make([]any, len(v.Operands))
		for i, lit := range v.Operands {
			lv, err := Value(lit)
			if err != nil {
				return nil, fmt.Errorf("operand %d of %q: %w", i, v.Column, err)
			}
			ops[i] = lv
		}
		return map[string]any{"column": v.Column, "operator": string(v.Operator), "operands": ops}, nil
	case *filterir.Condition:
		return Value(*v)
	case filterir.SemanticRef:
		return map[string]any{"semantic_key": v.SemanticKey, "target_column": v.TargetColumn}, nil
	case *filterir.SemanticRef:
		return Value(*v)
	case filterir.Group:
		children := make([]any, len(v.Conditions))
		for i, child := range v.Conditions {
			cv, err := Value(child)
			if err != nil {
				return nil, err
			}
			children[i] = cv
		}
		return map[string]any{"logic": string(v.Logic), "conditions": children}, nil
	case *filterir.Group:
		return Value(*v)
	}
	return nil, fmt.Errorf("unsupported node type: %T", n)
}

// MarshalNode returns the canonical JSON of a tree node.
func MarshalNode(n any) ([]byte, error) {
	v, err := Value(n)
	if err != nil {
		return nil, err
	}
	return Marshal(v)
}

func mustJSON(n any) string {
	data, err := MarshalNode(n)
	if err != nil {
		// Only reachable for literals without a value, which fail operand
		// checks before hashing matters.
		return fmt.Sprintf("%v", n)
	}
	return string(data)
}

// Hash returns the content hash of the canonical form of g. Two trees that
// differ only in sibling order or in / not_in operand order hash equal.
func Hash(g filterir.Group) (string, error) {
	data, err := MarshalNode(Group(g))
	if err != nil {
		return "", fmt.Errorf("hash spec: %w", err)
	}
	return hashWithDomain(DomainSpec, data), nil
}
