package filterir

import (
	"fmt"
	"strings"
)

// Explain renders a tree for humans, e.g.
//
//	Filter: (state in [CA, NY] OR weight greater than 5) AND company is not blank.
//
// Single-child groups collapse to their child; the root loses its outer
// parentheses. A tree without conditions reads "No filter conditions."
func Explain(root Group) string {
	text := describeBare(root)
	if text == "" {
		return "No filter conditions."
	}
	return "Filter: " + text + "."
}

// describeBare renders g without its own parentheses. A group whose only
// describable child is another group renders that child bare.
func describeBare(g Group) string {
	parts, nodes := describeParts(g)
	switch len(parts) {
	case 0:
		return ""
	case 1:
		switch v := nodes[0].(type) {
		case Group:
			return describeBare(v)
		case *Group:
			return describeBare(*v)
		}
		return parts[0]
	}
	return strings.Join(parts, " "+string(g.Logic)+" ")
}

func describeNode(n Node) string {
	switch v := n.(type) {
	case Condition:
		return describeCondition(v)
	case *Condition:
		return describeCondition(*v)
	case Group:
		return describeGroup(v)
	case *Group:
		return describeGroup(*v)
	}
	// Semantic references have no concrete meaning yet.
	return ""
}

// describeParts renders the describable children of g alongside the nodes
// they came from.
func describeParts(g Group) ([]string, []Node) {
	var (
		parts []string
		nodes []Node
	)
	for _, child := range g.Conditions {
		if s := describeNode(child); s != "" {
			parts = append(parts, s)
			nodes = append(nodes, child)
		}
	}
	return parts, nodes
}

func describeGroup(g Group) string {
	parts, _ := describeParts(g)
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return "(" + strings.Join(parts, " "+string(g.Logic)+" ") + ")"
}

func describeCondition(c Condition) string {
	values := make([]string, len(c.Operands))
	for i, lit := range c.Operands {
		values[i] = lit.Text()
	}
	first := ""
	if len(values) > 0 {
		first = values[0]
	}

	switch c.Operator {
	case OpEq:
		return fmt.Sprintf("%s equals %s", c.Column, first)
	case OpNeq:
		return fmt.Sprintf("%s not equal to %s", c.Column, first)
	case OpGt:
		return fmt.Sprintf("%s greater than %s", c.Column, first)
	case OpGte:
		return fmt.Sprintf("%s >= %s", c.Column, first)
	case OpLt:
		return fmt.Sprintf("%s less than %s", c.Column, first)
	case OpLte:
		return fmt.Sprintf("%s <= %s", c.Column, first)
	case OpIn:
		return fmt.Sprintf("%s in [%s]", c.Column, strings.Join(values, ", "))
	case OpNotIn:
		return fmt.Sprintf("%s not in [%s]", c.Column, strings.Join(values, ", "))
	case OpContainsCI:
		return fmt.Sprintf("%s contains '%s' (case-insensitive)", c.Column, first)
	case OpStartsWithCI:
		return fmt.Sprintf("%s starts with '%s' (case-insensitive)", c.Column, first)
	case OpEndsWithCI:
		return fmt.Sprintf("%s ends with '%s' (case-insensitive)", c.Column, first)
	case OpIsNull:
		return c.Column + " is null"
	case OpIsNotNull:
		return c.Column + " is not null"
	case OpIsBlank:
		return c.Column + " is blank (null or empty)"
	case OpIsNotBlank:
		return c.Column + " is not blank"
	case OpBetween:
		if len(values) == 2 {
			return fmt.Sprintf("%s between %s and %s", c.Column, values[0], values[1])
		}
	}
	return fmt.Sprintf("%s %s %s", c.Column, c.Operator, strings.Join(values, ", "))
}
