package querysql

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/semfilter/internal/canonical"
	"github.com/roach88/semfilter/internal/filterir"
)

// emitter accumulates the parameters and columns of one compilation.
// It is created per Compile call and never shared.
type emitter struct {
	schema  filterir.Schema
	params  []any
	columns map[string]struct{}
}

// bind appends a parameter and returns its placeholder.
func (e *emitter) bind(v any) string {
	e.params = append(e.params, v)
	return "$" + strconv.Itoa(len(e.params))
}

func (e *emitter) columnsUsed() []string {
	out := make([]string, 0, len(e.columns))
	for col := range e.columns {
		out = append(out, col)
	}
	sort.Strings(out)
	return out
}

func (e *emitter) group(g filterir.Group, depth int) (string, error) {
	if depth > filterir.MaxDepth {
		return "", filterir.Errorf(filterir.ErrCodeStructuralLimitExceeded,
			"nesting depth %d exceeds maximum %d", depth, filterir.MaxDepth)
	}
	if !g.Logic.Valid() {
		return "", filterir.Errorf(filterir.ErrCodeInvalidOperator, "group logic %q is not AND or OR", g.Logic)
	}

	fragments := make([]string, 0, len(g.Conditions))
	for _, child := range g.Conditions {
		var (
			sql string
			err error
		)
		switch n := child.(type) {
		case filterir.Condition:
			sql, err = e.condition(n)
		case *filterir.Condition:
			sql, err = e.condition(*n)
		case filterir.Group:
			sql, err = e.nested(n, depth)
		case *filterir.Group:
			sql, err = e.nested(*n, depth)
		case filterir.SemanticRef:
			err = unresolvedRef(n)
		case *filterir.SemanticRef:
			err = unresolvedRef(*n)
		default:
			err = fmt.Errorf("querysql: unexpected node type %T", child)
		}
		if err != nil {
			return "", err
		}
		fragments = append(fragments, sql)
	}

	if len(fragments) == 0 {
		return "", filterir.Errorf(filterir.ErrCodeStructuralLimitExceeded,
			"filter group compiled to zero conditions")
	}
	return strings.Join(fragments, " "+string(g.Logic)+" "), nil
}

func (e *emitter) nested(g filterir.Group, depth int) (string, error) {
	sql, err := e.group(g, depth+1)
	if err != nil {
		return "", err
	}
	return "(" + sql + ")", nil
}

// unresolvedRef reports a semantic reference that reached the compiler.
// The resolver never emits one, so the spec was assembled by hand.
func unresolvedRef(ref filterir.SemanticRef) error {
	return filterir.Errorf(filterir.ErrCodeConfirmationRequired,
		"unresolved semantic reference %q in compiled tree", ref.SemanticKey)
}

func (e *emitter) condition(c filterir.Condition) (string, error) {
	if !e.schema.Has(c.Column) {
		return "", filterir.Errorf(filterir.ErrCodeUnknownColumn,
			"column %q not found in schema; available: %s", c.Column, strings.Join(e.schema.Names(), ", "))
	}
	if err := filterir.CheckOperands(c); err != nil {
		return "", err
	}
	kind := classify(c.Column, e.schema.Type(c.Column))
	if err := kind.accepts(c.Column, c.Operator); err != nil {
		return "", err
	}

	e.columns[c.Column] = struct{}{}
	col := quoteIdent(c.Column)

	switch c.Operator {
	case filterir.OpEq:
		return col + " = " + e.bind(c.Operands[0].Value), nil
	case filterir.OpNeq:
		return col + " != " + e.bind(c.Operands[0].Value), nil

	case filterir.OpGt, filterir.OpGte, filterir.OpLt, filterir.OpLte:
		v, err := kind.orderingValue(c.Column, c.Operands[0])
		if err != nil {
			return "", err
		}
		return kind.orderingColumn(col) + " " + comparison[c.Operator] + " " + e.bind(v), nil

	case filterir.OpBetween:
		lo, err := kind.orderingValue(c.Column, c.Operands[0])
		if err != nil {
			return "", err
		}
		hi, err := kind.orderingValue(c.Column, c.Operands[1])
		if err != nil {
			return "", err
		}
		expr := kind.orderingColumn(col)
		return expr + " BETWEEN " + e.bind(lo) + " AND " + e.bind(hi), nil

	case filterir.OpIn, filterir.OpNotIn:
		if len(c.Operands) > filterir.MaxInCardinality {
			return "", filterir.Errorf(filterir.ErrCodeStructuralLimitExceeded,
				"%s list on %q has %d values, exceeding maximum %d",
				c.Operator, c.Column, len(c.Operands), filterir.MaxInCardinality)
		}
		sorted := append([]filterir.Literal{}, c.Operands...)
		canonical.SortLiterals(sorted)
		placeholders := make([]string, len(sorted))
		for i, lit := range sorted {
			placeholders[i] = e.bind(lit.Value)
		}
		keyword := " IN "
		if c.Operator == filterir.OpNotIn {
			keyword = " NOT IN "
		}
		return col + keyword + "(" + strings.Join(placeholders, ", ") + ")", nil

	case filterir.OpContainsCI:
		return e.ilike(col, "%"+escapeLike(c.Operands[0].Text())+"%"), nil
	case filterir.OpStartsWithCI:
		return e.ilike(col, escapeLike(c.Operands[0].Text())+"%"), nil
	case filterir.OpEndsWithCI:
		return e.ilike(col, "%"+escapeLike(c.Operands[0].Text())), nil

	case filterir.OpIsNull:
		return col + " IS NULL", nil
	case filterir.OpIsNotNull:
		return col + " IS NOT NULL", nil

	case filterir.OpIsBlank:
		return "(" + blankExpr(col) + " = " + e.bind("") + ")", nil
	case filterir.OpIsNotBlank:
		return "(" + blankExpr(col) + " != " + e.bind("") + ")", nil
	}

	return "", filterir.Errorf(filterir.ErrCodeInvalidOperator, "unknown operator %q", c.Operator)
}

var comparison = map[filterir.Operator]string{
	filterir.OpGt:  ">",
	filterir.OpGte: ">=",
	filterir.OpLt:  "<",
	filterir.OpLte: "<=",
}

func (e *emitter) ilike(col, pattern string) string {
	return col + " ILIKE " + e.bind(pattern) + ` ESCAPE '\'`
}

// blankExpr treats NULL, empty and whitespace-only values alike.
func blankExpr(col string) string {
	return "TRIM(CAST(COALESCE(" + col + ", '') AS VARCHAR))"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike escapes the ILIKE wildcards and the escape character itself.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
