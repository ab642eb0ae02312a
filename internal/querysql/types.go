package querysql

import (
	"math"
	"strconv"
	"strings"

	"github.com/roach88/semfilter/internal/dictionary"
	"github.com/roach88/semfilter/internal/filterir"
)

// DuckDB type families, after normalization (upper case, parameters
// stripped: DECIMAL(10,2) is DECIMAL).
var (
	numericTypes = set("INTEGER", "BIGINT", "HUGEINT", "SMALLINT", "TINYINT",
		"DOUBLE", "FLOAT", "REAL", "DECIMAL", "NUMERIC")
	temporalTypes = set("DATE", "TIMESTAMP", "TIMESTAMP WITH TIME ZONE", "TIMESTAMPTZ")
	stringTypes   = set("VARCHAR", "TEXT", "STRING")
)

// numericTextHints mark string columns that usually hold numbers such as
// "$1,234.56".
var numericTextHints = []string{
	"amount", "price", "total", "subtotal", "cost", "value", "tax", "discount", "balance",
}

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

// normalizeType upper-cases a declared type and drops its parameters.
func normalizeType(raw string) string {
	t := strings.ToUpper(raw)
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}

// columnKind is what the compiler knows about a column's type.
type columnKind struct {
	typ         string // normalized, "" when unknown
	numericText bool
}

func classify(column, rawType string) columnKind {
	k := columnKind{typ: normalizeType(rawType)}
	if stringTypes[k.typ] {
		folded := dictionary.Fold(column)
		for _, hint := range numericTextHints {
			if strings.Contains(folded, hint) {
				k.numericText = true
				break
			}
		}
	}
	return k
}

// accepts checks operator/column type compatibility. Columns of unknown
// type accept everything.
func (k columnKind) accepts(column string, op filterir.Operator) error {
	if k.typ == "" {
		return nil
	}
	switch {
	case op.IsOrdering():
		if numericTypes[k.typ] || temporalTypes[k.typ] || k.numericText {
			return nil
		}
		return filterir.Errorf(filterir.ErrCodeTypeMismatch,
			"operator %s requires a numeric or date column, but %q has type %s", op, column, k.typ)
	case op.IsPattern():
		if stringTypes[k.typ] {
			return nil
		}
		return filterir.Errorf(filterir.ErrCodeTypeMismatch,
			"operator %s requires a string column, but %q has type %s", op, column, k.typ)
	}
	return nil
}

// orderingColumn returns the expression compared by ordering operators.
//
// Heuristic: string columns whose name suggests a money or quantity value
// are compared numerically after stripping "$" and ",". Values that still
// do not parse become NULL and never match.
func (k columnKind) orderingColumn(col string) string {
	if !k.numericText {
		return col
	}
	return "TRY_CAST(REPLACE(REPLACE(TRIM(COALESCE(" + col + ", '')), '$', ''), ',', '') AS DOUBLE)"
}

// orderingValue returns the bound value for an ordering operand. For
// numeric-text columns the literal is coerced to float64.
func (k columnKind) orderingValue(column string, lit filterir.Literal) (any, error) {
	if !k.numericText {
		return lit.Value, nil
	}
	mismatch := filterir.Errorf(filterir.ErrCodeTypeMismatch,
		"column %q expects a numeric literal for ordering comparison, got %s %v", column, lit.Type, lit.Value)

	switch v := lit.Value.(type) {
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		s := strings.NewReplacer(",", "", "$", "").Replace(strings.TrimSpace(v))
		if s == "" {
			return nil, mismatch
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, mismatch
		}
		return f, nil
	}
	return nil, mismatch
}
