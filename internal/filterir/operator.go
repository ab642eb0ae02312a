package filterir

import (
	"math"
	"strconv"
	"strings"
)

// Operator is a comparison applied by a Condition.
type Operator string

const (
	OpEq           Operator = "eq"
	OpNeq          Operator = "neq"
	OpGt           Operator = "gt"
	OpGte          Operator = "gte"
	OpLt           Operator = "lt"
	OpLte          Operator = "lte"
	OpBetween      Operator = "between"
	OpIn           Operator = "in"
	OpNotIn        Operator = "not_in"
	OpContainsCI   Operator = "contains_ci"
	OpStartsWithCI Operator = "starts_with_ci"
	OpEndsWithCI   Operator = "ends_with_ci"
	OpIsNull       Operator = "is_null"
	OpIsNotNull    Operator = "is_not_null"
	OpIsBlank      Operator = "is_blank"
	OpIsNotBlank   Operator = "is_not_blank"
)

// Unbounded marks an operator without a maximum operand count.
const Unbounded = -1

type arity struct{ min, max int }

var arities = map[Operator]arity{
	OpEq:           {1, 1},
	OpNeq:          {1, 1},
	OpGt:           {1, 1},
	OpGte:          {1, 1},
	OpLt:           {1, 1},
	OpLte:          {1, 1},
	OpContainsCI:   {1, 1},
	OpStartsWithCI: {1, 1},
	OpEndsWithCI:   {1, 1},
	OpIsNull:       {0, 0},
	OpIsNotNull:    {0, 0},
	OpIsBlank:      {0, 0},
	OpIsNotBlank:   {0, 0},
	OpBetween:      {2, 2},
	OpIn:           {1, Unbounded},
	OpNotIn:        {1, Unbounded},
}

// Valid reports whether op is a known operator.
func (op Operator) Valid() bool {
	_, ok := arities[op]
	return ok
}

// Arity returns the minimum and maximum operand counts for op.
// max is Unbounded for in and not_in.
func (op Operator) Arity() (minOperands, maxOperands int) {
	a := arities[op]
	return a.min, a.max
}

// IsOrdering reports whether op compares by magnitude.
func (op Operator) IsOrdering() bool {
	switch op {
	case OpGt, OpGte, OpLt, OpLte, OpBetween:
		return true
	}
	return false
}

// IsPattern reports whether op is a case-insensitive text match.
func (op Operator) IsPattern() bool {
	switch op {
	case OpContainsCI, OpStartsWithCI, OpEndsWithCI:
		return true
	}
	return false
}

// IsSet reports whether op tests list membership.
func (op Operator) IsSet() bool {
	return op == OpIn || op == OpNotIn
}

// CheckOperands validates operator and operand count for c.
func CheckOperands(c Condition) error {
	if !c.Operator.Valid() {
		return Errorf(ErrCodeInvalidOperator, "unknown operator %q on column %q", c.Operator, c.Column)
	}
	lo, hi := c.Operator.Arity()
	n := len(c.Operands)
	switch {
	case n == 0 && c.Operator.IsSet():
		return Errorf(ErrCodeEmptyInList, "%s on column %q has an empty list", c.Operator, c.Column)
	case n == 0 && lo > 0:
		return Errorf(ErrCodeMissingOperand, "%s on column %q requires an operand", c.Operator, c.Column)
	case n < lo || (hi != Unbounded && n > hi):
		return Errorf(ErrCodeInvalidArity, "%s on column %q takes %s operands, got %d", c.Operator, c.Column, arityText(lo, hi), n)
	}
	for _, lit := range c.Operands {
		if err := lit.check(); err != nil {
			return err
		}
	}
	return nil
}

func arityText(lo, hi int) string {
	switch {
	case hi == Unbounded:
		return "at least " + strconv.Itoa(lo)
	case lo == hi:
		return strconv.Itoa(lo)
	default:
		return strconv.Itoa(lo) + "-" + strconv.Itoa(hi)
	}
}

// FormatFloat renders v in the shortest form that round-trips, using the
// ECMAScript number layout canonical JSON requires.
func FormatFloat(v float64) string {
	if v == 0 {
		return "0"
	}
	abs := math.Abs(v)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	s := strconv.FormatFloat(v, 'e', -1, 64)
	// Go writes e+07 / e-07; ECMAScript writes e+7 / e-7.
	mant, exp, _ := strings.Cut(s, "e")
	sign := exp[:1]
	digits := strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mant + "e" + sign + digits
}
