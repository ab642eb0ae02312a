package filterir

// Status is the outcome of resolving an intent.
type Status string

const (
	StatusResolved          Status = "RESOLVED"
	StatusNeedsConfirmation Status = "NEEDS_CONFIRMATION"
	StatusUnresolved        Status = "UNRESOLVED"
)

func (s Status) rank() int {
	switch s {
	case StatusResolved:
		return 0
	case StatusNeedsConfirmation:
		return 1
	case StatusUnresolved:
		return 2
	}
	return -1
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s.rank() >= 0
}

// Worst returns the more severe of a and b.
// UNRESOLVED > NEEDS_CONFIRMATION > RESOLVED.
func Worst(a, b Status) Status {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// Structural limits enforced on every compiled tree.
const (
	// MaxDepth is the deepest allowed group nesting. The root is depth 0.
	MaxDepth = 4

	// MaxConditions bounds the number of leaf conditions.
	MaxConditions = 50

	// MaxInCardinality bounds the members of one in / not_in list.
	MaxInCardinality = 100

	// MaxParams bounds the total number of bound parameters.
	MaxParams = 500
)

// CountConditions returns the number of leaf Conditions under g.
// SemanticRefs are not counted.
func CountConditions(g Group) int {
	n := 0
	for _, child := range g.Conditions {
		switch c := child.(type) {
		case Condition, *Condition:
			n++
		case Group:
			n += CountConditions(c)
		case *Group:
			n += CountConditions(*c)
		}
	}
	return n
}

// Depth returns the deepest group nesting under g. A group with no nested
// groups has depth 0.
func Depth(g Group) int {
	deepest := 0
	for _, child := range g.Conditions {
		var sub *Group
		switch c := child.(type) {
		case Group:
			sub = &c
		case *Group:
			sub = c
		}
		if sub != nil {
			if d := Depth(*sub) + 1; d > deepest {
				deepest = d
			}
		}
	}
	return deepest
}
