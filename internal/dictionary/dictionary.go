// Package dictionary holds the canonical term dictionaries the resolver
// consults: US states, regions and their aliases, and business predicates.
//
// A Dictionary is immutable once built. Every lookup normalizes the term
// with NormalizeTerm first, so "New-York", "new  york" and "NEW YORK" are
// the same key.
package dictionary

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/roach88/semfilter/internal/filterir"
)

// Tier classifies how much trust a term's expansion deserves.
type Tier string

const (
	// TierA terms expand silently (state names).
	TierA Tier = "A"
	// TierB terms expand but need human confirmation (regions, predicates).
	TierB Tier = "B"
	// TierC terms are unknown.
	TierC Tier = "C"
)

// Definition is the serialized form of a dictionary, as found in YAML,
// JSON and CUE dictionary files.
type Definition struct {
	Version             string               `json:"version" yaml:"version"`
	States              map[string]string    `json:"states" yaml:"states"`
	Regions             map[string][]string  `json:"regions" yaml:"regions"`
	RegionAliases       map[string]string    `json:"region_aliases" yaml:"region_aliases"`
	Predicates          map[string]Predicate `json:"predicates" yaml:"predicates"`
	FallbackSuggestions []string             `json:"fallback_suggestions,omitempty" yaml:"fallback_suggestions,omitempty"`
}

// Predicate is a business term that expands to a blank check on one column.
type Predicate struct {
	// ColumnPatterns are case-insensitive globs matched against schema
	// column names. Exactly one column must match.
	ColumnPatterns []string          `json:"column_patterns" yaml:"column_patterns"`
	Expansion      filterir.Operator `json:"expansion" yaml:"expansion"`
	Description    string            `json:"description,omitempty" yaml:"description,omitempty"`
}

// Dictionary is a validated, indexed Definition.
type Dictionary struct {
	def Definition

	states     map[string]string // normalized name -> code
	aliases    map[string]string // normalized alias -> region key
	predicates map[string]string // normalized key -> predicate key
	regionKeys []string          // sorted
}

// New validates def and indexes it for lookup.
func New(def Definition) (*Dictionary, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	d := &Dictionary{
		def:        def,
		states:     make(map[string]string, len(def.States)),
		aliases:    make(map[string]string, len(def.RegionAliases)+len(def.Regions)),
		predicates: make(map[string]string, len(def.Predicates)),
	}
	for name, code := range def.States {
		d.states[NormalizeTerm(name)] = code
	}
	for key := range def.Regions {
		d.aliases[NormalizeTerm(key)] = key
		d.regionKeys = append(d.regionKeys, key)
	}
	sort.Strings(d.regionKeys)
	for alias, key := range def.RegionAliases {
		d.aliases[NormalizeTerm(alias)] = key
	}
	for key := range def.Predicates {
		d.predicates[NormalizeTerm(key)] = key
	}
	return d, nil
}

// Version returns the dictionary version bound into resolution tokens.
func (d *Dictionary) Version() string {
	return d.def.Version
}

// Definition returns a copy of the dictionary's serialized form.
func (d *Dictionary) Definition() Definition {
	return d.def
}

// Fold applies Unicode case folding. A Caser is stateful, so each call
// gets its own.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// NormalizeTerm prepares a term for dictionary lookup: Unicode case
// folding, hyphens and underscores become spaces, runs of whitespace
// collapse to one space, and the ends are trimmed.
func NormalizeTerm(term string) string {
	s := Fold(term)
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Classify returns the tier of term.
func (d *Dictionary) Classify(term string) Tier {
	n := NormalizeTerm(term)
	if _, ok := d.states[n]; ok {
		return TierA
	}
	if _, ok := d.aliases[n]; ok {
		return TierB
	}
	if _, ok := d.predicates[n]; ok {
		return TierB
	}
	return TierC
}

// State returns the two-letter code for a state name.
func (d *Dictionary) State(term string) (string, bool) {
	code, ok := d.states[NormalizeTerm(term)]
	return code, ok
}

// Region returns the canonical key and sorted member codes of a region
// named by term or one of its aliases.
func (d *Dictionary) Region(term string) (string, []string, bool) {
	key, ok := d.aliases[NormalizeTerm(term)]
	if !ok {
		return "", nil, false
	}
	return key, d.RegionMembers(key), true
}

// RegionMembers returns the sorted member codes of region key.
func (d *Dictionary) RegionMembers(key string) []string {
	members := append([]string(nil), d.def.Regions[key]...)
	sort.Strings(members)
	return members
}

// Predicate returns the canonical key and definition of a business term.
func (d *Dictionary) Predicate(term string) (string, Predicate, bool) {
	key, ok := d.predicates[NormalizeTerm(term)]
	if !ok {
		return "", Predicate{}, false
	}
	return key, d.def.Predicates[key], true
}

// RegionExpansion renders a region for humans, e.g. "PACIFIC (AK, HI)".
// Long regions are abbreviated to their first five members.
func (d *Dictionary) RegionExpansion(key string) string {
	members := d.RegionMembers(key)
	if len(members) > 5 {
		return fmt.Sprintf("%s (%s, ...)", key, strings.Join(members[:5], ", "))
	}
	return fmt.Sprintf("%s (%s)", key, strings.Join(members, ", "))
}

// MatchColumns returns the distinct schema columns matching any pattern.
// Matching is case-insensitive; patterns may use path.Match globs.
// The result is sorted.
func MatchColumns(patterns []string, columns []string) []string {
	seen := make(map[string]bool)
	var matched []string
	for _, col := range columns {
		folded := Fold(col)
		for _, p := range patterns {
			ok, err := path.Match(Fold(p), folded)
			if err != nil || !ok {
				continue
			}
			if !seen[col] {
				seen[col] = true
				matched = append(matched, col)
			}
			break
		}
	}
	sort.Strings(matched)
	return matched
}
