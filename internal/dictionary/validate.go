package dictionary

import (
	"fmt"
	"path"
	"regexp"
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/roach88/semfilter/internal/filterir"
)

var stateCode = regexp.MustCompile(`^[A-Z]{2}$`)

// territories may appear in regions without a state-name entry.
var territories = map[string]bool{"DC": true, "PR": true}

// Validate reports every problem in def, not just the first.
func (def Definition) Validate() error {
	var result *multierror.Error

	if def.Version == "" {
		result = multierror.Append(result, fmt.Errorf("version is required"))
	}

	codes := make(map[string]bool, len(def.States))
	names := make(map[string]string, len(def.States))
	for _, name := range sortedKeys(def.States) {
		code := def.States[name]
		n := NormalizeTerm(name)
		if n == "" {
			result = multierror.Append(result, fmt.Errorf("state %q: empty name", name))
			continue
		}
		if !stateCode.MatchString(code) {
			result = multierror.Append(result, fmt.Errorf("state %q: code %q is not two upper-case letters", name, code))
		}
		if prev, dup := names[n]; dup {
			result = multierror.Append(result, fmt.Errorf("state %q: normalizes like %q", name, prev))
		}
		names[n] = name
		codes[code] = true
	}

	if len(def.Regions) == 0 {
		result = multierror.Append(result, fmt.Errorf("at least one region is required"))
	}
	for _, key := range sortedKeys(def.Regions) {
		members := def.Regions[key]
		if len(members) == 0 {
			result = multierror.Append(result, fmt.Errorf("region %s: no members", key))
		}
		for _, m := range members {
			if !codes[m] && !territories[m] {
				result = multierror.Append(result, fmt.Errorf("region %s: unknown state code %q", key, m))
			}
		}
		if _, clash := names[NormalizeTerm(key)]; clash {
			result = multierror.Append(result, fmt.Errorf("region %s: collides with a state name", key))
		}
	}

	for _, alias := range sortedKeys(def.RegionAliases) {
		key := def.RegionAliases[alias]
		if _, ok := def.Regions[key]; !ok {
			result = multierror.Append(result, fmt.Errorf("alias %q: unknown region %s", alias, key))
		}
		if _, clash := names[NormalizeTerm(alias)]; clash {
			result = multierror.Append(result, fmt.Errorf("alias %q: collides with a state name", alias))
		}
	}

	for _, key := range sortedKeys(def.Predicates) {
		p := def.Predicates[key]
		if p.Expansion != filterir.OpIsBlank && p.Expansion != filterir.OpIsNotBlank {
			result = multierror.Append(result, fmt.Errorf("predicate %s: expansion %q must be %s or %s", key, p.Expansion, filterir.OpIsBlank, filterir.OpIsNotBlank))
		}
		if len(p.ColumnPatterns) == 0 {
			result = multierror.Append(result, fmt.Errorf("predicate %s: no column patterns", key))
		}
		for _, pattern := range p.ColumnPatterns {
			if _, err := path.Match(pattern, ""); err != nil {
				result = multierror.Append(result, fmt.Errorf("predicate %s: bad pattern %q: %w", key, pattern, err))
			}
		}
	}

	for _, key := range def.FallbackSuggestions {
		if _, ok := def.Regions[key]; !ok {
			result = multierror.Append(result, fmt.Errorf("fallback suggestion %s: unknown region", key))
		}
	}

	return result.ErrorOrNil()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
