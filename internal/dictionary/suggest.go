package dictionary

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/semfilter/internal/filterir"
)

// MaxSuggestions bounds the suggestions offered for one unresolved phrase.
const MaxSuggestions = 3

// Suggest ranks regions whose aliases share text with an unknown phrase.
//
// Each phrase word of three or more letters (other than "the") that
// appears inside an alias scores a point for that alias's region; a region
// keeps its best alias score. Regions are ranked by score, then key. When
// nothing overlaps, the dictionary's fallback suggestions are returned.
func (d *Dictionary) Suggest(phrase string) []filterir.Suggestion {
	var words []string
	for _, w := range strings.Fields(NormalizeTerm(phrase)) {
		if len(w) >= 3 && w != "the" {
			words = append(words, w)
		}
	}

	best := make(map[string]int)
	for alias, key := range d.aliases {
		score := 0
		for _, w := range words {
			if strings.Contains(alias, w) {
				score++
			}
		}
		if score > best[key] {
			best[key] = score
		}
	}

	type ranked struct {
		key   string
		score int
	}
	var hits []ranked
	for key, score := range best {
		if score > 0 {
			hits = append(hits, ranked{key, score})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].key < hits[j].key
	})

	var out []filterir.Suggestion
	for _, h := range hits {
		if len(out) == MaxSuggestions {
			break
		}
		out = append(out, filterir.Suggestion{Key: h.key, Expansion: d.RegionExpansion(h.key)})
	}
	if len(out) > 0 {
		return out
	}

	for _, key := range d.def.FallbackSuggestions {
		if len(out) == MaxSuggestions {
			break
		}
		out = append(out, filterir.Suggestion{
			Key:       key,
			Expansion: fmt.Sprintf("%s (%d states)", key, len(d.def.Regions[key])),
		})
	}
	return out
}
