package catalog

import (
	"cmp"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"
)

// DefaultMinSimilarity is the similarity a name needs to be suggested.
const DefaultMinSimilarity = 0.5

// Suggestion is a listed product name close to a query.
type Suggestion struct {
	Name       string  `json:"name"`
	Similarity float64 `json:"similarity"`
}

// Suggest returns up to n listed names whose similarity to query is at
// least minSimilarity, best first. Similarity is 1 - distance/maxLen over
// the lower-cased names, where distance is the Levenshtein edit distance.
func (c *Catalog) Suggest(query string, n int, minSimilarity float64) []Suggestion {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || n <= 0 {
		return nil
	}
	var out []Suggestion
	for _, p := range c.byName.InOrder() {
		s := similarity(q, strings.ToLower(p.Name))
		if s >= minSimilarity {
			out = append(out, Suggestion{Name: p.Name, Similarity: s})
		}
	}
	// Names arrive in name order and the sort is stable, so ties stay
	// alphabetical.
	slices.SortStableFunc(out, func(a, b Suggestion) int {
		return cmp.Compare(b.Similarity, a.Similarity)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func similarity(a, b string) float64 {
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
}
