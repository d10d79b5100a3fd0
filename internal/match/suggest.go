package match

import (
	"sort"
	"strings"
)

// MinScore is the similarity below which a candidate is not suggested.
const MinScore = 0.6

// Candidate is a scored suggestion.
type Candidate struct {
	Name  string
	Score float64
}

// Rank scores every candidate against name and returns those at or above
// MinScore, best first. Ties keep the candidates' original order, so the
// result is deterministic for a fixed candidate list.
func Rank(name string, candidates []string) []Candidate {
	normName := NormalizeIdent(name)
	lowerName := strings.ToLower(name)

	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c == name {
			continue
		}

		score := Similarity(lowerName, strings.ToLower(c))
		if s := Similarity(normName, NormalizeIdent(c)); s > score {
			score = s
		}

		if score < MinScore {
			continue
		}

		out = append(out, Candidate{Name: c, Score: score})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	return out
}

// Suggest returns up to limit candidate names closest to name.
func Suggest(name string, candidates []string, limit int) []string {
	ranked := Rank(name, candidates)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	if len(ranked) == 0 {
		return nil
	}

	names := make([]string, len(ranked))
	for i, c := range ranked {
		names[i] = c.Name
	}

	return names
}
