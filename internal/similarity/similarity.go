// Package similarity scores how alike two ideas are and decides which
// duplicates to drop.
//
// Text similarity is the overlap coefficient of the character-bigram
// multisets of both normalized strings: |A ∩ B| / min(|A|, |B|). It is
// symmetric, 1 for identical strings and 0 for strings sharing no bigram.
//
// The score saturates on containment: when every bigram of the shorter string
// also occurs in the longer one, Text returns 1 however much longer the other
// string is. A one-word title therefore matches any title that contains it,
// and callers relying on a retention strategy should weight descriptions
// accordingly.
package similarity

import (
	"strings"
	"unicode"

	"github.com/alexanxin/ideaspire-sub000/internal/model"
)

// Weights scale the per-field scores. They are applied as given and are not
// renormalized; Score clamps the weighted sum to [0,1].
type Weights struct {
	Title       float64 `json:"title"`
	Description float64 `json:"description"`
}

var DefaultWeights = Weights{Title: 0.6, Description: 0.4}

const DefaultThreshold = 0.7

func normalize(s string) string {
	var sb strings.Builder
	space := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			space = false
			continue
		}
		if !space && sb.Len() > 0 {
			sb.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimRight(sb.String(), " ")
}

func bigrams(s string) map[string]int {
	runes := []rune(s)
	out := make(map[string]int, len(runes))
	for i := 0; i+1 < len(runes); i++ {
		out[string(runes[i:i+2])]++
	}
	return out
}

// Text returns the similarity of two strings in [0,1].
func Text(a, b string) float64 {
	a, b = normalize(a), normalize(b)
	if a == b {
		return 1
	}

	ga, gb := bigrams(a), bigrams(b)
	na, nb := 0, 0
	for _, n := range ga {
		na += n
	}
	for _, n := range gb {
		nb += n
	}
	if na == 0 || nb == 0 {
		return 0
	}

	shared := 0
	for g, n := range ga {
		shared += min(n, gb[g])
	}
	return float64(shared) / float64(min(na, nb))
}

// Score combines title and description similarity with the given weights.
func Score(a, b model.IdeaRecord, w Weights) float64 {
	s := Text(a.Title, b.Title)*w.Title + Text(a.Description, b.Description)*w.Description
	return max(0, min(1, s))
}

type Result struct {
	IsSimilar bool              `json:"isSimilar"`
	Match     *model.IdeaRecord `json:"matchedRecord,omitempty"`
	Score     float64           `json:"score"`
}

// FindSimilar returns the best scoring existing record. Ties keep the first
// record encountered.
func FindSimilar(candidate model.IdeaRecord, existing []model.IdeaRecord, threshold float64, w Weights) Result {
	var res Result
	for i := range existing {
		s := Score(candidate, existing[i], w)
		if res.Match == nil || s > res.Score {
			res.Score = s
			res.Match = &existing[i]
		}
	}
	res.IsSimilar = res.Match != nil && res.Score >= threshold
	return res
}

type Pair struct {
	Idea1      model.IdeaRecord `json:"idea1"`
	Idea2      model.IdeaRecord `json:"idea2"`
	Similarity float64          `json:"similarity"`
}

// FindDuplicatePairs scores every unordered pair once and keeps those at or
// above threshold. Records are expected in creation order.
func FindDuplicatePairs(records []model.IdeaRecord, threshold float64, w Weights) []Pair {
	var pairs []Pair
	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			s := Score(records[i], records[j], w)
			if s >= threshold {
				pairs = append(pairs, Pair{Idea1: records[i], Idea2: records[j], Similarity: s})
			}
		}
	}
	return pairs
}
