package metadata

import (
	"strings"

	"github.com/talk2data/talk2data/internal/model"
)

// Scorer ranks a concept's relevance to a question. Implementations must be
// deterministic; a returned score at or below the retriever's threshold
// drops the concept.
type Scorer interface {
	Score(question string, c model.Concept) float64
}

// Keyword match weights. A concept name word found in the question counts
// heavily, the full name as a phrase adds a bonus, and description words
// count lightly.
const (
	nameWordWeight   = 10
	phraseBonus      = 15
	descWordWeight   = 2
	minKeywordLength = 3
)

// KeywordScorer scores concepts by word overlap with the question.
type KeywordScorer struct{}

// Score implements Scorer.
func (KeywordScorer) Score(question string, c model.Concept) float64 {
	q := strings.ToLower(question)
	qWords := wordSet(q)

	var score float64
	name := strings.ToLower(c.Name)
	for _, w := range strings.Fields(name) {
		if len(w) >= minKeywordLength && qWords[w] {
			score += nameWordWeight
		}
	}
	if strings.Contains(q, name) {
		score += phraseBonus
	}
	for _, w := range strings.Fields(strings.ToLower(c.Description)) {
		w = trimPunct(w)
		if len(w) >= minKeywordLength && qWords[w] {
			score += descWordWeight
		}
	}
	return score
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		if w = trimPunct(w); w != "" {
			set[w] = true
		}
	}
	return set
}

func trimPunct(w string) string {
	return strings.Trim(w, ".,!?;:'\"()")
}

var _ Scorer = KeywordScorer{}
