package search

import (
	"sort"
	"strings"
	"time"

	"github.com/kbassist/kbsearch/internal/kb"
)

// Ranker applies intent-aware and context-aware multiplicative
// adjustments on top of merged scores. All multipliers compose and the
// final score is re-clamped to [0, 100].
type Ranker struct {
	classifier *IntentClassifier
	now        func() time.Time
}

// NewRanker creates a ranker with its own intent classifier.
func NewRanker() *Ranker {
	return &Ranker{
		classifier: NewIntentClassifier(256),
		now:        time.Now,
	}
}

// Rank adjusts and re-sorts results for a normalized query.
func (r *Ranker) Rank(query string, results []Result, opts Options) []Result {
	intent := r.classifier.Classify(query)
	words := Tokenize(query)
	now := r.now()

	for i := range results {
		res := &results[i]
		score := res.Score

		// Error-resolution queries favor entries whose solution
		// actually talks about errors.
		if intent == IntentErrorResolution &&
			strings.Contains(strings.ToLower(res.Entry.Solution), "error") {
			score *= 1.15
		}

		score *= recentSuccessFactor(res.Entry.SuccessRate(), res.Entry.Age(now), res.Entry.Rated())

		if opts.UserContext != "" &&
			strings.Contains(strings.ToLower(res.Entry.Category), strings.ToLower(opts.UserContext)) {
			score *= 1.15
		}

		score *= 1 + coOccurrenceBoost(words, res.Entry)

		res.Score = clampScore(score)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Entry.ID < results[j].Entry.ID
	})

	return results
}

// Intent exposes the classified intent, used by Explain.
func (r *Ranker) Intent(query string) Intent {
	return r.classifier.Classify(query)
}

// recentSuccessFactor rewards entries that resolved problems recently:
// x1.2 for >80% success within 7 days, x1.1 for >70% within 30 days.
func recentSuccessFactor(successRate float64, age time.Duration, rated bool) float64 {
	if !rated {
		return 1.0
	}
	switch {
	case successRate > 0.8 && age <= 7*24*time.Hour:
		return 1.2
	case successRate > 0.7 && age <= 30*24*time.Hour:
		return 1.1
	default:
		return 1.0
	}
}

// coOccurrenceBoost counts how many query words appear anywhere in the
// entry text: 0.02 per word, capped at 0.1.
func coOccurrenceBoost(words []string, e kb.Entry) float64 {
	text := strings.ToLower(e.Title + " " + e.Problem + " " + e.Solution)

	matching := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			matching++
		}
	}

	boost := float64(matching) * 0.02
	if boost > 0.1 {
		boost = 0.1
	}
	return boost
}
