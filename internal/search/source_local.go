package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kbassist/kbsearch/internal/kb"
)

// LocalScanSource scores every supplied entry with an in-process
// heuristic. It is the fallback when no full-text index is configured
// and always runs alongside the other sources.
type LocalScanSource struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewLocalScanSource creates the in-process scan source.
func NewLocalScanSource(logger *slog.Logger) *LocalScanSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalScanSource{logger: logger, now: time.Now}
}

var _ Source = (*LocalScanSource)(nil)

// Name implements Source.
func (s *LocalScanSource) Name() string { return SourceLocal }

// Search scores entries on a [0, ~2.5] heuristic scale, drops those
// below the threshold, then scales x100 into the common score range.
func (s *LocalScanSource) Search(ctx context.Context, query string, entries []kb.Entry, opts Options) ([]Result, error) {
	start := s.now()
	words := Tokenize(query)
	threshold := opts.effectiveThreshold()

	results := make([]Result, 0)
	for i := range entries {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		entry := &entries[i]
		if opts.Category != "" && !strings.EqualFold(entry.Category, opts.Category) {
			continue
		}
		if len(opts.Tags) > 0 && !hasAnyTag(entry, opts.Tags) {
			continue
		}

		raw, matchType, matched := s.scoreEntry(query, words, entry)
		if !matched || raw < threshold {
			continue
		}

		results = append(results, Result{
			Entry:     *entry,
			Score:     clampScore(raw * 100),
			MatchType: matchType,
			Metadata: Metadata{
				Source:         SourceLocal,
				ProcessingTime: s.now().Sub(start),
			},
		})
	}

	return results, nil
}

// scoreEntry computes the heuristic score and the match type for one
// entry. The boolean is false when the query touched nothing in the
// entry; such entries are dropped regardless of threshold.
func (s *LocalScanSource) scoreEntry(query string, words []string, e *kb.Entry) (float64, MatchType, bool) {
	title := strings.ToLower(e.Title)
	problem := strings.ToLower(e.Problem)
	solution := strings.ToLower(e.Solution)
	category := strings.ToLower(e.Category)
	text := e.SearchText()

	score := 0.0

	// Exact substring match anywhere, with a bonus for title matches.
	exactPhrase := strings.Contains(text, query)
	if exactPhrase {
		score += 1.0
		if strings.Contains(title, query) {
			score += 0.5
		}
	}

	// Per-word field-weighted increments plus coverage bonus.
	matchedWords := 0
	var unmatched []string
	for _, w := range words {
		hit := false
		if strings.Contains(title, w) {
			score += 0.3
			hit = true
		}
		if strings.Contains(problem, w) {
			score += 0.2
			hit = true
		}
		if strings.Contains(solution, w) {
			score += 0.15
			hit = true
		}
		if tagContains(e.Tags, w) {
			score += 0.1
			hit = true
		}
		if hit {
			matchedWords++
		} else {
			unmatched = append(unmatched, w)
		}
	}
	if len(words) > 0 {
		score += float64(matchedWords) / float64(len(words)) * 0.5
	}

	// Category named in the query.
	categoryHit := category != "" && strings.Contains(query, category)
	if categoryHit {
		score += 0.3
	}

	// Tag overlap, capped at +0.4.
	tagOverlap := 0
	for _, tag := range e.Tags {
		if strings.Contains(query, strings.ToLower(tag)) {
			tagOverlap++
		}
	}
	if tagBoost := float64(tagOverlap) * 0.2; tagBoost > 0 {
		if tagBoost > 0.4 {
			tagBoost = 0.4
		}
		score += tagBoost
	}

	// Residual fuzzy credit for words with no exact match at all.
	fuzzyHits := 0
	entryWords := strings.Fields(text)
	for _, w := range unmatched {
		best := 0.0
		for _, ew := range entryWords {
			if sim := similarity(w, ew); sim > best {
				best = sim
			}
		}
		if best > 0.8 {
			score += best * 0.1
			fuzzyHits++
		}
	}

	// Usage, success-rate, and recency reorder relevant entries; they
	// must never surface an entry the query did not touch at all.
	relevant := exactPhrase || matchedWords > 0 || tagOverlap > 0 || categoryHit || fuzzyHits > 0
	if !relevant {
		return 0, MatchFuzzy, false
	}

	if usageBoost := float64(e.UsageCount) * 0.01; usageBoost > 0 {
		if usageBoost > 0.2 {
			usageBoost = 0.2
		}
		score += usageBoost
	}
	if e.Rated() {
		score += e.SuccessRate() * 0.3
	}
	if e.CreatedWithin(s.now(), 30*24*time.Hour) {
		score += 0.1
	}

	return score, deriveMatchType(exactPhrase, matchedWords, len(words), tagOverlap, categoryHit), true
}

// deriveMatchType classifies the match independently of the score.
func deriveMatchType(exactPhrase bool, matchedWords, totalWords, tagOverlap int, categoryHit bool) MatchType {
	switch {
	case exactPhrase:
		return MatchExact
	case totalWords > 0 && matchedWords == totalWords:
		return MatchFuzzy
	case tagOverlap > 0:
		return MatchTag
	case categoryHit:
		return MatchCategory
	default:
		return MatchFuzzy
	}
}

func hasAnyTag(e *kb.Entry, tags []string) bool {
	for _, t := range tags {
		if e.HasTag(t) {
			return true
		}
	}
	return false
}

func tagContains(tags []string, word string) bool {
	for _, t := range tags {
		if strings.Contains(strings.ToLower(t), word) {
			return true
		}
	}
	return false
}
