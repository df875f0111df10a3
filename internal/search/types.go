// Package search implements the knowledge base search pipeline:
// query optimization, parallel multi-source retrieval, source-weighted
// merging, intent-aware ranking, highlighting, and an instant result
// cache.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/kbassist/kbsearch/internal/kb"
)

// MatchType classifies why a result matched.
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchFuzzy    MatchType = "fuzzy"
	MatchSemantic MatchType = "semantic"
	MatchAI       MatchType = "ai"
	MatchCategory MatchType = "category"
	MatchTag      MatchType = "tag"
)

// Source names used in result metadata and merge weighting.
const (
	SourceFullText = "fts5"
	SourceDatabase = "database"
	SourceAI       = "ai"
	SourceLocal    = "fuzzy"
)

// sourceWeight returns the merge weight for a retrieval source.
func sourceWeight(name string) float64 {
	switch name {
	case SourceFullText:
		return 1.0
	case SourceDatabase:
		return 0.9
	case SourceAI:
		return 0.8
	case SourceLocal:
		return 0.7
	default:
		return 0.5
	}
}

// Highlight is a character-offset span into one entry field.
type Highlight struct {
	Field   string `json:"field"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Text    string `json:"text"`
	Context string `json:"context"`
}

// Metadata carries per-result provenance.
type Metadata struct {
	// ProcessingTime is the source-side elapsed time for this result set.
	ProcessingTime time.Duration `json:"processing_time"`
	// Source names the retrieval source that produced the result.
	Source string `json:"source"`
	// Confidence is the AI collaborator's confidence, scaled to [0, 1].
	// Zero for non-AI sources.
	Confidence float64 `json:"confidence,omitempty"`
	// Fallback is true when the full-text source degraded to a local scan.
	Fallback bool `json:"fallback,omitempty"`
	// Rank is the 1-based position in the final result list.
	Rank int `json:"rank,omitempty"`
	// Snippet is an index-supplied fragment around the best match.
	Snippet string `json:"snippet,omitempty"`
}

// Result is a single ranked search result.
type Result struct {
	Entry       kb.Entry    `json:"entry"`
	Score       float64     `json:"score"`
	MatchType   MatchType   `json:"match_type"`
	Highlights  []Highlight `json:"highlights,omitempty"`
	Explanation string      `json:"explanation,omitempty"`
	Metadata    Metadata    `json:"metadata"`
}

// Options configures a single search call. The zero value means
// "use defaults".
type Options struct {
	// Category restricts results to one category.
	Category string
	// Tags restricts results to entries carrying any of these tags.
	Tags []string
	// Limit caps the number of results (default 50).
	Limit int
	// Offset skips the first N results after sorting.
	Offset int
	// Threshold drops local-scan results scoring below it, on the
	// pre-scaling heuristic scale (default 0.1).
	Threshold float64
	// SortBy and SortOrder select an alternate ordering ("score" default).
	SortBy    string
	SortOrder string
	// UseAI controls semantic retrieval: nil means "if available",
	// false disables it, true requires it.
	UseAI *bool
	// IncludeHighlights enables highlight extraction for results that
	// lack index-supplied highlights.
	IncludeHighlights bool
	// UserContext boosts entries whose category matches it.
	UserContext string
	// Force bypasses the instant cache.
	Force bool

	thresholdSet bool
}

// WithThreshold returns a copy with an explicit heuristic threshold.
// Needed because zero is a meaningful threshold distinct from unset.
func (o Options) WithThreshold(t float64) Options {
	o.Threshold = t
	o.thresholdSet = true
	return o
}

// effectiveThreshold returns the local-scan threshold with default applied.
func (o Options) effectiveThreshold() float64 {
	if o.thresholdSet || o.Threshold > 0 {
		return o.Threshold
	}
	return 0.1
}

// effectiveLimit returns the result cap with default applied.
func (o Options) effectiveLimit() int {
	if o.Limit > 0 {
		return o.Limit
	}
	return 50
}

// summary renders the options compactly for error details and logs.
func (o Options) summary() string {
	ai := "auto"
	if o.UseAI != nil {
		ai = fmt.Sprintf("%t", *o.UseAI)
	}
	return fmt.Sprintf("category=%q tags=%v limit=%d offset=%d sort=%s/%s ai=%s context=%q",
		o.Category, o.Tags, o.effectiveLimit(), o.Offset, o.SortBy, o.SortOrder, ai, o.UserContext)
}

// aiDisabled reports whether the caller explicitly turned AI off.
func (o Options) aiDisabled() bool {
	return o.UseAI != nil && !*o.UseAI
}

// aiRequired reports whether the caller explicitly demanded AI.
func (o Options) aiRequired() bool {
	return o.UseAI != nil && *o.UseAI
}

// Bool returns a pointer to b, for filling Options.UseAI.
func Bool(b bool) *bool { return &b }

// Source is one retrieval strategy. Implementations must treat internal
// failures as their own concern where possible; the orchestrator
// converts any returned error into an empty contribution.
type Source interface {
	Name() string
	Search(ctx context.Context, query string, entries []kb.Entry, opts Options) ([]Result, error)
}

// clampScore bounds a score to [0, 100].
func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
