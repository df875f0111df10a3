package search

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/kbassist/kbsearch/internal/kb"
	"github.com/kbassist/kbsearch/internal/store"
)

// FullTextSource retrieves via the SQLite FTS5 index. On any index
// error it degrades transparently to the local scan, tagging results
// with fallback metadata.
type FullTextSource struct {
	index     *store.EntryIndex
	optimizer *Optimizer
	local     *LocalScanSource
	logger    *slog.Logger
}

// NewFullTextSource creates the indexed source. A nil index means every
// search goes through the local fallback.
func NewFullTextSource(index *store.EntryIndex, optimizer *Optimizer, local *LocalScanSource, logger *slog.Logger) *FullTextSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FullTextSource{
		index:     index,
		optimizer: optimizer,
		local:     local,
		logger:    logger,
	}
}

var _ Source = (*FullTextSource)(nil)

// Name implements Source.
func (s *FullTextSource) Name() string { return SourceFullText }

// Search runs the optimized match expression against the index.
func (s *FullTextSource) Search(ctx context.Context, query string, entries []kb.Entry, opts Options) ([]Result, error) {
	if s.index == nil {
		return s.fallback(ctx, query, entries, opts, nil)
	}

	start := time.Now()
	hits, err := s.index.Search(ctx, store.Query{
		Match:    s.optimizer.Optimize(query),
		Category: opts.Category,
		Limit:    opts.effectiveLimit(),
	})
	if err != nil {
		return s.fallback(ctx, query, entries, opts, err)
	}
	elapsed := time.Since(start)

	byID := make(map[string]*kb.Entry, len(entries))
	for i := range entries {
		byID[entries[i].ID] = &entries[i]
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		entry, ok := byID[hit.ID]
		if !ok {
			// Index is stale relative to the supplied entries.
			continue
		}

		matchType := MatchFuzzy
		if strings.Contains(entry.SearchText(), query) {
			matchType = MatchExact
		}

		snippet := stripMarkers(hit.ProblemSnippet)
		results = append(results, Result{
			Entry:      *entry,
			Score:      relevanceToScore(hit.Relevance),
			MatchType:  matchType,
			Highlights: snippetHighlights(hit),
			Metadata: Metadata{
				Source:         SourceFullText,
				ProcessingTime: elapsed,
				Snippet:        snippet,
			},
		})
	}

	return results, nil
}

// fallback degrades to the local scan, tagging results so callers can
// see the full-text path was unavailable.
func (s *FullTextSource) fallback(ctx context.Context, query string, entries []kb.Entry, opts Options, cause error) ([]Result, error) {
	if cause != nil {
		s.logger.Warn("full-text search failed, falling back to local scan",
			"query", query, "error", cause)
	}

	results, err := s.local.Search(ctx, query, entries, opts)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Metadata.Source = SourceFullText
		results[i].Metadata.Fallback = true
	}
	return results, nil
}

// relevanceToScore converts index relevance (arbitrary sign and scale)
// into the common 0-100 range.
func relevanceToScore(rel float64) float64 {
	return clampScore(math.Abs(rel)*20 + 50)
}

// snippetHighlights converts marker-delimited index snippets into
// highlight spans.
func snippetHighlights(hit store.Hit) []Highlight {
	var highlights []Highlight
	for _, f := range []struct {
		field   string
		snippet string
	}{
		{"title", hit.TitleSnippet},
		{"problem", hit.ProblemSnippet},
	} {
		if h, ok := markerHighlight(f.field, f.snippet); ok {
			highlights = append(highlights, h)
		}
	}
	return highlights
}

// markerHighlight extracts the first marked span from a snippet.
func markerHighlight(field, snippet string) (Highlight, bool) {
	start := strings.Index(snippet, store.MatchMarkerStart)
	if start < 0 {
		return Highlight{}, false
	}
	rest := snippet[start+len(store.MatchMarkerStart):]
	end := strings.Index(rest, store.MatchMarkerEnd)
	if end < 0 {
		return Highlight{}, false
	}

	matched := rest[:end]
	context := stripMarkers(snippet)
	offset := strings.Index(context, matched)
	if offset < 0 {
		offset = 0
	}

	return Highlight{
		Field:   field,
		Start:   offset,
		End:     offset + len(matched),
		Text:    matched,
		Context: context,
	}, true
}

func stripMarkers(s string) string {
	s = strings.ReplaceAll(s, store.MatchMarkerStart, "")
	return strings.ReplaceAll(s, store.MatchMarkerEnd, "")
}
