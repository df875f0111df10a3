package search

import (
	"sort"
	"strings"
	"sync"

	"github.com/kbassist/kbsearch/internal/telemetry"
)

const (
	historyCapacity    = 1000
	popularityCapacity = 1000
)

// domainSuggestions seed the suggestion list so suggest works before
// any history accumulates.
var domainSuggestions = []string{
	"s0c7 abend",
	"s0c4 protection exception",
	"s0cb divide by zero",
	"s222 job cancelled",
	"s322 time limit exceeded",
	"s806 module not found",
	"s878 insufficient storage",
	"jcl error dataset not found",
	"vsam file status 93",
	"db2 sqlcode -811",
	"db2 sqlcode -904",
	"cics asra abend",
	"sort wer027a",
	"gdg generation missing",
}

// History tracks recent searches (bounded ring) and popularity counters
// (bounded to the top entries by count). Safe for concurrent use.
type History struct {
	mu         sync.Mutex
	recent     *telemetry.CircularBuffer[string]
	popularity map[string]int
}

// NewHistory creates an empty search history.
func NewHistory() *History {
	return &History{
		recent:     telemetry.NewCircularBuffer[string](historyCapacity),
		popularity: make(map[string]int),
	}
}

// Record notes a completed search for a normalized query.
func (h *History) Record(query string) {
	if query == "" {
		return
	}

	h.recent.Add(query)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.popularity[query]++

	// Bound the popularity table by dropping the least-used query.
	if len(h.popularity) > popularityCapacity {
		lowest := ""
		lowestCount := int(^uint(0) >> 1)
		for q, count := range h.popularity {
			if count < lowestCount {
				lowest, lowestCount = q, count
			}
		}
		delete(h.popularity, lowest)
	}
}

// Recent returns up to limit distinct queries, most recent first.
func (h *History) Recent(limit int) []string {
	if limit <= 0 {
		limit = 10
	}

	items := h.recent.Items()

	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, limit)
	for i := len(items) - 1; i >= 0 && len(out) < limit; i-- {
		if _, dup := seen[items[i]]; dup {
			continue
		}
		seen[items[i]] = struct{}{}
		out = append(out, items[i])
	}
	return out
}

// Popular returns up to limit queries ordered by search count.
func (h *History) Popular(limit int) []string {
	if limit <= 0 {
		limit = 10
	}

	h.mu.Lock()
	type popCount struct {
		query string
		count int
	}
	counts := make([]popCount, 0, len(h.popularity))
	for q, c := range h.popularity {
		counts = append(counts, popCount{q, c})
	}
	h.mu.Unlock()

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].query < counts[j].query
	})

	if len(counts) > limit {
		counts = counts[:limit]
	}
	out := make([]string, len(counts))
	for i, pc := range counts {
		out[i] = pc.query
	}
	return out
}

// Suggest returns completions for a partial query: popular queries
// first, then static domain terms, matched by prefix or substring.
func (h *History) Suggest(partial string, limit int) []string {
	partial = Normalize(partial)
	if partial == "" || limit <= 0 {
		return []string{}
	}

	seen := make(map[string]struct{})
	out := make([]string, 0, limit)

	add := func(candidates []string) {
		for _, cand := range candidates {
			if len(out) >= limit {
				return
			}
			if cand == partial {
				continue
			}
			if _, dup := seen[cand]; dup {
				continue
			}
			if strings.HasPrefix(cand, partial) || strings.Contains(cand, partial) {
				seen[cand] = struct{}{}
				out = append(out, cand)
			}
		}
	}

	add(h.Popular(popularityCapacity))
	add(domainSuggestions)

	return out
}

// Size returns the number of recorded recent searches.
func (h *History) Size() int {
	return h.recent.Size()
}
