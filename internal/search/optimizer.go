package search

import (
	"fmt"
	"strings"
	"sync"
)

// prewarmQueries are common queries whose rewrites are computed at
// startup so first searches skip the rewrite path.
var prewarmQueries = []string{
	"s0c7 abend",
	"s0c4 abend",
	"jcl error",
	"dataset not found",
	"vsam file status",
	"db2 sqlcode",
	"cics transaction abend",
	"sort failed",
	"cobol compile error",
	"job not running",
}

// Optimizer rewrites normalized queries into full-text match
// expressions, phrase-first with prefix fallback. Rewrites are memoized
// by input string; safe for concurrent use.
type Optimizer struct {
	mu   sync.RWMutex
	memo map[string]string
}

// NewOptimizer creates an optimizer pre-warmed with common domain queries.
func NewOptimizer() *Optimizer {
	o := &Optimizer{memo: make(map[string]string)}
	for _, q := range prewarmQueries {
		o.memo[q] = o.rewrite(q)
	}
	return o
}

// Optimize returns the full-text match expression for a normalized query.
func (o *Optimizer) Optimize(query string) string {
	o.mu.RLock()
	cached, ok := o.memo[query]
	o.mu.RUnlock()
	if ok {
		return cached
	}

	rewritten := o.rewrite(query)

	o.mu.Lock()
	o.memo[query] = rewritten
	o.mu.Unlock()
	return rewritten
}

// MemoSize returns the number of memoized rewrites.
func (o *Optimizer) MemoSize() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.memo)
}

func (o *Optimizer) rewrite(query string) string {
	// Field-prefixed queries rewrite to column filters directly.
	if rest, ok := strings.CutPrefix(query, "category:"); ok {
		return fmt.Sprintf(`category : %s`, quoteTerm(strings.TrimSpace(rest)))
	}
	if rest, ok := strings.CutPrefix(query, "tag:"); ok {
		return fmt.Sprintf(`tags : %s`, quoteTerm(strings.TrimSpace(rest)))
	}

	tokens := Tokenize(query)

	// Short tokens match too broadly to be useful.
	kept := tokens[:0:0]
	for _, t := range tokens {
		if len(t) > 2 {
			kept = append(kept, t)
		}
	}

	switch {
	case len(kept) == 0:
		if query == "" {
			return ""
		}
		return quoteTerm(query)

	case len(kept) == 1:
		// Prefix-or-exact for single terms.
		t := quoteTerm(kept[0])
		return fmt.Sprintf("%s* OR %s", t, t)

	case len(kept) <= 3:
		// Exact phrase preferred, conjunctive prefix match as fallback.
		prefixes := make([]string, len(kept))
		for i, t := range kept {
			prefixes[i] = quoteTerm(t) + "*"
		}
		return fmt.Sprintf("%s OR (%s)", quoteTerm(query), strings.Join(prefixes, " AND "))

	default:
		// Long queries: conjunctive prefix match over the first 5 tokens
		// only, to bound query cost.
		if len(kept) > 5 {
			kept = kept[:5]
		}
		prefixes := make([]string, len(kept))
		for i, t := range kept {
			prefixes[i] = quoteTerm(t) + "*"
		}
		return strings.Join(prefixes, " AND ")
	}
}

// quoteTerm quotes a term for FTS5 so operator characters in user input
// cannot break the match syntax.
func quoteTerm(t string) string {
	return `"` + strings.ReplaceAll(t, `"`, "") + `"`
}
