package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kbassist/kbsearch/internal/ai"
	kberrors "github.com/kbassist/kbsearch/internal/errors"
	"github.com/kbassist/kbsearch/internal/kb"
	"github.com/kbassist/kbsearch/internal/store"
	"github.com/kbassist/kbsearch/internal/telemetry"
)

// EngineConfig holds tunables for a search engine instance.
type EngineConfig struct {
	// MaxResults caps the number of results returned (default 50).
	MaxResults int
	// MinScore filters out final results below this score.
	MinScore float64
	// SuggestLimit caps suggestion counts (default 5).
	SuggestLimit int
	// SourceTimeout bounds the semantic source call (default 5s).
	SourceTimeout time.Duration
	// CacheMaxSize, CacheTTL, CacheSweepInterval configure the instant cache.
	CacheMaxSize       int
	CacheTTL           time.Duration
	CacheSweepInterval time.Duration
}

// DefaultEngineConfig returns sensible defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxResults:         50,
		SuggestLimit:       5,
		SourceTimeout:      5 * time.Second,
		CacheMaxSize:       100,
		CacheTTL:           5 * time.Minute,
		CacheSweepInterval: time.Minute,
	}
}

// Engine orchestrates the search pipeline. All shared state (cache,
// memoization, history) is owned by the instance; multiple engines do
// not interfere with each other.
type Engine struct {
	config    EngineConfig
	index     *store.EntryIndex
	optimizer *Optimizer
	cache     *InstantCache
	local     *LocalScanSource
	fullText  *FullTextSource
	semantic  *SemanticSource
	merger    *Merger
	ranker    *Ranker
	history   *History
	monitor   *telemetry.PerformanceMonitor
	logger    *slog.Logger

	mu        sync.RWMutex
	entryByID map[string]kb.Entry
}

// Option configures an Engine.
type Option func(*Engine)

// WithIndex wires a full-text index. Without it every search uses the
// local scan fallback.
func WithIndex(index *store.EntryIndex) Option {
	return func(e *Engine) { e.index = index }
}

// WithAIClient enables the semantic source.
func WithAIClient(client *ai.Client) Option {
	return func(e *Engine) { e.semantic = NewSemanticSource(client, e.logger) }
}

// WithMonitor wires a performance monitor.
func WithMonitor(monitor *telemetry.PerformanceMonitor) Option {
	return func(e *Engine) { e.monitor = monitor }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates a search engine.
func NewEngine(config EngineConfig, opts ...Option) *Engine {
	if config.MaxResults <= 0 {
		config.MaxResults = 50
	}
	if config.SuggestLimit <= 0 {
		config.SuggestLimit = 5
	}
	if config.SourceTimeout <= 0 {
		config.SourceTimeout = 5 * time.Second
	}

	e := &Engine{
		config:    config,
		optimizer: NewOptimizer(),
		merger:    &Merger{},
		ranker:    NewRanker(),
		history:   NewHistory(),
		logger:    slog.Default(),
		entryByID: make(map[string]kb.Entry),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.cache = NewInstantCache(config.CacheMaxSize, config.CacheTTL, config.CacheSweepInterval)
	e.local = NewLocalScanSource(e.logger)
	e.fullText = NewFullTextSource(e.index, e.optimizer, e.local, e.logger)
	if e.semantic == nil {
		e.semantic = NewSemanticSource(nil, e.logger)
	}
	if e.monitor == nil {
		e.monitor = telemetry.NewPerformanceMonitor(telemetry.DefaultMonitorConfig(), e.logger)
	}

	return e
}

// Cache exposes the instant cache, mainly for observers.
func (e *Engine) Cache() *InstantCache { return e.cache }

// sourceOutcome is the typed result-or-error of one fan-out branch.
type sourceOutcome struct {
	name    string
	results []Result
	err     error
}

// Search runs the full pipeline for a query against the supplied
// entries. Individual source failures degrade gracefully; the only
// error surfaced is an unexpected pipeline failure.
func (e *Engine) Search(ctx context.Context, rawQuery string, entries []kb.Entry, opts Options) (results []Result, err error) {
	start := time.Now()
	defer e.monitor.Track("search", start)

	defer func() {
		if r := recover(); r != nil {
			err = kberrors.PipelineError(fmt.Sprintf("search pipeline panicked: %v", r), nil).
				WithDetail("query", rawQuery).
				WithDetail("options", opts.summary()).
				WithDetail("elapsed", time.Since(start).String())
		}
	}()

	query := Normalize(rawQuery)
	if query == "" {
		// Defined no-op, not a failure.
		return []Result{}, nil
	}

	key := e.cache.Key(query, opts)
	if !opts.Force {
		if cached, ok := e.cache.Get(key); ok {
			e.monitor.Record("search.cache_hit", time.Since(start))
			return cached, nil
		}
	}

	outcomes := e.fanOut(ctx, query, entries, opts)

	lists := make([][]Result, 0, len(outcomes))
	for _, outcome := range outcomes {
		if outcome.err != nil {
			// A failed source contributes nothing; the batch continues.
			e.logger.Warn("retrieval source failed",
				"source", outcome.name,
				"query", query,
				"error", outcome.err)
			continue
		}
		lists = append(lists, outcome.results)
	}

	mergeStart := time.Now()
	merged := e.merger.Merge(lists, opts)
	e.monitor.Record("search.merge", time.Since(mergeStart))

	rankStart := time.Now()
	ranked := e.ranker.Rank(query, merged, opts)
	e.monitor.Record("search.rank", time.Since(rankStart))

	if e.config.MinScore > 0 {
		kept := ranked[:0]
		for _, r := range ranked {
			if r.Score >= e.config.MinScore {
				kept = append(kept, r)
			}
		}
		ranked = kept
	}

	sortResults(ranked, opts)

	if opts.IncludeHighlights {
		for i := range ranked {
			if len(ranked[i].Highlights) == 0 {
				ranked[i].Highlights = BuildHighlights(query, ranked[i].Entry)
			}
		}
	}

	elapsed := time.Since(start)
	for i := range ranked {
		ranked[i].Metadata.Rank = i + 1
		ranked[i].Metadata.ProcessingTime = elapsed
	}

	e.cache.Set(key, ranked)
	e.history.Record(query)

	e.logger.Debug("search complete",
		"query", query,
		"results", len(ranked),
		"elapsed_ms", elapsed.Milliseconds())

	return ranked, nil
}

// SearchWithAI requires the semantic source: unlike Search, a missing
// AI configuration surfaces as an error instead of a silent skip.
func (e *Engine) SearchWithAI(ctx context.Context, rawQuery string, entries []kb.Entry, opts Options) ([]Result, error) {
	if e.semantic.client == nil {
		return nil, kberrors.AINotConfigured("AI-backed search requested but no AI collaborator is configured")
	}

	opts.UseAI = Bool(true)
	return e.Search(ctx, rawQuery, entries, opts)
}

// fanOut starts all applicable sources in parallel and waits for every
// branch to settle. No branch failure aborts the batch.
func (e *Engine) fanOut(ctx context.Context, query string, entries []kb.Entry, opts Options) []sourceOutcome {
	g, gctx := errgroup.WithContext(ctx)

	// Ordered so the merger sees the full-text baseline first.
	fullTextOut := sourceOutcome{name: e.fullText.Name()}
	localOut := sourceOutcome{name: e.local.Name()}
	semanticOut := sourceOutcome{name: e.semantic.Name()}

	g.Go(func() error {
		sourceStart := time.Now()
		fullTextOut.results, fullTextOut.err = e.fullText.Search(gctx, query, entries, opts)
		e.monitor.Record("search.fulltext", time.Since(sourceStart))
		return nil
	})

	g.Go(func() error {
		sourceStart := time.Now()
		localOut.results, localOut.err = e.local.Search(gctx, query, entries, opts)
		e.monitor.Record("search.local", time.Since(sourceStart))
		return nil
	})

	runSemantic := e.semantic.Enabled(entries, opts)
	if runSemantic {
		g.Go(func() error {
			// The AI collaborator is the only source with unbounded
			// external latency, so it gets its own timeout.
			sctx, cancel := context.WithTimeout(gctx, e.config.SourceTimeout)
			defer cancel()

			sourceStart := time.Now()
			semanticOut.results, semanticOut.err = e.semantic.Search(sctx, query, entries, opts)
			e.monitor.Record("search.semantic", time.Since(sourceStart))
			return nil
		})
	}

	// Branches never return errors; Wait is a pure barrier.
	_ = g.Wait()

	outcomes := []sourceOutcome{fullTextOut, localOut}
	if runSemantic {
		outcomes = append(outcomes, semanticOut)
	}
	return outcomes
}

// sortResults applies the requested alternate ordering. Score order is
// the default and already holds after ranking; "date" and "usage" use
// the score as tie-breaker. SortOrder "asc" reverses the comparison.
func sortResults(results []Result, opts Options) {
	if opts.SortBy == "" || opts.SortBy == "score" {
		if opts.SortOrder == "asc" {
			sort.SliceStable(results, func(i, j int) bool {
				return results[i].Score < results[j].Score
			})
		}
		return
	}

	less := func(i, j int) bool { return false }
	switch opts.SortBy {
	case "date":
		less = func(i, j int) bool {
			a, b := results[i].Entry, results[j].Entry
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return results[i].Score > results[j].Score
		}
	case "usage":
		less = func(i, j int) bool {
			a, b := results[i].Entry, results[j].Entry
			if a.UsageCount != b.UsageCount {
				return a.UsageCount > b.UsageCount
			}
			return results[i].Score > results[j].Score
		}
	default:
		return
	}

	if opts.SortOrder == "asc" {
		inner := less
		less = func(i, j int) bool { return inner(j, i) }
	}
	sort.SliceStable(results, less)
}

// Suggest returns query completions for a partial query.
func (e *Engine) Suggest(partial string, limit int) []string {
	if limit <= 0 {
		limit = e.config.SuggestLimit
	}
	return e.history.Suggest(partial, limit)
}

// RecentSearches returns the most recent distinct queries.
func (e *Engine) RecentSearches(limit int) []string {
	return e.history.Recent(limit)
}

// PopularSearches returns the most frequently issued queries.
func (e *Engine) PopularSearches(limit int) []string {
	return e.history.Popular(limit)
}

// BuildIndex rebuilds the in-memory entry lookup and, when a full-text
// index is wired, the index itself.
func (e *Engine) BuildIndex(ctx context.Context, entries []kb.Entry) error {
	start := time.Now()
	defer e.monitor.Track("index.build", start)

	byID := make(map[string]kb.Entry, len(entries))
	for _, entry := range entries {
		byID[entry.ID] = entry
	}

	e.mu.Lock()
	e.entryByID = byID
	e.mu.Unlock()

	if e.index != nil {
		if err := e.index.Rebuild(ctx, entries); err != nil {
			return err
		}
	}

	// Stale cached results would reference replaced entries.
	e.cache.Clear()

	e.logger.Info("index rebuilt", "entries", len(entries), "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

// Entry looks up an entry by ID from the last built index.
func (e *Engine) Entry(id string) (kb.Entry, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entry, ok := e.entryByID[id]
	return entry, ok
}

// Explain builds a human-readable justification for one result.
func (e *Engine) Explain(rawQuery string, r Result) string {
	query := Normalize(rawQuery)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%q matched %q (score %.1f/100)\n", query, r.Entry.Title, r.Score)

	switch r.MatchType {
	case MatchExact:
		sb.WriteString("- exact phrase match in entry text\n")
	case MatchFuzzy:
		sb.WriteString("- all or most query terms found in entry text\n")
	case MatchTag:
		fmt.Fprintf(&sb, "- query overlaps entry tags (%s)\n", strings.Join(r.Entry.Tags, ", "))
	case MatchCategory:
		fmt.Fprintf(&sb, "- query names the entry category %q\n", r.Entry.Category)
	case MatchAI, MatchSemantic:
		fmt.Fprintf(&sb, "- AI collaborator ranked it relevant (confidence %.0f%%)\n", r.Metadata.Confidence*100)
	}

	if r.Explanation != "" {
		fmt.Fprintf(&sb, "- %s\n", r.Explanation)
	}
	if intent := e.ranker.Intent(query); intent != IntentGeneralInfo {
		fmt.Fprintf(&sb, "- query intent: %s\n", intent)
	}
	if r.Entry.UsageCount > 0 {
		fmt.Fprintf(&sb, "- used %d times", r.Entry.UsageCount)
		if r.Entry.Rated() {
			fmt.Fprintf(&sb, " with %.0f%% success", r.Entry.SuccessRate()*100)
		}
		sb.WriteString("\n")
	}
	if r.Metadata.Fallback {
		sb.WriteString("- full-text index unavailable, local scan used\n")
	}
	if len(r.Highlights) > 0 {
		fields := make(map[string]struct{})
		for _, h := range r.Highlights {
			fields[h.Field] = struct{}{}
		}
		names := make([]string, 0, len(fields))
		for f := range fields {
			names = append(names, f)
		}
		sort.Strings(names)
		fmt.Fprintf(&sb, "- highlights in: %s\n", strings.Join(names, ", "))
	}

	return strings.TrimRight(sb.String(), "\n")
}

// PerformanceMetrics returns latency summaries for all pipeline operations.
func (e *Engine) PerformanceMetrics() []telemetry.OperationStats {
	return e.monitor.Snapshot()
}

// Stats summarizes engine state for status commands.
type Stats struct {
	Entries      int        `json:"entries"`
	Cache        CacheStats `json:"cache"`
	History      int        `json:"history"`
	MemoizedOpts int        `json:"memoized_rewrites"`
	AIEnabled    bool       `json:"ai_enabled"`
	Indexed      bool       `json:"indexed"`
}

// Stats returns a snapshot of engine state.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	entries := len(e.entryByID)
	e.mu.RUnlock()

	return Stats{
		Entries:      entries,
		Cache:        e.cache.Stats(),
		History:      e.history.Size(),
		MemoizedOpts: e.optimizer.MemoSize(),
		AIEnabled:    e.semantic.client != nil,
		Indexed:      e.index != nil,
	}
}

// Close releases engine resources. The index, if any, is owned by the
// caller and closed separately.
func (e *Engine) Close() {
	e.cache.Close()
	e.monitor.Close()
}
