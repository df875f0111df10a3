package cmd

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbassist/kbsearch/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit       int
	offset      int
	category    string
	tags        []string
	userContext string
	sortBy      string
	sortOrder   string
	ai          bool
	noAI        bool
	force       bool
	highlights  bool
	format      string // "text", "json"
	verbose     bool
	metrics     bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the knowledge base",
		Long: `Search the knowledge base across all retrieval sources.

Full-text and heuristic retrieval always run; AI-assisted retrieval
runs when configured. Results are merged, ranked, and cached.

Examples:
  kbsearch search "s0c7 abend"
  kbsearch search "dataset not found" --category jcl --limit 5
  kbsearch search "vsam status 93" --tag vsam --highlights
  kbsearch search "db2 deadlock" --ai --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "Skip the first N results")
	cmd.Flags().StringVarP(&opts.category, "category", "c", "", "Filter by category")
	cmd.Flags().StringSliceVarP(&opts.tags, "tag", "t", nil, "Filter by tag (repeatable)")
	cmd.Flags().StringVar(&opts.userContext, "context", "", "Working context used to boost matching categories")
	cmd.Flags().StringVar(&opts.sortBy, "sort", "score", "Sort results by: score, date, usage")
	cmd.Flags().StringVar(&opts.sortOrder, "order", "desc", "Sort order: asc, desc")
	cmd.Flags().BoolVar(&opts.ai, "ai", false, "Require AI-assisted retrieval (errors when unconfigured)")
	cmd.Flags().BoolVar(&opts.noAI, "no-ai", false, "Skip AI-assisted retrieval")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Bypass the result cache")
	cmd.Flags().BoolVar(&opts.highlights, "highlights", false, "Include match highlights")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Show per-result source and match details")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", false, "Print pipeline latency after results")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	slog.Info("search_started", "query", query, "limit", opts.limit)

	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	searchOpts := search.Options{
		Limit:             opts.limit,
		Offset:            opts.offset,
		Category:          opts.category,
		Tags:              opts.tags,
		UserContext:       opts.userContext,
		SortBy:            opts.sortBy,
		SortOrder:         opts.sortOrder,
		Force:             opts.force,
		IncludeHighlights: opts.highlights,
	}
	if opts.noAI {
		searchOpts.UseAI = search.Bool(false)
	}

	var results []search.Result
	if opts.ai {
		results, err = a.engine.SearchWithAI(ctx, query, a.entries, searchOpts)
	} else {
		results, err = a.engine.Search(ctx, query, a.entries, searchOpts)
	}
	if err != nil {
		return err
	}
	slog.Info("search_complete", "query", query, "results", len(results))

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		out := renderer(cmd.OutOrStdout(), opts.verbose)
		out.Results(query, results)
	}

	if opts.metrics {
		out := renderer(cmd.OutOrStdout(), false)
		out.Metrics(a.engine.PerformanceMetrics(), a.cfg.Monitor.SlowThreshold.Std())
	}
	return nil
}
