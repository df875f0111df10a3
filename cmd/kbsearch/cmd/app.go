package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/kbassist/kbsearch/internal/ai"
	"github.com/kbassist/kbsearch/internal/config"
	kberrors "github.com/kbassist/kbsearch/internal/errors"
	"github.com/kbassist/kbsearch/internal/kb"
	"github.com/kbassist/kbsearch/internal/search"
	"github.com/kbassist/kbsearch/internal/store"
	"github.com/kbassist/kbsearch/internal/telemetry"
	"github.com/kbassist/kbsearch/internal/ui"
)

// app bundles the wired search stack for one CLI invocation.
type app struct {
	cfg     *config.Config
	entries []kb.Entry
	index   *store.EntryIndex
	engine  *search.Engine
	monitor *telemetry.PerformanceMonitor
}

// openApp loads config and entries and wires the search engine. The
// full-text index and AI collaborator are optional: when either is
// unavailable the engine degrades to the remaining sources.
func openApp(ctx context.Context, requireEntries bool) (*app, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, err
	}

	entries, err := kb.LoadFile(cfg.KB.DataPath)
	if err != nil {
		if requireEntries {
			return nil, kberrors.ConfigError(
				fmt.Sprintf("cannot load knowledge base from %s", cfg.KB.DataPath), err).
				WithSuggestion("set kb.data_path in .kbsearch.yaml or KBSEARCH_DATA_PATH")
		}
		slog.Warn("knowledge base not loaded", "path", cfg.KB.DataPath, "error", err)
	}

	a := &app{
		cfg:     cfg,
		entries: entries,
		monitor: telemetry.NewPerformanceMonitor(telemetry.MonitorConfig{
			SampleCapacity: cfg.Monitor.SampleCapacity,
			SlowThreshold:  cfg.Monitor.SlowThreshold.Std(),
			ReportInterval: cfg.Monitor.ReportInterval.Std(),
		}, slog.Default()),
	}

	opts := []search.Option{
		search.WithLogger(slog.Default()),
		search.WithMonitor(a.monitor),
	}

	index, err := store.NewEntryIndex(cfg.KB.IndexPath, slog.Default())
	if err != nil {
		// Local scan still works without the index.
		slog.Warn("full-text index unavailable", "path", cfg.KB.IndexPath, "error", err)
	} else {
		a.index = index
		opts = append(opts, search.WithIndex(index))
	}

	if cfg.AI.Enabled {
		opts = append(opts, search.WithAIClient(newAIClient(cfg)))
	}

	a.engine = search.NewEngine(search.EngineConfig{
		MaxResults:         cfg.Search.MaxResults,
		MinScore:           cfg.Search.MinScore,
		SuggestLimit:       cfg.Search.SuggestLimit,
		SourceTimeout:      cfg.Search.SourceTimeout.Std(),
		CacheMaxSize:       cfg.Cache.MaxSize,
		CacheTTL:           cfg.Cache.TTL.Std(),
		CacheSweepInterval: cfg.Cache.SweepInterval.Std(),
	}, opts...)

	// A stale or empty index would silently miss entries.
	if a.index != nil {
		count, err := a.index.Count(ctx)
		if err == nil && count != len(entries) {
			if err := a.engine.BuildIndex(ctx, entries); err != nil {
				slog.Warn("index rebuild failed", "error", err)
			}
		}
	}

	return a, nil
}

func newAIClient(cfg *config.Config) *ai.Client {
	return ai.NewClient(ai.Config{
		Host:        cfg.AI.Host,
		Model:       cfg.AI.Model,
		APIKeyEnv:   cfg.AI.APIKeyEnv,
		Timeout:     cfg.AI.Timeout.Std(),
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
	}, slog.Default())
}

func (a *app) close() {
	a.engine.Close()
	if a.index != nil {
		_ = a.index.Close()
	}
}

// renderer builds the terminal renderer for a command's output stream.
func renderer(out io.Writer, verbose bool) *ui.Renderer {
	opts := []ui.Option{ui.WithVerbose(verbose)}
	if noColor || ui.DetectNoColor() {
		opts = append(opts, ui.WithColor(false))
	}
	return ui.NewRenderer(out, opts...)
}

// formatError renders an error for the terminal, with hint and code
// lines for structured errors.
func formatError(err error) string {
	return kberrors.FormatForCLI(err)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
