package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kbassist/kbsearch/internal/search"
	"github.com/kbassist/kbsearch/internal/telemetry"
)

const previewChars = 120

// Renderer writes search output to a terminal or pipe. Styling is
// dropped automatically for non-TTY output, CI, and NO_COLOR.
type Renderer struct {
	out     io.Writer
	styles  Styles
	verbose bool
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithColor forces styled or plain output regardless of TTY detection.
func WithColor(enabled bool) Option {
	return func(r *Renderer) { r.styles = GetStyles(!enabled) }
}

// WithVerbose includes source, match type, and confidence per result.
func WithVerbose(verbose bool) Option {
	return func(r *Renderer) { r.verbose = verbose }
}

// NewRenderer creates a renderer for out.
func NewRenderer(out io.Writer, opts ...Option) *Renderer {
	r := &Renderer{
		out:    out,
		styles: GetStyles(!UseColor(out)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Results renders a result list with a summary header.
func (r *Renderer) Results(query string, results []search.Result) {
	if len(results) == 0 {
		fmt.Fprintf(r.out, "No results for %q\n", query)
		return
	}

	elapsed := results[0].Metadata.ProcessingTime
	fmt.Fprintf(r.out, "%d results for %q (%s)\n\n",
		len(results), query, r.styles.Dim.Render(formatDuration(elapsed)))

	for _, res := range results {
		r.Result(res)
	}
}

// Result renders a single result block.
func (r *Renderer) Result(res search.Result) {
	score := r.styles.Score(res.Score).Render(fmt.Sprintf("%5.1f", res.Score))
	title := r.styles.Title.Render(res.Entry.Title)

	fmt.Fprintf(r.out, "%3d. %s  %s", res.Metadata.Rank, score, title)
	if res.Entry.Category != "" {
		fmt.Fprintf(r.out, "  %s", r.styles.Label.Render("["+res.Entry.Category+"]"))
	}
	fmt.Fprintln(r.out)

	if preview := r.preview(res); preview != "" {
		fmt.Fprintf(r.out, "     %s\n", r.styles.Snippet.Render(preview))
	}
	if len(res.Entry.Tags) > 0 {
		fmt.Fprintf(r.out, "     %s\n", r.styles.Dim.Render("tags: "+strings.Join(res.Entry.Tags, ", ")))
	}

	if r.verbose {
		meta := fmt.Sprintf("source: %s  match: %s", res.Metadata.Source, res.MatchType)
		if res.Metadata.Confidence > 0 {
			meta += fmt.Sprintf("  confidence: %.0f%%", res.Metadata.Confidence*100)
		}
		if res.Metadata.Fallback {
			meta += "  (index fallback)"
		}
		fmt.Fprintf(r.out, "     %s\n", r.styles.Dim.Render(meta))
		if res.Explanation != "" {
			fmt.Fprintf(r.out, "     %s\n", r.styles.Dim.Render(res.Explanation))
		}
	}

	fmt.Fprintln(r.out)
}

// preview picks the best one-line summary for a result: the index
// snippet when present, otherwise the start of the problem text.
func (r *Renderer) preview(res search.Result) string {
	if res.Metadata.Snippet != "" {
		return oneLine(res.Metadata.Snippet)
	}
	text := oneLine(res.Entry.Problem)
	if len(text) > previewChars {
		text = text[:previewChars] + "..."
	}
	return text
}

// Suggestions renders query completions.
func (r *Renderer) Suggestions(partial string, suggestions []string) {
	if len(suggestions) == 0 {
		fmt.Fprintf(r.out, "No suggestions for %q\n", partial)
		return
	}

	fmt.Fprintf(r.out, "Suggestions for %q:\n", partial)
	for _, s := range suggestions {
		fmt.Fprintf(r.out, "  %s\n", s)
	}
}

// Explanation renders an Explain report.
func (r *Renderer) Explanation(text string) {
	fmt.Fprintln(r.out, text)
}

// Stats renders an engine status summary.
func (r *Renderer) Stats(stats search.Stats) {
	label := r.styles.Label.Render

	fmt.Fprintf(r.out, "%s %d\n", label("entries:"), stats.Entries)
	fmt.Fprintf(r.out, "%s %v\n", label("indexed:"), stats.Indexed)
	fmt.Fprintf(r.out, "%s %v\n", label("ai:"), stats.AIEnabled)
	fmt.Fprintf(r.out, "%s %d items, %d hits, %d misses\n",
		label("cache:"), stats.Cache.Size, stats.Cache.Hits, stats.Cache.Misses)
	fmt.Fprintf(r.out, "%s %d searches\n", label("history:"), stats.History)
}

// Metrics renders per-operation latency summaries.
func (r *Renderer) Metrics(stats []telemetry.OperationStats, slowThreshold time.Duration) {
	if len(stats) == 0 {
		fmt.Fprintln(r.out, "No operations recorded yet")
		return
	}

	fmt.Fprintf(r.out, "%-24s %8s %10s %10s %10s\n", "OPERATION", "COUNT", "MEAN", "P95", "MAX")
	for _, op := range stats {
		line := fmt.Sprintf("%-24s %8d %10s %10s %10s",
			op.Operation, op.Count,
			formatDuration(op.Mean), formatDuration(op.P95), formatDuration(op.Max))
		if op.Slow(slowThreshold) {
			line = r.styles.Warning.Render(line + "  slow")
		}
		fmt.Fprintln(r.out, line)
	}
}

// Errorf renders an error line.
func (r *Renderer) Errorf(format string, args ...any) {
	fmt.Fprintln(r.out, r.styles.Error.Render(fmt.Sprintf(format, args...)))
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
