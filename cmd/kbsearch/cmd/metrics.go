package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbassist/kbsearch/internal/search"
	"github.com/kbassist/kbsearch/internal/telemetry"
)

func newMetricsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show search pipeline latency and cache statistics",
		Long: `Show per-operation latency (mean, p95, max over the last 100
samples) and result cache hit rates for this invocation.

Operations exceeding the configured slow threshold are flagged.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			metrics := a.engine.PerformanceMetrics()
			cache := a.engine.Stats().Cache

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Operations []telemetry.OperationStats `json:"operations"`
					Cache      search.CacheStats          `json:"cache"`
				}{metrics, cache})
			}

			out := renderer(cmd.OutOrStdout(), false)
			out.Metrics(metrics, a.cfg.Monitor.SlowThreshold.Std())
			fmt.Fprintf(cmd.OutOrStdout(), "\ncache: %d hits, %d misses, %d entries\n",
				cache.Hits, cache.Misses, cache.Size)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}
