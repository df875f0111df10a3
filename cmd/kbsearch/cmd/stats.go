package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show knowledge base and engine statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			stats := a.engine.Stats()
			if stats.Entries == 0 {
				stats.Entries = len(a.entries)
			}

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "data:    %s\n", a.cfg.KB.DataPath)
			fmt.Fprintf(cmd.OutOrStdout(), "index:   %s\n", a.cfg.KB.IndexPath)
			renderer(cmd.OutOrStdout(), false).Stats(stats)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}
