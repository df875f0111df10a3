package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Rebuild the full-text index",
		Long: `Rebuild the full-text index from the knowledge base file.

The index is rebuilt automatically when it falls out of sync with the
entries; run this after bulk edits to rebuild eagerly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()

			if a.index == nil {
				return fmt.Errorf("full-text index unavailable at %s", a.cfg.KB.IndexPath)
			}

			if err := a.engine.BuildIndex(ctx, a.entries); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d entries into %s\n",
				len(a.entries), a.cfg.KB.IndexPath)
			return nil
		},
	}

	return cmd
}
