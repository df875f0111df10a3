package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbassist/kbsearch/internal/search"
)

func newExplainCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "explain <query>",
		Short: "Explain why the top results matched",
		Long: `Run a search and report, per result, which signals produced its
score: match type, query intent, usage history, and highlight fields.

Examples:
  kbsearch explain "s0c7 abend"
  kbsearch explain "dataset not found" --limit 1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			ctx := cmd.Context()

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()

			results, err := a.engine.Search(ctx, query, a.entries, search.Options{
				Limit:             limit,
				IncludeHighlights: true,
			})
			if err != nil {
				return err
			}

			out := renderer(cmd.OutOrStdout(), false)
			if len(results) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No results for %q\n", query)
				return nil
			}
			for i, r := range results {
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				out.Explanation(a.engine.Explain(query, r))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 3, "Number of results to explain")

	return cmd
}
