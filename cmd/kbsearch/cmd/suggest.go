package cmd

import (
	"strings"

	"github.com/spf13/cobra"
)

func newSuggestCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "suggest <partial-query>",
		Short: "Suggest query completions",
		Long: `Suggest completions for a partial query.

Popular past searches rank first, followed by common mainframe
troubleshooting terms.

Examples:
  kbsearch suggest s0c
  kbsearch suggest "db2 sql" --limit 3`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			partial := strings.Join(args, " ")

			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			out := renderer(cmd.OutOrStdout(), false)
			out.Suggestions(partial, a.engine.Suggest(partial, limit))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of suggestions (default from config)")

	return cmd
}
