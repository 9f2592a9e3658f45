package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSuggestCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "suggest <prefix>",
		Short: "Suggest technology terms for a prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.newClient()
			if err != nil {
				return err
			}
			suggestions, err := c.Suggestions(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(suggestions) == 0 {
				fmt.Fprintln(out, "no suggestions")
				return nil
			}
			for _, s := range suggestions {
				fmt.Fprintln(out, s)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of suggestions (0 uses the server default)")
	return cmd
}
