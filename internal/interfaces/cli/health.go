package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newHealthCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the server and its data sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.newClient()
			if err != nil {
				return err
			}
			resp, err := c.Health(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd, resp)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "status: %s\n", resp.Status)
			keys := make([]string, 0, len(resp.DataSources))
			for k := range resp.DataSources {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(out, "  %-22s %s\n", k, formatSource(resp.DataSources[k]))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON response")
	return cmd
}

// formatSource renders one data-source entry. API sources arrive as plain
// strings; local stores decode as objects carrying availability and size.
func formatSource(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case map[string]interface{}:
		if avail, _ := s["available"].(bool); !avail {
			return "unavailable"
		}
		path, _ := s["path"].(string)
		size, _ := s["size_mb"].(float64)
		return fmt.Sprintf("available (%s, %.1f MB)", path, size)
	default:
		return fmt.Sprintf("%v", v)
	}
}
