package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	radartypes "github.com/turtacn/TechRadar-Intelligence/pkg/types/radar"
)

// maxSummaryActors bounds the actor table of the terminal digest.
const maxSummaryActors = 5

func newRadarCmd(opts *rootOptions) *cobra.Command {
	var (
		years  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "radar <technology>",
		Short: "Run the full radar analysis for a technology term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.newClient()
			if err != nil {
				return err
			}
			resp, err := c.Radar(cmd.Context(), radartypes.RadarRequest{
				Technology: args[0],
				Years:      years,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd, resp)
			}
			printRadarSummary(cmd, resp)
			return nil
		},
	}

	cmd.Flags().IntVar(&years, "years", radartypes.DefaultYears, "analysis window in years")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON response")
	return cmd
}

// printRadarSummary renders the terminal digest of a radar response:
// lifecycle phase, activity totals, actor concentration, funding, and the
// provenance block with its warnings.
func printRadarSummary(cmd *cobra.Command, resp *radartypes.RadarResponse) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Technology      %s\n", resp.Technology)
	fmt.Fprintf(out, "Period          %s\n", resp.AnalysisPeriod)

	if m := resp.Maturity; m != nil && m.Phase != "" {
		fmt.Fprintf(out, "Phase           %s (%s), confidence %.2f\n", m.Phase, m.PhaseDE, m.Confidence)
	}
	if l := resp.Landscape; l != nil {
		fmt.Fprintf(out, "Activity        %d patents, %d projects, %d publications\n",
			l.TotalPatents, l.TotalProjects, l.TotalPublications)
	}
	if c := resp.Competitive; c != nil && len(c.TopActors) > 0 {
		fmt.Fprintf(out, "Concentration   HHI %.0f (%s), top-3 share %.1f%%\n",
			c.HHIIndex, c.ConcentrationLevel, c.Top3Share*100)
		fmt.Fprintln(out, "Top actors")
		for i, a := range c.TopActors {
			if i == maxSummaryActors {
				break
			}
			fmt.Fprintf(out, "  %2d. %-40s %5d  %5.1f%%\n", i+1, truncate(a.Name, 40), a.Count, a.Share*100)
		}
	}
	if f := resp.Funding; f != nil && f.TotalFundingEUR > 0 {
		fmt.Fprintf(out, "EU funding      %.1f M EUR, avg project %.1f M EUR\n",
			f.TotalFundingEUR/1e6, f.AvgProjectSize/1e6)
	}
	if e := resp.Explainability; e != nil {
		if len(e.SourcesUsed) > 0 {
			fmt.Fprintf(out, "Sources         %s\n", strings.Join(e.SourcesUsed, ", "))
		}
		fmt.Fprintf(out, "Query time      %d ms\n", e.QueryTimeMS)
		for _, w := range e.Warnings {
			fmt.Fprintf(out, "Warning         %s\n", w)
		}
		for _, a := range e.APIAlerts {
			fmt.Fprintf(out, "Alert           [%s] %s: %s\n", a.Level, a.Source, a.Message)
		}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
