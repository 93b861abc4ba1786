package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/statspub/internal/mapping"
	"github.com/JonMunkholm/statspub/internal/versioning"
)

type mappingOutput struct {
	Summary            mapping.Summary    `json:"summary"`
	Tally              mapping.Tally      `json:"tally"`
	NeedsManualReview  bool               `json:"needsManualReview"`
	HasBreakingChanges bool               `json:"hasBreakingChanges"`
	SuggestedVersion   *versioning.Number `json:"suggestedVersion,omitempty"`
}

func newMappingSummaryCmd() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "mapping-summary FILE",
		Short: "Summarise a mapping plan",
		Long: `Read a JSON or YAML mapping plan and print the distinct classification pairs
of its locations and filters, whether it needs manual review and whether it
contains breaking changes. With --from, also suggest the next version number.`,
		Example: `  datasetctl mapping-summary plan.yaml --from 1.4.2`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var plan mapping.Plan
			if err := decodeFile(cmd.InOrStdin(), args[0], &plan); err != nil {
				return err
			}

			summary, err := mapping.Summarize(plan)
			if err != nil {
				return err
			}
			tally, err := mapping.Count(plan)
			if err != nil {
				return err
			}

			out := mappingOutput{
				Summary:            summary,
				Tally:              tally,
				NeedsManualReview:  summary.NeedsManualReview(),
				HasBreakingChanges: summary.HasBreakingChanges(),
			}
			if from != "" {
				prev, err := versioning.ParseNumber(from)
				if err != nil {
					return fmt.Errorf("--from: %w", err)
				}
				next := mapping.NextVersion(prev, summary)
				out.SuggestedVersion = &next
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), out)
			}
			return printMappingTable(cmd, out)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "source version number, enables the next-version suggestion")
	return cmd
}

func printMappingTable(cmd *cobra.Command, out mappingOutput) error {
	w := cmd.OutOrStdout()
	var rows [][]string
	for _, p := range out.Summary.Locations {
		rows = append(rows, []string{"location", p.Level.String(), p.Option.String()})
	}
	for _, p := range out.Summary.Filters {
		rows = append(rows, []string{"filter", p.Filter.String(), p.Option.String()})
	}
	if err := printTable(w, []string{"kind", "node", "option"}, rows); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d auto-mapped, %d need review\n", out.Tally.AutoMapped, out.Tally.NeedReview())
	fmt.Fprintf(w, "needs manual review: %s\n", strconv.FormatBool(out.NeedsManualReview))
	fmt.Fprintf(w, "breaking changes: %s\n", strconv.FormatBool(out.HasBreakingChanges))
	if out.SuggestedVersion != nil {
		fmt.Fprintf(w, "suggested version: %s\n", out.SuggestedVersion)
	}
	return nil
}
