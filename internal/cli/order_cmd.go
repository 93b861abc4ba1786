package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/statspub/internal/lineage"
)

type orderOutput struct {
	Lineages int           `json:"lineages"`
	Order    []lineage.Ref `json:"order"`
}

func newDeletionOrderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deletion-order FILE",
		Short: "Print the order in which versions can be deleted",
		Long: `Read a JSON or YAML list of {id, previousVersionId} records and print them in
an order that deletes every successor before its predecessor. Lineages are
emitted one after another, ordered by root id. A cyclic chain is an error and
prints nothing.`,
		Example: `  datasetctl deletion-order refs.yaml
  datasetctl deletion-order refs.json -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var refs []lineage.Ref
			if err := decodeFile(cmd.InOrStdin(), args[0], &refs); err != nil {
				return err
			}

			order, err := lineage.NewOrder(refs)
			if err != nil {
				return err
			}
			sorted := order.Sorted()
			if sorted == nil {
				sorted = []lineage.Ref{}
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), orderOutput{Lineages: order.Lineages(), Order: sorted})
			}
			rows := make([][]string, len(sorted))
			for i, r := range sorted {
				rows[i] = []string{strconv.Itoa(i + 1), r.ID, r.PreviousVersionID}
			}
			return printTable(cmd.OutOrStdout(), []string{"#", "id", "previous"}, rows)
		},
	}
}
