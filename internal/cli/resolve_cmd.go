package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/statspub/internal/versioning"
)

func newResolveCmd() *cobra.Command {
	var versionsFile string

	cmd := &cobra.Command{
		Use:   "resolve TOKEN",
		Short: "Resolve a version token against a versions file",
		Long: `Resolve a version token such as 1.2, v2.*, 3 or * against a JSON or YAML
list of versions and print the greatest match. Exits non-zero with "not found"
when nothing matches or the token cannot be read.`,
		Example: `  datasetctl resolve '1.*' --versions versions.yaml
  cat versions.json | datasetctl resolve 2.1 --versions - -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := readVersions(cmd.InOrStdin(), versionsFile)
			if err != nil {
				return err
			}

			match, ok := versioning.SelectToken(entries, args[0])
			if !ok {
				return fmt.Errorf("%q: %w", args[0], errNotFound)
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), match)
			}
			return printTable(cmd.OutOrStdout(),
				[]string{"id", "version", "status"},
				[][]string{{match.ID, match.number.String(), match.Status}})
		},
	}

	cmd.Flags().StringVar(&versionsFile, "versions", "", "JSON or YAML versions file, - for stdin")
	_ = cmd.MarkFlagRequired("versions")
	return cmd
}
