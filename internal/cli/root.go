// Package cli implements datasetctl, the operator tool for inspecting
// version files offline and migrating the database.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/statspub/internal/core"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		reportError(rootCmd, err)
		return 1
	}
	return 0
}

// reportError prints err as JSON when --output json is set, otherwise as a
// line on stderr.
func reportError(rootCmd *cobra.Command, err error) {
	output, _ := rootCmd.PersistentFlags().GetString("output")
	if output == "json" {
		errObj := map[string]any{"error": err.Error()}
		if msg := core.MapError(err); msg.Code != "" {
			errObj["code"] = msg.Code
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(errObj)
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

func newRootCmd() *cobra.Command {
	var output string

	rootCmd := &cobra.Command{
		Use:           "datasetctl",
		Short:         "Dataset version tooling",
		Long:          "Resolve version tokens, order versions for deletion and summarise mapping plans from JSON or YAML files.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOutputFormat(output)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, json)")

	rootCmd.AddCommand(newResolveCmd())
	rootCmd.AddCommand(newDeletionOrderCmd())
	rootCmd.AddCommand(newMappingSummaryCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// errNotFound is returned when a token matches no version.
var errNotFound = errors.New("not found")

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"version": version,
					"commit":  commit,
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "datasetctl version %s (commit: %s)\n", version, commit)
			return nil
		},
	}
}
