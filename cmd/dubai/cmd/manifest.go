package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/americanoutlaws/dubai/internal/service/packager"
)

// manifestFormat is the output format of the manifest subcommand.
var manifestFormat string

// manifestCmd prints the manifest of a pass directory or archive.
var manifestCmd = &cobra.Command{
	Use:   "manifest [pass-dir|archive.pkpass]",
	Short: "Print the manifest of a pass directory or an existing archive.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return packager.RunManifest(context.Background(), &packager.ManifestOptions{
			Path:   args[0],
			Format: manifestFormat,
			Stdout: cmd.OutOrStdout(),
		})
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	manifestCmd.Flags().StringVarP(&manifestFormat, "format", "f", packager.FormatJSON, "output format: json or table")

	rootCmd.AddCommand(manifestCmd)
}
