package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/americanoutlaws/dubai/internal/version"
)

// rootCmd represents the base command; the work is done by its subcommands.
var rootCmd = &cobra.Command{
	Use:   "dubai",
	Short: "Package and sign Apple Wallet passes.",
	Long: `Builds signed .pkpass archives from pass directories.

A pass directory holds pass.json and its image assets. Every file is hashed into
manifest.json, the manifest is signed with the pass type identity from a PKCS#12
bundle, and everything is zipped into <pass-dir-name>.pkpass.`,
	SilenceUsage: true,
}

// Execute runs the dubai CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
