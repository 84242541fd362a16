package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/americanoutlaws/dubai/internal/config"
	"github.com/americanoutlaws/dubai/internal/service/packager"
)

// packOptions holds flag values of the pack subcommand.
var packOptions packager.Options

// packCmd packages one or more pass directories.
var packCmd = &cobra.Command{
	Use:   "pack [pass-dir...]",
	Short: "Package pass directories into signed .pkpass archives.",
	Long: `Packages every given pass directory into a signed .pkpass archive.

Settings are read from the configuration file when it exists; flags override them.
The bundle password falls back to the environment variable named by password_env
(DUBAI_CERTIFICATE_PASSWORD by default). The path of each written archive is printed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Setup graceful shutdown handling.
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		options := packOptions
		options.PassDirs = args
		options.Stdout = cmd.OutOrStdout()

		return packager.Run(ctx, &options)
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := packCmd.Flags()
	flags.StringVarP(&packOptions.ConfigPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVar(&packOptions.Certificate, "certificate", "", "path to the PKCS#12 pass type identity bundle")
	flags.StringVar(&packOptions.Password, "password", "", "password of the identity bundle")
	flags.StringVarP(&packOptions.OutputPath, "output", "o", "", "archive path (single pass directory only)")
	flags.StringVar(&packOptions.OutputDir, "output-dir", "", "directory receiving the archives")
	flags.StringVar(&packOptions.Compression, "compression", "", "zip compression: deflate or store")
	flags.StringVar(&packOptions.LogLevel, "log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(packCmd)
}
