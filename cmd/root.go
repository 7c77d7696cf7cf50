package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// serviceName identifies the process in traces.
const serviceName = "collectivelink"

// rootCmd represents the base command. It is the entry point when the
// application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "collectivelink",
	Short: "Link Open Collective donations to Discord linked roles",
	Long: `collectivelink chains the Open Collective and Discord OAuth2 flows so a
Discord user can prove their donations and membership, and publishes the
result as Discord role-connection metadata.`,
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// It is called from main to inject the version set at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "collectivelink version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newRegisterMetadataCmd())
	rootCmd.AddCommand(newKeygenCmd())
	rootCmd.AddCommand(newVersionCmd())
}
