package cmd

import (
	"github.com/spf13/cobra"

	"github.com/BlackMission/collectivelink/internal/keygen"
)

func newKeygenCmd() *cobra.Command {
	cfg := keygen.Config{Bytes: keygen.DefaultBytes}

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a SECRET_KEY for signing state tokens",
		Long: `Generate a random key and print it as a SECRET_KEY assignment.
The server only accepts 32-byte keys; --bytes exists for testing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return keygen.Run(cfg, cmd.OutOrStdout(), nil)
		},
	}
	cmd.Flags().IntVar(&cfg.Bytes, "bytes", cfg.Bytes, "number of random bytes")
	return cmd
}
