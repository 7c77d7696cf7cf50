package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BlackMission/collectivelink/internal/config"
	"github.com/BlackMission/collectivelink/internal/domain"
	"github.com/BlackMission/collectivelink/internal/metadata"
	"github.com/BlackMission/collectivelink/internal/providers/discord"
)

// schemaRegistrar is the part of the Discord client register-metadata uses.
type schemaRegistrar interface {
	RegisterMetadataSchema(ctx context.Context, botToken string, fields []domain.MetadataField) ([]domain.MetadataField, error)
}

type registerOptions struct {
	translations string
	dryRun       bool
}

func newRegisterMetadataCmd() *cobra.Command {
	var opts registerOptions

	cmd := &cobra.Command{
		Use:   "register-metadata",
		Short: "Register the role-connection metadata schema with Discord",
		Long: `Register the four role-connection metadata fields with Discord.

Requires DISCORD_CLIENT_ID and DISCORD_BOT_TOKEN. Registration replaces the
existing schema and is safe to repeat. Per-locale names and descriptions can
be supplied as YAML:

  is_backer:
    name:
      de: Unterstützer
    description:
      de: Hat bereits gespendet oder ist Mitglied`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := buildSchema(opts.translations)
			if err != nil {
				return err
			}
			if opts.dryRun {
				return printSchema(cmd, fields)
			}

			cfg, err := config.LoadRegistration()
			if err != nil {
				return err
			}
			client := discord.New(discord.Config{ClientID: cfg.ClientID})
			return registerSchema(cmd, client, cfg.BotToken, fields)
		},
	}

	cmd.Flags().StringVar(&opts.translations, "translations", "", "YAML file with per-locale names and descriptions")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print the schema instead of registering it")
	return cmd
}

func buildSchema(translationsPath string) ([]domain.MetadataField, error) {
	if translationsPath == "" {
		return metadata.Schema(nil), nil
	}
	tr, err := metadata.LoadTranslations(translationsPath)
	if err != nil {
		return nil, err
	}
	return metadata.Schema(tr), nil
}

func registerSchema(cmd *cobra.Command, client schemaRegistrar, botToken string, fields []domain.MetadataField) error {
	stored, err := client.RegisterMetadataSchema(cmd.Context(), botToken, fields)
	if err != nil {
		var upstream *domain.UpstreamError
		if errors.As(err, &upstream) {
			return fmt.Errorf("discord returned status %d: %w", upstream.StatusCode, err)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Discord accepted %d metadata fields:\n", len(stored))
	for _, f := range stored {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-22s type %d  %s\n", f.Key, f.Type, f.Name)
	}
	return nil
}

func printSchema(cmd *cobra.Command, fields []domain.MetadataField) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(fields)
}
