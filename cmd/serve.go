package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/BlackMission/collectivelink/internal/config"
	"github.com/BlackMission/collectivelink/internal/logging"
	"github.com/BlackMission/collectivelink/internal/notify"
	"github.com/BlackMission/collectivelink/internal/providers/discord"
	"github.com/BlackMission/collectivelink/internal/providers/opencollective"
	"github.com/BlackMission/collectivelink/internal/server"
	"github.com/BlackMission/collectivelink/internal/state"
	"github.com/BlackMission/collectivelink/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the linked-role flow",
		Long: `Serve the linked-role flow over HTTP.

Configuration is read from the environment: SECRET_KEY,
OPEN_COLLECTIVE_CLIENT_ID, OPEN_COLLECTIVE_CLIENT_SECRET,
OPEN_COLLECTIVE_REDIRECT_URL, OPEN_COLLECTIVE_SLUG, DISCORD_CLIENT_ID,
DISCORD_CLIENT_SECRET, DISCORD_REDIRECT_URL and optionally
DISCORD_WEBHOOK_URL, HOST, PORT, STATE_TTL, NONCE_MAX_AGE, LOG_LEVEL and
OTEL_ENDPOINT.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Init(logging.ParseLevel(cfg.Server.LogLevel), os.Stderr)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: GetVersion(),
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		return err
	}

	codec := state.NewCodec(cfg.Secrets.StateKey, cfg.Flow.StateTTL)
	notifier := notify.NewWebhook(cfg.Discord.WebhookURL, nil)
	if !notifier.Enabled() {
		logging.Info("Serve", "DISCORD_WEBHOOK_URL is empty, link notifications are disabled")
	}

	srv := server.New(server.Config{
		Host:    cfg.Server.Host,
		Port:    cfg.Server.Port,
		Version: GetVersion(),
	}, server.Deps{
		Binder: state.NewBinder(codec, cfg.Flow.NonceMaxAge),
		Collective: opencollective.New(opencollective.Config{
			ClientID:     cfg.Collective.ClientID,
			ClientSecret: cfg.Collective.ClientSecret,
			RedirectURL:  cfg.Collective.RedirectURL,
			Slug:         cfg.Collective.Slug,
		}),
		Discord: discord.New(discord.Config{
			ClientID:     cfg.Discord.ClientID,
			ClientSecret: cfg.Discord.ClientSecret,
			RedirectURL:  cfg.Discord.RedirectURL,
		}),
		Notifier: notifier,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logging.Info("Serve", "Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logging.Warn("Serve", "Flushing traces: %v", err)
	}
	logging.Info("Serve", "Server stopped")
	return nil
}
