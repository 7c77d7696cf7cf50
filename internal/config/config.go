package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/BlackMission/collectivelink/internal/domain"
)

// SecretKeyBytes is the required length of the decoded HMAC secret.
const SecretKeyBytes = 32

// Config is the top-level application configuration. It is built once at
// startup and passed by value to constructors.
type Config struct {
	Server     ServerConfig
	Secrets    SecretsConfig
	Flow       FlowConfig
	Collective ProviderConfig
	Discord    DiscordConfig
	Telemetry  TelemetryConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int
	Host     string
	LogLevel string
}

// SecretsConfig holds decoded key material.
type SecretsConfig struct {
	StateKey []byte
}

// FlowConfig holds the lifetimes of the flow's client-side state.
type FlowConfig struct {
	StateTTL    time.Duration
	NonceMaxAge time.Duration
}

// ProviderConfig holds OAuth client settings for one provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Slug scopes the donation query to one collective (collective platform only).
	Slug string
}

// DiscordConfig holds Discord settings.
type DiscordConfig struct {
	ProviderConfig
	// WebhookURL receives link notifications; empty disables them.
	WebhookURL string
	// BotToken is only used by schema registration.
	BotToken string
}

// TelemetryConfig holds tracing settings.
type TelemetryConfig struct {
	OTLPEndpoint string
}

type rawEnv struct {
	Port     int    `env:"PORT"      envDefault:"8080"`
	Host     string `env:"HOST"      envDefault:"0.0.0.0"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	SecretKey   string        `env:"SECRET_KEY"`
	StateTTL    time.Duration `env:"STATE_TTL"     envDefault:"15m"`
	NonceMaxAge time.Duration `env:"NONCE_MAX_AGE" envDefault:"25h"`

	CollectiveClientID     string `env:"OPEN_COLLECTIVE_CLIENT_ID"`
	CollectiveClientSecret string `env:"OPEN_COLLECTIVE_CLIENT_SECRET"`
	CollectiveRedirectURL  string `env:"OPEN_COLLECTIVE_REDIRECT_URL"`
	CollectiveSlug         string `env:"OPEN_COLLECTIVE_SLUG"`

	DiscordClientID     string `env:"DISCORD_CLIENT_ID"`
	DiscordClientSecret string `env:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectURL  string `env:"DISCORD_REDIRECT_URL"`
	DiscordWebhookURL   string `env:"DISCORD_WEBHOOK_URL"`
	DiscordBotToken     string `env:"DISCORD_BOT_TOKEN"`

	OTLPEndpoint string `env:"OTEL_ENDPOINT"`
}

// Load reads and validates the configuration needed to serve the linking flow.
func Load() (Config, error) {
	raw, err := parseEnv()
	if err != nil {
		return Config{}, err
	}
	cfg, err := build(raw)
	if err != nil {
		return Config{}, err
	}
	if err := validateServe(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadRegistration reads the subset of configuration needed to register the
// role-connection metadata schema.
func LoadRegistration() (DiscordConfig, error) {
	raw, err := parseEnv()
	if err != nil {
		return DiscordConfig{}, err
	}
	if raw.DiscordClientID == "" {
		return DiscordConfig{}, fmt.Errorf("%w: DISCORD_CLIENT_ID is required", domain.ErrMissingConfig)
	}
	if raw.DiscordBotToken == "" {
		return DiscordConfig{}, fmt.Errorf("%w: DISCORD_BOT_TOKEN is required", domain.ErrMissingConfig)
	}
	return DiscordConfig{
		ProviderConfig: ProviderConfig{ClientID: raw.DiscordClientID},
		BotToken:       raw.DiscordBotToken,
	}, nil
}

func parseEnv() (rawEnv, error) {
	var raw rawEnv
	if err := env.Parse(&raw); err != nil {
		return rawEnv{}, fmt.Errorf("%w: parse env: %v", domain.ErrInvalidConfig, err)
	}
	return raw, nil
}

func build(raw rawEnv) (Config, error) {
	var key []byte
	if raw.SecretKey != "" {
		k, err := DecodeSecretKey(raw.SecretKey)
		if err != nil {
			return Config{}, err
		}
		key = k
	}

	return Config{
		Server: ServerConfig{
			Port:     raw.Port,
			Host:     raw.Host,
			LogLevel: strings.ToLower(strings.TrimSpace(raw.LogLevel)),
		},
		Secrets: SecretsConfig{StateKey: key},
		Flow: FlowConfig{
			StateTTL:    raw.StateTTL,
			NonceMaxAge: raw.NonceMaxAge,
		},
		Collective: ProviderConfig{
			ClientID:     raw.CollectiveClientID,
			ClientSecret: raw.CollectiveClientSecret,
			RedirectURL:  raw.CollectiveRedirectURL,
			Slug:         raw.CollectiveSlug,
		},
		Discord: DiscordConfig{
			ProviderConfig: ProviderConfig{
				ClientID:     raw.DiscordClientID,
				ClientSecret: raw.DiscordClientSecret,
				RedirectURL:  raw.DiscordRedirectURL,
			},
			WebhookURL: strings.TrimSpace(raw.DiscordWebhookURL),
			BotToken:   raw.DiscordBotToken,
		},
		Telemetry: TelemetryConfig{OTLPEndpoint: raw.OTLPEndpoint},
	}, nil
}

// DecodeSecretKey decodes a standard base64 secret and checks its length.
func DecodeSecretKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: SECRET_KEY must be base64: %v", domain.ErrInvalidConfig, err)
	}
	if len(key) != SecretKeyBytes {
		return nil, fmt.Errorf("%w: SECRET_KEY must decode to %d bytes, got %d", domain.ErrInvalidConfig, SecretKeyBytes, len(key))
	}
	return key, nil
}

func validateServe(cfg Config) error {
	required := []struct {
		name  string
		value string
	}{
		{"OPEN_COLLECTIVE_CLIENT_ID", cfg.Collective.ClientID},
		{"OPEN_COLLECTIVE_CLIENT_SECRET", cfg.Collective.ClientSecret},
		{"OPEN_COLLECTIVE_REDIRECT_URL", cfg.Collective.RedirectURL},
		{"OPEN_COLLECTIVE_SLUG", cfg.Collective.Slug},
		{"DISCORD_CLIENT_ID", cfg.Discord.ClientID},
		{"DISCORD_CLIENT_SECRET", cfg.Discord.ClientSecret},
		{"DISCORD_REDIRECT_URL", cfg.Discord.RedirectURL},
	}
	if len(cfg.Secrets.StateKey) == 0 {
		return fmt.Errorf("%w: SECRET_KEY is required", domain.ErrMissingConfig)
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%w: %s is required", domain.ErrMissingConfig, r.name)
		}
	}

	for _, u := range []struct {
		name  string
		value string
	}{
		{"OPEN_COLLECTIVE_REDIRECT_URL", cfg.Collective.RedirectURL},
		{"DISCORD_REDIRECT_URL", cfg.Discord.RedirectURL},
		{"DISCORD_WEBHOOK_URL", cfg.Discord.WebhookURL},
	} {
		if u.value == "" {
			continue
		}
		parsed, err := url.Parse(u.value)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%w: %s must be an absolute URL", domain.ErrInvalidConfig, u.name)
		}
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("%w: PORT must be between 1 and 65535", domain.ErrInvalidConfig)
	}
	if cfg.Flow.StateTTL <= 0 {
		return fmt.Errorf("%w: STATE_TTL must be positive", domain.ErrInvalidConfig)
	}
	if cfg.Flow.NonceMaxAge < cfg.Flow.StateTTL {
		return fmt.Errorf("%w: NONCE_MAX_AGE must not be shorter than STATE_TTL", domain.ErrInvalidConfig)
	}
	switch cfg.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: LOG_LEVEL must be one of debug, info, warn, error", domain.ErrInvalidConfig)
	}
	return nil
}
