package discord

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"

	"github.com/BlackMission/collectivelink/internal/auth"
	"github.com/BlackMission/collectivelink/internal/domain"
	"github.com/BlackMission/collectivelink/internal/providers"
)

const (
	providerName        = "Discord"
	defaultAuthEndpoint = "https://discord.com/oauth2/authorize"
	defaultAPIBase      = "https://discord.com/api/v10"

	// PlatformName is shown on the user's Discord profile next to the connection.
	PlatformName = "Open Collective"
)

// DefaultScopes are the scopes needed to read the user and write its role connection.
var DefaultScopes = []string{"role_connections.write", "identify"}

// Config holds Discord OAuth2 settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// Provider implements the Discord leg of the linking flow.
type Provider struct {
	cfg        Config
	oauth      *oauth2.Config
	httpClient *http.Client
	apiBase    string
}

var _ auth.RoleConnections = (*Provider)(nil)

// New creates a Discord provider.
func New(cfg Config) *Provider {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	return &Provider{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   defaultAuthEndpoint,
				TokenURL:  defaultAPIBase + "/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: http.DefaultClient,
		apiBase:    defaultAPIBase,
	}
}

// AuthURL returns the authorize URL carrying stateToken. Consent is always
// prompted so the user sees which connection is being written.
func (p *Provider) AuthURL(stateToken string) string {
	return p.oauth.AuthCodeURL(stateToken, oauth2.SetAuthURLParam("prompt", "consent"))
}

// ExchangeCode trades an authorization code for an access token.
func (p *Provider) ExchangeCode(ctx context.Context, code string) (string, error) {
	return providers.ExchangeCode(ctx, p.oauth, p.httpClient, providerName, code)
}

// FetchUser returns the Discord user the access token belongs to.
func (p *Provider) FetchUser(ctx context.Context, accessToken string) (domain.DiscordUser, error) {
	client := providers.BearerClient(ctx, p.httpClient, accessToken)

	var u domain.DiscordUser
	if err := providers.DoJSON(ctx, client, http.MethodGet, p.apiBase+"/users/@me", nil, nil, providerName, "user fetch", &u); err != nil {
		return domain.DiscordUser{}, err
	}
	if u.ID == "" {
		return domain.DiscordUser{}, fmt.Errorf("%w: user fetch: missing id", domain.ErrMalformedResponse)
	}
	return u, nil
}

type roleConnection struct {
	PlatformName     string          `json:"platform_name"`
	PlatformUsername string          `json:"platform_username"`
	Metadata         domain.Metadata `json:"metadata"`
}

// PushMetadata writes the user's role connection for this application.
func (p *Provider) PushMetadata(ctx context.Context, accessToken string, metadata domain.Metadata, platformUsername string) error {
	client := providers.BearerClient(ctx, p.httpClient, accessToken)
	endpoint := fmt.Sprintf("%s/users/@me/applications/%s/role-connection", p.apiBase, url.PathEscape(p.cfg.ClientID))

	body := roleConnection{
		PlatformName:     PlatformName,
		PlatformUsername: platformUsername,
		Metadata:         metadata,
	}
	return providers.DoJSON(ctx, client, http.MethodPut, endpoint, body, nil, providerName, "metadata push", nil)
}

// RegisterMetadataSchema replaces the application's role-connection metadata
// schema. It authenticates with the bot token and returns the schema Discord
// stored. The call is idempotent.
func (p *Provider) RegisterMetadataSchema(ctx context.Context, botToken string, fields []domain.MetadataField) ([]domain.MetadataField, error) {
	endpoint := fmt.Sprintf("%s/applications/%s/role-connections/metadata", p.apiBase, url.PathEscape(p.cfg.ClientID))
	header := http.Header{"Authorization": {"Bot " + botToken}}

	var stored []domain.MetadataField
	if err := providers.DoJSON(ctx, p.httpClient, http.MethodPut, endpoint, fields, header, providerName, "schema registration", &stored); err != nil {
		return nil, err
	}
	return stored, nil
}
