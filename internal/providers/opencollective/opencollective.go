// Package opencollective implements the collective-platform leg of the
// linking flow: OAuth2 login, identity lookup and the donation summary query.
package opencollective

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/BlackMission/collectivelink/internal/auth"
	"github.com/BlackMission/collectivelink/internal/domain"
	"github.com/BlackMission/collectivelink/internal/providers"
)

const (
	providerName        = "Open Collective"
	defaultAuthEndpoint = "https://opencollective.com/oauth/authorize"
	defaultTokenURL     = "https://opencollective.com/oauth/token"
	defaultGraphQLURL   = "https://api.opencollective.com/graphql/v2"
	scope               = "account"

	// organizationLimit bounds how many organizations the summary expands into.
	organizationLimit = 25
)

// Config holds Open Collective OAuth2 settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Slug is the collective whose donations are summarised.
	Slug string
}

// Client talks to Open Collective.
type Client struct {
	cfg        Config
	oauth      *oauth2.Config
	httpClient *http.Client
	graphqlURL string
}

var _ auth.Collective = (*Client)(nil)

// New creates an Open Collective client.
func New(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{scope},
			Endpoint: oauth2.Endpoint{
				AuthURL:   defaultAuthEndpoint,
				TokenURL:  defaultTokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: http.DefaultClient,
		graphqlURL: defaultGraphQLURL,
	}
}

// AuthURL returns the authorize URL carrying stateToken.
func (c *Client) AuthURL(stateToken string) string {
	return c.oauth.AuthCodeURL(stateToken)
}

// ExchangeCode trades an authorization code for an access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	return providers.ExchangeCode(ctx, c.oauth, c.httpClient, providerName, code)
}

const meQuery = `{ me { id slug name } }`

type meResponse struct {
	Data struct {
		Me *accountNode `json:"me"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

// FetchIdentity returns the account the access token belongs to.
func (c *Client) FetchIdentity(ctx context.Context, accessToken string) (domain.LinkedAccount, error) {
	var resp meResponse
	if err := c.query(ctx, accessToken, "identity", meQuery, nil, &resp); err != nil {
		return domain.LinkedAccount{}, err
	}
	if err := firstError(resp.Errors); err != nil {
		return domain.LinkedAccount{}, err
	}
	if resp.Data.Me == nil {
		return domain.LinkedAccount{}, fmt.Errorf("%w: identity: missing me", domain.ErrMalformedResponse)
	}
	return resp.Data.Me.linkedAccount()
}

// FetchDonationSummary queries the account's membership in the configured
// collective and its most recent debit towards it, for the account itself
// and for each organization it belongs to.
func (c *Client) FetchDonationSummary(ctx context.Context, accessToken, accountID string) (auth.DonationSummary, error) {
	vars := map[string]any{
		"slug":      c.cfg.Slug,
		"accountId": accountID,
		"orgLimit":  organizationLimit,
	}

	var resp summaryResponse
	if err := c.query(ctx, accessToken, "donation summary", summaryQuery, vars, &resp); err != nil {
		return auth.DonationSummary{}, err
	}
	if err := firstError(resp.Errors); err != nil {
		return auth.DonationSummary{}, err
	}
	return resp.summary(c.cfg.Slug)
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

func firstError(errs []graphqlError) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: graphql: %s", domain.ErrMalformedResponse, errs[0].Message)
}

func (c *Client) query(ctx context.Context, accessToken, operation, query string, vars map[string]any, out any) error {
	client := providers.BearerClient(ctx, c.httpClient, accessToken)
	return providers.DoJSON(ctx, client, http.MethodPost, c.graphqlURL,
		graphqlRequest{Query: query, Variables: vars}, nil, providerName, operation, out)
}

type accountNode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (a *accountNode) linkedAccount() (domain.LinkedAccount, error) {
	if a == nil || a.ID == "" || a.Slug == "" {
		return domain.LinkedAccount{}, fmt.Errorf("%w: account without id or slug", domain.ErrMalformedResponse)
	}
	name := a.Name
	if name == "" {
		name = a.Slug
	}
	return domain.LinkedAccount{ID: a.ID, Name: name, Slug: a.Slug}, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid timestamp %q", domain.ErrMalformedResponse, s)
	}
	return t.UTC(), nil
}
