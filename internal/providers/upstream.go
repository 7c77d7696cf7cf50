// Package providers holds the HTTP plumbing shared by the provider clients.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/BlackMission/collectivelink/internal/domain"
)

// maxBodyBytes bounds how much of an upstream response is read.
const maxBodyBytes = 1 << 20

// ExchangeCode trades an authorization code for an access token. A token
// endpoint rejection becomes a *domain.UpstreamError carrying its status.
func ExchangeCode(ctx context.Context, cfg *oauth2.Config, httpClient *http.Client, provider, code string) (string, error) {
	if httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	}
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return "", &domain.UpstreamError{Provider: provider, Operation: "token exchange", StatusCode: re.Response.StatusCode}
		}
		return "", fmt.Errorf("%s token exchange: %w", provider, err)
	}
	return token.AccessToken, nil
}

// BearerClient returns an HTTP client that authenticates every request with accessToken.
func BearerClient(ctx context.Context, httpClient *http.Client, accessToken string) *http.Client {
	if httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	}
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
}

// DoJSON sends a request with an optional JSON body and decodes a JSON
// response into out. Non-2xx responses become a *domain.UpstreamError.
// out may be nil when the response body is irrelevant.
func DoJSON(ctx context.Context, client *http.Client, method, url string, body any, header http.Header, provider, operation string, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling %s request: %w", operation, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", operation, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", provider, operation, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s %s: reading response: %w", provider, operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.UpstreamError{Provider: provider, Operation: operation, StatusCode: resp.StatusCode}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		if out != nil {
			return fmt.Errorf("%w: empty %s response", domain.ErrMalformedResponse, operation)
		}
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrMalformedResponse, operation, err)
	}
	return nil
}
