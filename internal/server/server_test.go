package server

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BlackMission/collectivelink/internal/auth"
	"github.com/BlackMission/collectivelink/internal/domain"
	"github.com/BlackMission/collectivelink/internal/state"
)

// fakeCollective redirects to a path on the test server so the browser
// round-trip can be replayed against the real router.
type fakeCollective struct {
	base string
}

func (f *fakeCollective) AuthURL(stateToken string) string {
	return f.base + "/fake/collective?state=" + url.QueryEscape(stateToken)
}
func (f *fakeCollective) ExchangeCode(ctx context.Context, code string) (string, error) {
	return "oc-token", nil
}
func (f *fakeCollective) FetchIdentity(ctx context.Context, accessToken string) (domain.LinkedAccount, error) {
	return domain.LinkedAccount{ID: "acc-1", Name: "Jane Doe", Slug: "jane"}, nil
}
func (f *fakeCollective) FetchDonationSummary(ctx context.Context, accessToken, accountID string) (auth.DonationSummary, error) {
	return auth.DonationSummary{Accounts: []auth.AccountDonations{
		{
			Account:    domain.LinkedAccount{ID: accountID, Slug: "jane"},
			Membership: &auth.Membership{Role: "BACKER", TotalDonations: 25},
			LastDebit: &auth.Transaction{
				Amount:      -25,
				CreatedAt:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
				Counterpart: domain.LinkedAccount{ID: "acc-1", Name: "Jane Doe", Slug: "jane"},
			},
		},
	}}, nil
}

type fakeDiscord struct {
	base string

	mu         sync.Mutex
	pushed     *domain.Metadata
	pushedName string
}

func (f *fakeDiscord) lastPush() (*domain.Metadata, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pushed, f.pushedName
}

func (f *fakeDiscord) AuthURL(stateToken string) string {
	return f.base + "/fake/discord?state=" + url.QueryEscape(stateToken)
}
func (f *fakeDiscord) ExchangeCode(ctx context.Context, code string) (string, error) {
	return "discord-token", nil
}
func (f *fakeDiscord) FetchUser(ctx context.Context, accessToken string) (domain.DiscordUser, error) {
	return domain.DiscordUser{ID: "123456789012345678", Username: "jane"}, nil
}
func (f *fakeDiscord) PushMetadata(ctx context.Context, accessToken string, md domain.Metadata, platformUsername string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = &md
	f.pushedName = platformUsername
	return nil
}

type fakeNotifier struct{}

func (fakeNotifier) NotifyLinked(ctx context.Context, user domain.DiscordUser, account domain.LinkedAccount) error {
	return nil
}

// consentHandler plays a provider that immediately approves: it bounces the
// browser to callback with a code and the state it was given.
func consentHandler(callback string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := url.Values{"code": {"granted"}, "state": {r.URL.Query().Get("state")}}
		http.Redirect(w, r, callback+"?"+q.Encode(), http.StatusFound)
	}
}

func setupTestServer(t *testing.T) (*httptest.Server, *fakeDiscord) {
	t.Helper()

	codec := state.NewCodec([]byte("01234567890123456789012345678901"), state.DefaultTTL)
	collective := &fakeCollective{}
	discord := &fakeDiscord{}

	srv := New(Config{Host: "127.0.0.1", Port: 0, Version: "test"}, Deps{
		Binder:     state.NewBinder(codec, state.DefaultNonceMaxAge),
		Collective: collective,
		Discord:    discord,
		Notifier:   fakeNotifier{},
	})

	outer := http.NewServeMux()
	outer.Handle("/", srv.Handler())
	outer.Handle("/fake/collective", consentHandler("/open-collective/redirect"))
	outer.Handle("/fake/discord", consentHandler("/discord/redirect"))

	ts := httptest.NewTLSServer(outer)
	t.Cleanup(ts.Close)
	collective.base = ts.URL
	discord.base = ts.URL
	return ts, discord
}

func TestIntegration_HealthEndpoint(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"status":"ok","version":"test"}`, string(body))
}

func TestIntegration_FullLinkFlow(t *testing.T) {
	ts, discord := setupTestServer(t)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	browser := *ts.Client()
	browser.Jar = jar

	resp, err := browser.Get(ts.URL + "/linked-role")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/discord/redirect", resp.Request.URL.Path)
	assert.Contains(t, string(body), `data-outcome="success"`)

	pushed, name := discord.lastPush()
	require.NotNil(t, pushed)
	assert.Equal(t, "Jane Doe", name)
	assert.Equal(t, int64(25), *pushed.TotalDonated)
	assert.Equal(t, int64(25), *pushed.LastDonationAmount)
	assert.Equal(t, 1, pushed.IsBacker)
}

func TestIntegration_CallbackWithoutCookie(t *testing.T) {
	ts, discord := setupTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/linked-role")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "missing nonce cookie")
	pushed, _ := discord.lastPush()
	assert.Nil(t, pushed)
}

func TestIntegration_NotFound(t *testing.T) {
	ts, _ := setupTestServer(t)

	for _, path := range []string{"/", "/auth/url", "/linked-role/extra"} {
		resp, err := ts.Client().Get(ts.URL + path)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		assert.Equal(t, "Not Found.", string(body), path)
	}
}

func TestIntegration_RequestID(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()

	id := resp.Header.Get("X-Request-ID")
	_, err = uuid.Parse(id)
	assert.NoError(t, err, "X-Request-ID %q", id)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	require.NoError(t, err)
	given := uuid.NewString()
	req.Header.Set("X-Request-ID", given)
	resp, err = ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, given, resp.Header.Get("X-Request-ID"))

	req.Header.Set("X-Request-ID", strings.Repeat("x", 8))
	resp, err = ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEqual(t, "xxxxxxxx", resp.Header.Get("X-Request-ID"))
}
