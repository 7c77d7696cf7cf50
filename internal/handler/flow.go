package handler

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/BlackMission/collectivelink/internal/auth"
	"github.com/BlackMission/collectivelink/internal/domain"
	"github.com/BlackMission/collectivelink/internal/logging"
	"github.com/BlackMission/collectivelink/internal/metadata"
	"github.com/BlackMission/collectivelink/internal/page"
	"github.com/BlackMission/collectivelink/internal/state"
)

const tracerName = "github.com/BlackMission/collectivelink/internal/handler"

// RequestIDHeader carries the request id set by the server middleware.
const RequestIDHeader = "X-Request-ID"

const (
	actionStart      = "flow.start"
	actionCollective = "flow.collective_callback"
	actionDiscord    = "flow.discord_callback"
)

// LinkedRole handles GET /linked-role.
// It binds a fresh nonce to the browser and redirects to the collective
// platform's authorize URL.
func LinkedRole(binder *state.Binder, collective auth.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := otel.Tracer(tracerName).Start(r.Context(), actionStart)
		defer span.End()

		cookie, token, err := binder.Begin()
		if err != nil {
			fail(w, r, span, actionStart, "", err)
			return
		}

		logging.Audit(logging.AuditEvent{
			Action:    actionStart,
			Outcome:   "success",
			RequestID: r.Header.Get(RequestIDHeader),
			Nonce:     cookie.Value,
		})

		http.SetCookie(w, cookie)
		http.Redirect(w, r, collective.AuthURL(token), http.StatusFound)
	}
}

// CollectiveCallback handles GET /open-collective/redirect.
// It completes the collective platform's leg, aggregates the donation
// history, and forwards the result to Discord inside a new state token.
func CollectiveCallback(binder *state.Binder, collective auth.Collective, discord auth.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := otel.Tracer(tracerName).Start(r.Context(), actionCollective)
		defer span.End()

		code, fs, err := validateCallback(r, binder)
		if err != nil {
			fail(w, r, span, actionCollective, nonceOf(fs), err)
			return
		}

		next, account, err := completeCollective(ctx, binder, collective, code, fs.Nonce)
		if err != nil {
			fail(w, r, span, actionCollective, fs.Nonce, err)
			return
		}

		span.SetAttributes(attribute.String("link.account_slug", account.Slug))
		logging.Audit(logging.AuditEvent{
			Action:    actionCollective,
			Outcome:   "success",
			RequestID: r.Header.Get(RequestIDHeader),
			Nonce:     fs.Nonce,
			Target:    account.Slug,
		})

		http.Redirect(w, r, discord.AuthURL(next), http.StatusFound)
	}
}

func completeCollective(ctx context.Context, binder *state.Binder, collective auth.Collective, code, nonce string) (string, domain.LinkedAccount, error) {
	token, err := collective.ExchangeCode(ctx, code)
	if err != nil {
		return "", domain.LinkedAccount{}, err
	}

	identity, err := collective.FetchIdentity(ctx, token)
	if err != nil {
		return "", domain.LinkedAccount{}, err
	}

	summary, err := collective.FetchDonationSummary(ctx, token, identity.ID)
	if err != nil {
		return "", domain.LinkedAccount{}, err
	}

	md, display := metadata.Aggregate(summary)
	account := identity
	if display != nil {
		account = *display
	}

	next, err := binder.Seal(domain.FlowState{
		Nonce:    nonce,
		Account:  &account,
		Metadata: &md,
	})
	if err != nil {
		return "", domain.LinkedAccount{}, err
	}
	return next, account, nil
}

// DiscordCallback handles GET /discord/redirect.
// It completes Discord's leg, then notifies the webhook and pushes the
// carried metadata concurrently. Both must succeed.
func DiscordCallback(binder *state.Binder, discord auth.RoleConnections, notifier auth.Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := otel.Tracer(tracerName).Start(r.Context(), actionDiscord)
		defer span.End()

		code, fs, err := validateCallback(r, binder)
		if err == nil && !fs.Enriched() {
			err = fmt.Errorf("%w: state carries no linked account", domain.ErrMalformedState)
		}
		if err != nil {
			fail(w, r, span, actionDiscord, nonceOf(fs), err)
			return
		}

		user, err := completeDiscord(ctx, discord, notifier, code, fs)
		if err != nil {
			fail(w, r, span, actionDiscord, fs.Nonce, err)
			return
		}

		span.SetAttributes(
			attribute.String("link.account_slug", fs.Account.Slug),
			attribute.String("link.discord_user_id", user.ID),
		)
		logging.Audit(logging.AuditEvent{
			Action:    actionDiscord,
			Outcome:   "success",
			RequestID: r.Header.Get(RequestIDHeader),
			Nonce:     fs.Nonce,
			Target:    fs.Account.Slug,
		})

		page.Success(w, page.DefaultSuccessTitle)
	}
}

func completeDiscord(ctx context.Context, discord auth.RoleConnections, notifier auth.Notifier, code string, fs *domain.FlowState) (domain.DiscordUser, error) {
	token, err := discord.ExchangeCode(ctx, code)
	if err != nil {
		return domain.DiscordUser{}, err
	}

	user, err := discord.FetchUser(ctx, token)
	if err != nil {
		return domain.DiscordUser{}, err
	}

	account := *fs.Account
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return notifier.NotifyLinked(gctx, user, account)
	})
	g.Go(func() error {
		return discord.PushMetadata(gctx, token, *fs.Metadata, displayName(account))
	})
	if err := g.Wait(); err != nil {
		return domain.DiscordUser{}, err
	}
	return user, nil
}

// validateCallback checks a provider callback's query and binds its state
// to the request's nonce cookie. No upstream call happens before it passes.
// A provider-reported error is only surfaced once the state is bound.
func validateCallback(r *http.Request, binder *state.Binder) (string, *domain.FlowState, error) {
	q := r.URL.Query()
	code, stateToken, reason := q.Get("code"), q.Get("state"), q.Get("error")
	if stateToken == "" || (code == "" && reason == "") {
		return "", nil, domain.ErrMissingParams
	}

	fs, err := binder.Validate(stateToken, r.Header.Get("Cookie"))
	if err != nil {
		return "", nil, err
	}
	if reason != "" {
		return "", fs, &providerDeniedError{reason: reason, description: q.Get("error_description")}
	}
	return code, fs, nil
}

func displayName(account domain.LinkedAccount) string {
	if account.Name != "" {
		return account.Name
	}
	return account.Slug
}

func nonceOf(fs *domain.FlowState) string {
	if fs == nil {
		return ""
	}
	return fs.Nonce
}

// fail ends a hop on the Error page.
func fail(w http.ResponseWriter, r *http.Request, span trace.Span, action, nonce string, err error) {
	msg := errorMessage(err)
	outcome := "failed"
	if domain.IsValidation(err) {
		outcome = "rejected"
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	logging.Audit(logging.AuditEvent{
		Action:    action,
		Outcome:   outcome,
		RequestID: r.Header.Get(RequestIDHeader),
		Nonce:     nonce,
		Error:     err.Error(),
	})

	page.Error(w, msg)
}
