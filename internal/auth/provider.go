package auth

import (
	"context"
	"time"

	"github.com/BlackMission/collectivelink/internal/domain"
)

// Provider is one OAuth2 authorization-code leg of the linking flow.
type Provider interface {
	AuthURL(stateToken string) string
	ExchangeCode(ctx context.Context, code string) (string, error)
}

// DonationSummary is the collective platform's donation history for an
// account and the organizations it belongs to.
type DonationSummary struct {
	// Accounts lists the queried account first, followed by its organizations.
	Accounts []AccountDonations
}

// AccountDonations is one account's membership and most recent donation.
type AccountDonations struct {
	Account    domain.LinkedAccount
	Membership *Membership
	LastDebit  *Transaction
}

// Membership is an account's most recent membership in the collective.
type Membership struct {
	Role           string
	TotalDonations float64
}

// Transaction is an account's most recent outbound donation.
type Transaction struct {
	// Amount is signed as reported by the platform; debits are negative.
	Amount      float64
	CreatedAt   time.Time
	Counterpart domain.LinkedAccount
}

// Collective is the collective platform leg.
type Collective interface {
	Provider
	FetchIdentity(ctx context.Context, accessToken string) (domain.LinkedAccount, error)
	FetchDonationSummary(ctx context.Context, accessToken, accountID string) (DonationSummary, error)
}

// RoleConnections is the Discord leg.
type RoleConnections interface {
	Provider
	FetchUser(ctx context.Context, accessToken string) (domain.DiscordUser, error)
	PushMetadata(ctx context.Context, accessToken string, metadata domain.Metadata, platformUsername string) error
}

// Notifier announces completed links. Implementations treat an unconfigured
// destination as a no-op.
type Notifier interface {
	NotifyLinked(ctx context.Context, user domain.DiscordUser, account domain.LinkedAccount) error
}
