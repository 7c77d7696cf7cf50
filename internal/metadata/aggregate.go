// Package metadata reduces donation history to Discord role-connection
// metadata and defines the schema registered for it.
package metadata

import (
	"math"

	"github.com/BlackMission/collectivelink/internal/auth"
	"github.com/BlackMission/collectivelink/internal/domain"
)

// backerRoles are the membership roles that count as backing the collective.
var backerRoles = map[string]bool{
	"BACKER":      true,
	"ADMIN":       true,
	"CONTRIBUTOR": true,
	"MEMBER":      true,
}

// Aggregate folds the donation summary into role-connection metadata.
//
// Accounts without a membership are ignored. Totals are summed across
// accounts, and the backer flag stays set once any account sets it. The
// newest debit decides last_donation and last_donation_amount, and its
// counterpart is returned as the identity to display. The returned account
// is nil when no debit was found. Amounts are rounded up.
func Aggregate(summary auth.DonationSummary) (domain.Metadata, *domain.LinkedAccount) {
	var (
		md      domain.Metadata
		display *domain.LinkedAccount
	)

	for _, acc := range summary.Accounts {
		if acc.Membership == nil {
			continue
		}

		total := ceil(acc.Membership.TotalDonations)
		if md.TotalDonated != nil {
			total += *md.TotalDonated
		}
		md.TotalDonated = &total

		if backerRoles[acc.Membership.Role] {
			md.IsBacker = 1
		}

		tx := acc.LastDebit
		if tx == nil {
			continue
		}
		if md.LastDonation != nil && !tx.CreatedAt.After(*md.LastDonation) {
			continue
		}
		at := tx.CreatedAt
		amount := ceil(math.Abs(tx.Amount))
		counterpart := tx.Counterpart
		md.LastDonation = &at
		md.LastDonationAmount = &amount
		display = &counterpart
	}

	return md, display
}

func ceil(v float64) int64 {
	return int64(math.Ceil(v))
}
