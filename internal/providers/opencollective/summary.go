package opencollective

import (
	"fmt"
	"strings"

	"github.com/BlackMission/collectivelink/internal/auth"
	"github.com/BlackMission/collectivelink/internal/domain"
)

// summaryQuery asks for the viewer's and each parent organization's latest
// membership in the collective and latest DEBIT contribution to it. Both
// selections are scoped to $slug. Debit amounts are negative; the counterpart
// account is the donation's recipient as seen from the donor's ledger.
const summaryQuery = `
query donationSummary($slug: String!, $accountId: String!, $orgLimit: Int!) {
  account(id: $accountId) {
    ...donations
    organizations: memberOf(accountType: [ORGANIZATION], limit: $orgLimit) {
      nodes {
        account {
          ...donations
        }
      }
    }
  }
}

fragment donations on Account {
  id
  name
  slug
  membership: memberOf(account: { slug: $slug }, limit: 1) {
    nodes {
      role
      totalDonations {
        value
      }
    }
  }
  lastDebit: transactions(type: DEBIT, kind: [CONTRIBUTION], toAccount: { slug: $slug }, limit: 1, orderBy: { field: CREATED_AT, direction: DESC }) {
    nodes {
      amount {
        value
      }
      createdAt
      toAccount {
        id
        name
        slug
      }
    }
  }
}`

type amount struct {
	Value *float64 `json:"value"`
}

type membershipNode struct {
	Role           string  `json:"role"`
	TotalDonations *amount `json:"totalDonations"`
}

type transactionNode struct {
	Amount    *amount      `json:"amount"`
	CreatedAt string       `json:"createdAt"`
	ToAccount *accountNode `json:"toAccount"`
}

type donationsNode struct {
	accountNode
	Membership *struct {
		Nodes []membershipNode `json:"nodes"`
	} `json:"membership"`
	LastDebit *struct {
		Nodes []transactionNode `json:"nodes"`
	} `json:"lastDebit"`
}

type summaryResponse struct {
	Data struct {
		Account *struct {
			donationsNode
			Organizations *struct {
				Nodes []struct {
					Account *donationsNode `json:"account"`
				} `json:"nodes"`
			} `json:"organizations"`
		} `json:"account"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

// summary validates the response. Debits whose recipient is not the
// collective identified by slug are discarded.
func (r summaryResponse) summary(slug string) (auth.DonationSummary, error) {
	acc := r.Data.Account
	if acc == nil {
		return auth.DonationSummary{}, fmt.Errorf("%w: donation summary: missing account", domain.ErrMalformedResponse)
	}

	self, err := acc.donationsNode.accountDonations(slug)
	if err != nil {
		return auth.DonationSummary{}, err
	}
	summary := auth.DonationSummary{Accounts: []auth.AccountDonations{self}}

	if acc.Organizations == nil {
		return summary, nil
	}
	for _, n := range acc.Organizations.Nodes {
		if n.Account == nil {
			return auth.DonationSummary{}, fmt.Errorf("%w: donation summary: organization without account", domain.ErrMalformedResponse)
		}
		org, err := n.Account.accountDonations(slug)
		if err != nil {
			return auth.DonationSummary{}, err
		}
		summary.Accounts = append(summary.Accounts, org)
	}
	return summary, nil
}

func (n *donationsNode) accountDonations(slug string) (auth.AccountDonations, error) {
	account, err := n.accountNode.linkedAccount()
	if err != nil {
		return auth.AccountDonations{}, err
	}
	out := auth.AccountDonations{Account: account}

	if n.Membership != nil && len(n.Membership.Nodes) > 0 {
		m := n.Membership.Nodes[0]
		if m.Role == "" || m.TotalDonations == nil || m.TotalDonations.Value == nil {
			return auth.AccountDonations{}, fmt.Errorf("%w: membership of %s missing role or total", domain.ErrMalformedResponse, account.Slug)
		}
		out.Membership = &auth.Membership{
			Role:           m.Role,
			TotalDonations: *m.TotalDonations.Value,
		}
	}

	if n.LastDebit != nil && len(n.LastDebit.Nodes) > 0 {
		tx := n.LastDebit.Nodes[0]
		if tx.Amount == nil || tx.Amount.Value == nil {
			return auth.AccountDonations{}, fmt.Errorf("%w: transaction of %s missing amount", domain.ErrMalformedResponse, account.Slug)
		}
		createdAt, err := parseTime(tx.CreatedAt)
		if err != nil {
			return auth.AccountDonations{}, err
		}
		counterpart, err := tx.ToAccount.linkedAccount()
		if err != nil {
			return auth.AccountDonations{}, err
		}
		if !strings.EqualFold(counterpart.Slug, slug) {
			return out, nil
		}
		out.LastDebit = &auth.Transaction{
			Amount:      *tx.Amount.Value,
			CreatedAt:   createdAt,
			Counterpart: counterpart,
		}
	}
	return out, nil
}
