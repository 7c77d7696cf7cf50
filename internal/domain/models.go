package domain

import "time"

// LinkedAccount identifies the collective-platform account a Discord user is
// linked to. It may be an organization rather than the authenticating user.
type LinkedAccount struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Metadata is the role-connection record pushed to Discord.
// Absent values are omitted so Discord treats them as unset.
type Metadata struct {
	TotalDonated       *int64     `json:"total_donated,omitempty"`
	LastDonation       *time.Time `json:"last_donation,omitempty"`
	LastDonationAmount *int64     `json:"last_donation_amount,omitempty"`
	// Discord requires 0=false, 1=true.
	IsBacker int `json:"is_backer"`
}

// FlowState is the payload threaded through signed state tokens.
// The initial hop carries only the nonce; the enriched hop adds the linked
// account and its aggregated metadata.
type FlowState struct {
	Nonce    string         `json:"nonce"`
	Account  *LinkedAccount `json:"account,omitempty"`
	Metadata *Metadata      `json:"metadata,omitempty"`
}

// Enriched reports whether the state carries the result of the first leg.
func (s FlowState) Enriched() bool {
	return s.Account != nil && s.Metadata != nil
}

// DiscordUser is the identity returned by Discord's users/@me endpoint.
type DiscordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name,omitempty"`
}

// MetadataType is Discord's role-connection metadata comparator type.
type MetadataType int

const (
	MetadataIntegerLessThanOrEqual     MetadataType = 1
	MetadataIntegerGreaterThanOrEqual  MetadataType = 2
	MetadataIntegerEqual               MetadataType = 3
	MetadataIntegerNotEqual            MetadataType = 4
	MetadataDatetimeLessThanOrEqual    MetadataType = 5
	MetadataDatetimeGreaterThanOrEqual MetadataType = 6
	MetadataBooleanEqual               MetadataType = 7
	MetadataBooleanNotEqual            MetadataType = 8
)

// MetadataField is one entry of the role-connection metadata schema.
type MetadataField struct {
	Key                      string            `json:"key"`
	Name                     string            `json:"name"`
	Description              string            `json:"description"`
	Type                     MetadataType      `json:"type"`
	NameLocalizations        map[string]string `json:"name_localizations,omitempty"`
	DescriptionLocalizations map[string]string `json:"description_localizations,omitempty"`
}
