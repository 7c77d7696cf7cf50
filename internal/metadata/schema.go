package metadata

import (
	"fmt"
	"os"
	"sort"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/BlackMission/collectivelink/internal/domain"
)

// Metadata keys. They must match the JSON tags of domain.Metadata.
const (
	KeyTotalDonated       = "total_donated"
	KeyLastDonation       = "last_donation"
	KeyLastDonationAmount = "last_donation_amount"
	KeyIsBacker           = "is_backer"
)

// Locales Discord accepts for name and description localizations.
var discordLocales = map[string]bool{
	"id": true, "da": true, "de": true, "en-GB": true, "en-US": true,
	"es-ES": true, "es-419": true, "fr": true, "hr": true, "it": true,
	"lt": true, "hu": true, "nl": true, "no": true, "pl": true,
	"pt-BR": true, "ro": true, "fi": true, "sv-SE": true, "vi": true,
	"tr": true, "cs": true, "el": true, "bg": true, "ru": true,
	"uk": true, "hi": true, "th": true, "zh-CN": true, "ja": true,
	"zh-TW": true, "ko": true,
}

// FieldTranslations holds per-locale strings for one metadata field.
type FieldTranslations struct {
	Name        map[string]string `yaml:"name"`
	Description map[string]string `yaml:"description"`
}

// Translations maps a metadata key to its localized strings.
type Translations map[string]FieldTranslations

// Schema returns the role-connection metadata schema, with localizations
// from tr applied. tr may be nil.
func Schema(tr Translations) []domain.MetadataField {
	fields := []domain.MetadataField{
		{
			Key:         KeyTotalDonated,
			Name:        "Total Donated",
			Description: "Minimum amount donated in total",
			Type:        domain.MetadataIntegerGreaterThanOrEqual,
		},
		{
			Key:         KeyLastDonation,
			Name:        "Last Donation",
			Description: "Days since their last donation",
			Type:        domain.MetadataDatetimeGreaterThanOrEqual,
		},
		{
			Key:         KeyLastDonationAmount,
			Name:        "Last Donation Amount",
			Description: "Minimum amount of their last donation",
			Type:        domain.MetadataIntegerGreaterThanOrEqual,
		},
		{
			Key:         KeyIsBacker,
			Name:        "Backer",
			Description: "The user has donated before or is a member of the collective",
			Type:        domain.MetadataBooleanEqual,
		},
	}

	for i := range fields {
		t, ok := tr[fields[i].Key]
		if !ok {
			continue
		}
		if len(t.Name) > 0 {
			fields[i].NameLocalizations = t.Name
		}
		if len(t.Description) > 0 {
			fields[i].DescriptionLocalizations = t.Description
		}
	}
	return fields
}

// LoadTranslations reads a YAML translations file.
func LoadTranslations(path string) (Translations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading translations: %w", err)
	}
	return ParseTranslations(data)
}

// ParseTranslations decodes YAML translations keyed by metadata key, then
// locale. Locale keys are canonicalized ("pt-br" becomes "pt-BR") and must
// be locales Discord supports.
func ParseTranslations(data []byte) (Translations, error) {
	var raw Translations
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: translations: %v", domain.ErrInvalidConfig, err)
	}

	known := map[string]bool{}
	for _, f := range Schema(nil) {
		known[f.Key] = true
	}

	out := make(Translations, len(raw))
	for _, key := range sortedKeys(raw) {
		if !known[key] {
			return nil, fmt.Errorf("%w: translations: unknown metadata key %q", domain.ErrInvalidConfig, key)
		}
		name, err := canonicalLocales(key, raw[key].Name)
		if err != nil {
			return nil, err
		}
		desc, err := canonicalLocales(key, raw[key].Description)
		if err != nil {
			return nil, err
		}
		out[key] = FieldTranslations{Name: name, Description: desc}
	}
	return out, nil
}

func canonicalLocales(key string, in map[string]string) (map[string]string, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(in))
	for _, loc := range sortedKeys(in) {
		tag, err := language.Parse(loc)
		if err != nil {
			return nil, fmt.Errorf("%w: translations: %s: invalid locale %q", domain.ErrInvalidConfig, key, loc)
		}
		canonical := tag.String()
		if !discordLocales[canonical] {
			return nil, fmt.Errorf("%w: translations: %s: unsupported locale %q", domain.ErrInvalidConfig, key, loc)
		}
		if _, dup := out[canonical]; dup {
			return nil, fmt.Errorf("%w: translations: %s: duplicate locale %q", domain.ErrInvalidConfig, key, canonical)
		}
		out[canonical] = in[loc]
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
