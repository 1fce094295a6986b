// Package normalize turns raw mention text into the canonical matching keys
// used throughout resolution. Everything here is pure and deterministic:
// the same input always yields the same normalized form and fingerprints.
package normalize

import (
	"strings"

	"github.com/caselight/caselight/entity/types"
)

// Honorific prefixes stripped during normalization. Checked against the
// first whitespace-delimited token after lowercasing.
var honorifics = map[string]bool{
	"mr":        true,
	"mrs":       true,
	"ms":        true,
	"dr":        true,
	"prof":      true,
	"sir":       true,
	"madam":     true,
	"miss":      true,
	"mister":    true,
	"professor": true,
	"judge":     true,
	"hon":       true,
	"honorable": true,
}

// minFingerprintTokenLen is the shortest last token considered a
// distinguishing surname or organization root. Shorter trailing tokens
// ("jr", "co") carry too little signal to be a matching key.
const minFingerprintTokenLen = 4

// Normalize lowercases text, strips a leading honorific, replaces every
// character outside [a-z0-9 ] with a space, collapses whitespace runs and
// trims. An empty or whitespace-only input yields ""; callers must discard
// such mentions before resolution.
func Normalize(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return ""
	}

	// Punctuation becomes whitespace first, so "mr." splits into the token
	// "mr" and the honorific check below needs no literal dot handling.
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	fields := strings.Fields(b.String())
	if len(fields) > 1 && honorifics[fields[0]] {
		fields = fields[1:]
	}

	return strings.Join(fields, " ")
}

// Fingerprints returns the set of matching keys for a mention: always the
// full normalized text, plus, for PERSON and ORGANIZATION only, the last
// whitespace-delimited token when it is at least four characters long.
// LOCATION mentions get no secondary fingerprint: location names fragment
// into common words ("new", "york") that would match far too loosely.
// The returned slice is empty when the text normalizes to "".
func Fingerprints(entityType types.EntityType, text string) []string {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}

	fingerprints := []string{normalized}

	if entityType != types.TypePerson && entityType != types.TypeOrganization {
		return fingerprints
	}

	tokens := strings.Fields(normalized)
	last := tokens[len(tokens)-1]
	if last != normalized && len(last) >= minFingerprintTokenLen {
		fingerprints = append(fingerprints, last)
	}

	return fingerprints
}

// KeyFingerprint returns the secondary (last-token) fingerprint for a
// mention, or "" when none exists. The candidate matcher uses this to run
// the weaker lookup only when it differs from the full normalized text.
func KeyFingerprint(entityType types.EntityType, normalized string) string {
	if entityType != types.TypePerson && entityType != types.TypeOrganization {
		return ""
	}
	if normalized == "" {
		return ""
	}

	tokens := strings.Fields(normalized)
	last := tokens[len(tokens)-1]
	if last == normalized || len(last) < minFingerprintTokenLen {
		return ""
	}
	return last
}
