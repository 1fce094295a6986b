package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/caselight/caselight/entity/types"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase", "Jeffrey Epstein", "jeffrey epstein"},
		{"honorific with period", "Mr. Epstein", "epstein"},
		{"honorific without period", "Dr Smith", "smith"},
		{"long honorific", "Professor Alan Dershowitz", "alan dershowitz"},
		{"honorific-only is kept", "Dr", "dr"},
		{"punctuation to space", "O'Brien & Sons, Inc.", "o brien sons inc"},
		{"collapse whitespace", "  New   York  ", "new york"},
		{"digits preserved", "Area 51", "area 51"},
		{"unicode stripped", "Café München", "caf m nchen"},
		{"empty", "", ""},
		{"whitespace only", "   \t  ", ""},
		{"punctuation only", "...", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	for _, input := range []string{"Mr. Jeffrey Epstein", "NEW YORK", "the Clinton Foundation"} {
		once := Normalize(input)
		assert.Equal(t, once, Normalize(once), "normalizing twice must be stable for %q", input)
	}
}

func TestFingerprints(t *testing.T) {
	tests := []struct {
		name       string
		entityType types.EntityType
		input      string
		expected   []string
	}{
		{"person full name", types.TypePerson, "Jeffrey Epstein", []string{"jeffrey epstein", "epstein"}},
		{"person single token", types.TypePerson, "epstein", []string{"epstein"}},
		{"person short last token", types.TypePerson, "Nathan Fox", []string{"nathan fox"}},
		{"org root", types.TypeOrganization, "Clinton Foundation", []string{"clinton foundation", "foundation"}},
		{"location gets no secondary", types.TypeLocation, "New York City", []string{"new york city"}},
		{"empty input", types.TypePerson, "   ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Fingerprints(tt.entityType, tt.input))
		})
	}
}

// A lone first name only fingerprints to itself: the last-token policy never
// connects "jeffrey" to "jeffrey epstein". Bare first names stand alone
// until an adjudication step says otherwise.
func TestFingerprints_BareFirstNameDoesNotBridge(t *testing.T) {
	full := Fingerprints(types.TypePerson, "Jeffrey Epstein")
	bare := Fingerprints(types.TypePerson, "jeffrey")

	assert.Equal(t, []string{"jeffrey"}, bare)
	for _, fp := range full {
		assert.NotEqual(t, "jeffrey", fp)
	}
}

func TestKeyFingerprint(t *testing.T) {
	assert.Equal(t, "epstein", KeyFingerprint(types.TypePerson, "jeffrey epstein"))
	assert.Equal(t, "", KeyFingerprint(types.TypePerson, "epstein"), "single token has no secondary key")
	assert.Equal(t, "", KeyFingerprint(types.TypePerson, "nathan fox"), "short last token is not a key")
	assert.Equal(t, "", KeyFingerprint(types.TypeLocation, "new york city"))
	assert.Equal(t, "", KeyFingerprint(types.TypePerson, ""))
}
