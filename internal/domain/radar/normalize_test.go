package radar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeApplicantName_Suffixes(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"Siemens AG", "SIEMENS"},
		{"siemens ag", "SIEMENS"},
		{"IBM Corp.", "IBM"},
		{"International Business Machines Corporation", "INTERNATIONAL BUSINESS MACHINES"},
		{"Toshiba Co Ltd", "TOSHIBA"},
		{"Toshiba Co., Ltd.", "TOSHIBA"},
		{"Mueller & Co KG", "MUELLER"},
		{"Beispiel KG", "BEISPIEL"},
		{"Acme GmbH", "ACME"},
		{"Thales SA", "THALES"},
		{"Philips N.V.", "PHILIPS"},
		{"Johnson & Johnson", "JOHNSON & JOHNSON"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeApplicantName(tc.raw), "raw=%q", tc.raw)
	}
}

func TestNormalizeApplicantName_LongestMatchWins(t *testing.T) {
	// "CO LTD" must win over the shorter "LTD".
	assert.Equal(t, "NIPPON STEEL", NormalizeApplicantName("Nippon Steel Co Ltd"))
	// "& CO KG" must win over the bare "KG".
	assert.Equal(t, "BOSCH", NormalizeApplicantName("Bosch & Co. KG"))
}

func TestNormalizeApplicantName_PunctuationAndSpacing(t *testing.T) {
	// Punctuation is deleted, not replaced: "N.V." folds to "NV" so the
	// suffix match still fires, "Saint-Gobain" fuses to one token.
	assert.Equal(t, "SAINTGOBAIN", NormalizeApplicantName("  Saint-Gobain  S.A. "))
	assert.Equal(t, "EON", NormalizeApplicantName("E.ON SE"))
	assert.Equal(t, "", NormalizeApplicantName("   "))
}

func TestNormalizeApplicantName_SuffixOnlyNameKept(t *testing.T) {
	// A name consisting of nothing but a legal form stays untouched.
	assert.Equal(t, "AG", NormalizeApplicantName("AG"))
	assert.Equal(t, "LTD", NormalizeApplicantName("ltd"))
}

func TestStripCorporateSuffix_NoMatch(t *testing.T) {
	assert.Equal(t, "QUANTUM WORKS", StripCorporateSuffix("QUANTUM WORKS"))
	// Suffix only matches on a word boundary.
	assert.Equal(t, "GOLDBERG", StripCorporateSuffix("GOLDBERG"))
}

func TestNormalizeCacheKey(t *testing.T) {
	assert.Equal(t, "SIEMENS AG", NormalizeCacheKey("  Siemens AG "))
	assert.Equal(t, "IBM CORP.", NormalizeCacheKey("ibm corp."))
}

func TestResolutionCacheEntry_Negative(t *testing.T) {
	neg := &ResolutionCacheEntry{RawName: "UNKNOWN ENTITY"}
	assert.True(t, neg.IsNegative())
	assert.Nil(t, neg.Entity())

	lei := "529900W18LQJJN6SJ336"
	legal := "Example Corp"
	country := "DE"
	pos := &ResolutionCacheEntry{RawName: "EXAMPLE", LEI: &lei, LegalName: &legal, Country: &country}
	assert.False(t, pos.IsNegative())
	ent := pos.Entity()
	assert.Equal(t, lei, ent.LEI)
	assert.Equal(t, "Example Corp", ent.LegalName)
	assert.Equal(t, "DE", ent.Country)
	assert.Equal(t, "", ent.City)
}
