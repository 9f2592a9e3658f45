package radar

import (
	"strings"
	"unicode"
)

// CorporateSuffixes are the legal-form suffixes stripped during applicant
// normalization. Matching is longest-first so that "CO LTD" wins over
// "LTD" and "& CO KG" over "KG".
var CorporateSuffixes = []string{
	"CO LTD", "LTD", "INC", "CORP", "CORPORATION", "GMBH", "AG", "SA",
	"SAS", "SE", "NV", "BV", "KK", "AB", "OY", "AS", "PLC", "LLC", "PTY",
	"& CO KG", "KG",
}

// NormalizeApplicantName canonicalizes a raw applicant or organization
// name: upper-case, punctuation deleted (the ampersand survives, legal
// forms like "& CO KG" depend on it; "N.V." becomes "NV"), whitespace
// collapsed, and one trailing corporate suffix stripped. A name that
// consists of nothing but a suffix is kept as-is.
func NormalizeApplicantName(raw string) string {
	name := strings.ToUpper(strings.TrimSpace(raw))
	if name == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '&' || unicode.IsSpace(r):
			b.WriteRune(r)
		}
	}
	name = strings.Join(strings.Fields(b.String()), " ")

	if stripped := StripCorporateSuffix(name); stripped != "" {
		return stripped
	}
	return name
}

// StripCorporateSuffix removes the longest matching corporate suffix from
// the end of an already upper-cased name. Returns the input unchanged
// when no suffix matches and "" when the name is nothing but a suffix.
func StripCorporateSuffix(name string) string {
	best := ""
	for _, s := range CorporateSuffixes {
		if len(s) <= len(best) {
			continue
		}
		if name == s || strings.HasSuffix(name, " "+s) {
			best = s
		}
	}
	if best == "" {
		return name
	}
	return strings.TrimSpace(strings.TrimSuffix(name, best))
}

// NormalizeCacheKey canonicalizes a name for entity-resolution cache
// lookups. Deliberately lighter than applicant normalization: the
// registry query runs with the original name, only casing and outer
// whitespace are folded.
func NormalizeCacheKey(rawName string) string {
	return strings.ToUpper(strings.TrimSpace(rawName))
}
