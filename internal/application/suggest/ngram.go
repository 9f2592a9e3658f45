package suggest

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const minedTermCap = 30

// wordPattern tokenizes titles. Hyphens stay inside tokens and Latin-1
// umlauts count as letters so German compound terms survive intact.
var wordPattern = regexp.MustCompile(`[a-zA-Z0-9äöüÄÖÜß-]+`)

// stopwords collects the generic title vocabulary that never forms the
// edge of a real technology term.
var stopwords = buildStopwords()

func buildStopwords() map[string]struct{} {
	words := []string{
		// English
		"a", "an", "the", "of", "for", "and", "or", "in", "on", "to", "with",
		"by", "from", "at", "its", "is", "are", "was", "were", "be", "been",
		"has", "have", "had", "do", "does", "did", "not", "no", "nor",
		"but", "if", "than", "that", "this", "these", "those", "such", "as",
		"based", "method", "methods", "using", "use", "used", "system", "systems",
		"device", "devices", "apparatus", "process", "processes", "comprising",
		"related", "new", "novel", "improved", "thereof", "therein", "wherein",
		"means", "including", "particularly", "especially", "via",
		// German
		"und", "fuer", "der", "die", "das", "ein", "eine", "von", "mit",
		"zur", "zum", "auf", "aus", "bei", "nach", "ueber",
		// French
		"le", "la", "les", "de", "du", "des", "un", "une", "et", "en",
		"au", "aux", "pour", "par", "sur", "dans", "avec",
		// Spanish
		"el", "lo", "los", "las", "del", "al", "su", "sus",
		"con", "por", "para", "se", "que", "es",
		// Italian
		"il", "di", "da", "nel", "nei", "per", "che",
	}
	set := make(map[string]struct{}, len(words)+25)
	for _, w := range words {
		set[w] = struct{}{}
	}
	// Single letters are never technology terms ("a" is already above).
	for r := 'b'; r <= 'z'; r++ {
		set[string(r)] = struct{}{}
	}
	return set
}

// extractTerms mines the most frequent 2- and 3-grams containing the query
// as a case-insensitive substring. Grams starting or ending on a stopword
// are dropped; spellings of the same term are grouped case-insensitively
// and the most frequent surface form represents the group.
func extractTerms(titles []string, query string) []string {
	queryLower := strings.ToLower(query)

	type formTally struct {
		counts map[string]int
		order  []string
		total  int
	}
	groups := make(map[string]*formTally)
	var groupOrder []string

	for _, title := range titles {
		words := wordPattern.FindAllString(title, -1)
		for _, n := range []int{2, 3} {
			for i := 0; i+n <= len(words); i++ {
				gram := strings.Join(words[i:i+n], " ")
				gramLower := strings.ToLower(gram)
				if !strings.Contains(gramLower, queryLower) {
					continue
				}
				gramWords := strings.Split(gramLower, " ")
				if _, stop := stopwords[gramWords[0]]; stop {
					continue
				}
				if _, stop := stopwords[gramWords[len(gramWords)-1]]; stop {
					continue
				}
				g, ok := groups[gramLower]
				if !ok {
					g = &formTally{counts: make(map[string]int)}
					groups[gramLower] = g
					groupOrder = append(groupOrder, gramLower)
				}
				if _, seen := g.counts[gram]; !seen {
					g.order = append(g.order, gram)
				}
				g.counts[gram]++
				g.total++
			}
		}
	}

	type minedTerm struct {
		display string
		count   int
	}
	terms := make([]minedTerm, 0, len(groups))
	for _, norm := range groupOrder {
		g := groups[norm]
		best := g.order[0]
		for _, form := range g.order[1:] {
			if g.counts[form] > g.counts[best] {
				best = form
			}
		}
		terms = append(terms, minedTerm{display: normalizeCase(best), count: g.total})
	}

	sort.Slice(terms, func(i, j int) bool {
		if terms[i].count != terms[j].count {
			return terms[i].count > terms[j].count
		}
		return terms[i].display < terms[j].display
	})
	if len(terms) > minedTermCap {
		terms = terms[:minedTermCap]
	}

	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = t.display
	}
	return out
}

// normalizeCase keeps genuinely mixed-case terms as they are and
// title-cases all-upper or all-lower ones. Short all-caps tokens survive
// as acronyms (LED, CPC, QKD).
func normalizeCase(term string) string {
	if !isUpperString(term) && !isLowerString(term) {
		return term
	}
	words := strings.Split(term, " ")
	for i, w := range words {
		if isUpperString(w) && utf8.RuneCountInString(w) <= 4 {
			if _, stop := stopwords[strings.ToLower(w)]; !stop {
				continue
			}
		}
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

// isUpperString reports whether s has at least one cased rune and none of
// them is lowercase.
func isUpperString(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

// isLowerString reports whether s has at least one cased rune and none of
// them is uppercase.
func isLowerString(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsUpper(r) {
			return false
		}
		if unicode.IsLower(r) {
			cased = true
		}
	}
	return cased
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(w string) string {
	if w == "" {
		return w
	}
	runes := []rune(w)
	runes[0] = unicode.ToUpper(runes[0])
	for i := 1; i < len(runes); i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}
