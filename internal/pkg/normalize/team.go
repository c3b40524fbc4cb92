// Package normalize implements the deterministic team/event name pipeline
// shared by the resolver and the persister.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// clubAffixes are common club-suffix/prefix tokens stripped after folding.
var clubAffixes = []string{
	"fc", "sc", "bc", "cf", "afc", "cfc", "sfc", "ac", "ad", "cd", "ud", "rc",
	"club", "united", "city",
}

var punctuation = regexp.MustCompile(`['’.,()\-]`)
var whitespace = regexp.MustCompile(`\s+`)

// cyrillicToLatin transliterates Serbian Cyrillic to Latin so a provider
// reporting "Партизан" and one reporting "Partizan" normalize identically.
// NFKD folding alone does nothing for Cyrillic (it has no Latin compatibility
// decomposition), so this runs as its own pass ahead of it.
var cyrillicToLatin = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'ђ': "dj", 'е': "e",
	'ж': "z", 'з': "z", 'и': "i", 'ј': "j", 'к': "k", 'л': "l", 'љ': "lj",
	'м': "m", 'н': "n", 'њ': "nj", 'о': "o", 'п': "p", 'р': "r", 'с': "s",
	'т': "t", 'ћ': "c", 'у': "u", 'ф': "f", 'х': "h", 'ц': "c", 'ч': "c",
	'џ': "dz", 'ш': "s",
	'А': "A", 'Б': "B", 'В': "V", 'Г': "G", 'Д': "D", 'Ђ': "Dj", 'Е': "E",
	'Ж': "Z", 'З': "Z", 'И': "I", 'Ј': "J", 'К': "K", 'Л': "L", 'Љ': "Lj",
	'М': "M", 'Н': "N", 'Њ': "Nj", 'О': "O", 'П': "P", 'Р': "R", 'С': "S",
	'Т': "T", 'Ћ': "C", 'У': "U", 'Ф': "F", 'Х': "H", 'Ц': "C", 'Ч': "C",
	'Џ': "Dz", 'Ш': "S",
}

// categoryPatterns flag narrower-scoped team names (age group, gender,
// reserve/youth squads) that a raw fuzzy match must never paper over: a
// senior team and its U19 side are not the same match regardless of name
// similarity.
var categoryPatterns = map[string]*regexp.Regexp{
	"u15":      regexp.MustCompile(`(?i)\b(u-?15|under.?15|jun(?:ior)?s?\s*15)\b`),
	"u16":      regexp.MustCompile(`(?i)\b(u-?16|under.?16|jun(?:ior)?s?\s*16)\b`),
	"u17":      regexp.MustCompile(`(?i)\b(u-?17|under.?17|jun(?:ior)?s?\s*17)\b`),
	"u18":      regexp.MustCompile(`(?i)\b(u-?18|under.?18|jun(?:ior)?s?\s*18)\b`),
	"u19":      regexp.MustCompile(`(?i)\b(u-?19|under.?19|jun(?:ior)?s?\s*19)\b`),
	"u20":      regexp.MustCompile(`(?i)\b(u-?20|under.?20|jun(?:ior)?s?\s*20)\b`),
	"u21":      regexp.MustCompile(`(?i)\b(u-?21|under.?21|jun(?:ior)?s?\s*21)\b`),
	"u23":      regexp.MustCompile(`(?i)\b(u-?23|under.?23)\b`),
	"women":    regexp.MustCompile(`(?i)\b(wom[ae]n|ladies|female|zene)\b|\bw\)`),
	"reserves": regexp.MustCompile(`(?i)\b(reserves?|res\.|ii|b\s*team)\b`),
	"youth":    regexp.MustCompile(`(?i)\b(youth|omladinci|kadeti|pioniri)\b`),
	"amateur":  regexp.MustCompile(`(?i)\b(amat(?:eu)?r|ljubitelji)\b`),
}

// Team runs the full normalization pipeline: Cyrillic transliteration,
// NFKD diacritic fold, lowercase, category/affix/punctuation strip,
// whitespace collapse. It is pure and side-effect-free.
func Team(raw string) string {
	s := transliterateCyrillic(raw)
	s = foldDiacritics(s)
	s = strings.ToLower(s)
	s = stripCategoryMarkers(s)
	s = punctuation.ReplaceAllString(s, " ")
	s = whitespace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = stripAffixes(s)
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func transliterateCyrillic(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if lat, ok := cyrillicToLatin[r]; ok {
			b.WriteString(lat)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func stripCategoryMarkers(s string) string {
	for _, re := range categoryPatterns {
		s = re.ReplaceAllString(s, " ")
	}
	return s
}

// Categories reports which age-group/gender/reserve markers appear anywhere
// across a match's two team names; a marker on either side counts.
func Categories(team1, team2 string) map[string]bool {
	combined := strings.ToLower(team1 + " " + team2)
	out := make(map[string]bool, len(categoryPatterns))
	for name, re := range categoryPatterns {
		if re.MatchString(combined) {
			out[name] = true
		}
	}
	return out
}

// SameCategory is the resolver's hard filter: two sides
// must carry identical category markers before similarity scoring even
// applies. Without it, "Partizan" vs "Partizan U19" normalizes to the same
// base name and can cross the similarity thresholds on raw fuzzy score alone.
func SameCategory(team1A, team2A, team1B, team2B string) bool {
	a := Categories(team1A, team2A)
	b := Categories(team1B, team2B)
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func foldDiacritics(s string) string {
	t := norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(t))
	for _, r := range t {
		if unicode.Is(unicode.Mn, r) { // combining marks dropped after NFKD split
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func stripAffixes(s string) string {
	tokens := strings.Fields(s)
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if isAffix(tok) {
			continue
		}
		kept = append(kept, tok)
	}
	if len(kept) == 0 {
		// every token was an affix (e.g. input was just "FC") - keep the original.
		return s
	}
	return strings.Join(kept, " ")
}

func isAffix(tok string) bool {
	for _, a := range clubAffixes {
		if tok == a {
			return true
		}
	}
	return false
}

// TennisPlayer reduces "Last, First" or "First Last" to a canonical
// surname-only token.
func TennisPlayer(raw string) string {
	s := strings.TrimSpace(raw)
	if idx := strings.Index(s, ","); idx >= 0 {
		return Team(s[:idx])
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return Team(fields[len(fields)-1])
}

// PairEqual compares two (home, away) team pairs order-insensitively, for
// sports where provider order is not reliable.
func PairEqual(home1, away1, home2, away2 string) bool {
	h1, a1 := Team(home1), Team(away1)
	h2, a2 := Team(home2), Team(away2)
	return (h1 == h2 && a1 == a2) || (h1 == a2 && a1 == h2)
}
