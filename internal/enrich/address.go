package enrich

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// Literal \uXXXX escape sequences left behind by icon glyphs in scraped
	// address text.
	escapeRe = regexp.MustCompile(`\\u[0-9a-fA-F]{4}`)

	// Postal code followed by city and province code: "20100 Milano MI".
	capCityRe = regexp.MustCompile(`\b\d{5}\s+([A-ZÀ-Ö][a-zà-ö]+(?:\s+[A-ZÀ-Ö][a-zà-ö]+)*)\s+[A-Z]{2}\b`)

	// City and province code at the end: "Via X, Milano MI".
	tailCityRe = regexp.MustCompile(`,\s*([A-ZÀ-Ö][a-zà-ö]+(?:\s+[A-ZÀ-Ö][a-zà-ö]+)*)\s+[A-Z]{2}\s*$`)
)

// ExtractCity pulls a city name out of a free-form Italian postal address.
// Common shapes: "Via X, 123, 20100 Milano MI", "Via X, Milano",
// "Piazza X, 20100 Milano MI". Returns "" when nothing plausible is found.
func ExtractCity(address string) string {
	if address == "" {
		return ""
	}
	address = strings.TrimSpace(escapeRe.ReplaceAllString(address, ""))

	if m := capCityRe.FindStringSubmatch(address); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := tailCityRe.FindStringSubmatch(address); m != nil {
		return strings.TrimSpace(m[1])
	}

	// Fallback: last capitalized word, skipping province codes and postal codes.
	words := strings.Fields(address)
	for i := len(words) - 1; i >= 0; i-- {
		word := words[i]
		if word == "" || strings.HasSuffix(word, ",") {
			continue
		}
		first, _ := utf8.DecodeRuneInString(word)
		if !unicode.IsUpper(first) || utf8.RuneCountInString(word) <= 2 {
			continue
		}
		if isPostalCode(word) {
			continue
		}
		return word
	}
	return ""
}

func isPostalCode(word string) bool {
	if len(word) != 5 {
		return false
	}
	for _, r := range word {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
