package listing

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var (
	numberRe = regexp.MustCompile(`[\d.,]+`)
	digitsRe = regexp.MustCompile(`\d+`)
)

// ParseRating pulls the star rating out of an aria-label like
// "4,5 stelle 123 recensioni". The decimal comma is normalized to a dot.
func ParseRating(text string) string {
	if text == "" {
		return ""
	}
	m := numberRe.FindString(text)
	return strings.ReplaceAll(m, ",", ".")
}

// ParseReviews pulls the review count out of a label like "1.234 recensioni".
// Thousands separators are dropped.
func ParseReviews(text string) string {
	if text == "" {
		return ""
	}
	return digitsRe.FindString(strings.ReplaceAll(text, ".", ""))
}

// NormalizePhone formats a raw phone string in international form, assuming
// Italian numbers when no country code is present. Unparseable input is
// returned trimmed but otherwise as-is.
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	num, err := phonenumbers.Parse(raw, "IT")
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return raw
	}
	return phonenumbers.Format(num, phonenumbers.INTERNATIONAL)
}
