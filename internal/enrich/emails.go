package enrich

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

var emailRe = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

// ExtractEmails finds email-like tokens in raw HTML or text. Matches are
// percent-decoded and deduplicated; the result is sorted so downstream
// selection is deterministic. Never fails, no matches yields an empty slice.
func ExtractEmails(text string) []string {
	seen := make(map[string]struct{})
	for _, m := range emailRe.FindAllString(text, -1) {
		// PathUnescape, not QueryUnescape: a + in the local part is a valid
		// address character, not an encoded space.
		if decoded, err := url.PathUnescape(m); err == nil {
			m = decoded
		}
		seen[m] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for e := range seen {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// blacklistDomains are tracking/monitoring SaaS domains that show up in page
// source but never belong to the business itself.
var blacklistDomains = map[string]struct{}{
	"wixpress.com":             {},
	"sentry-next.wixpress.com": {},
	"sentry.io":                {},
}

var blacklistSuffixes = []string{"wixpress.com", "sentry.io"}

// commonProviders are public mailbox providers a small business plausibly
// uses when it has no same-domain address.
var commonProviders = map[string]struct{}{
	"gmail.com":   {},
	"outlook.com": {},
	"hotmail.com": {},
	"yahoo.it":    {},
	"yahoo.com":   {},
	"virgilio.it": {},
}

// SelectEmail ranks extracted candidates against the site's own host and
// returns the best one, or "" when nothing survives filtering. Candidates are
// expected in sorted order (ExtractEmails output), which fixes the tie-break.
//
// Policy, first non-empty wins: drop junk (oversized local part, blacklisted
// or script-artifact domains), prefer a same-organization address, then a
// common public provider, then the first survivor.
func SelectEmail(candidates []string, website string) string {
	if len(candidates) == 0 {
		return ""
	}

	siteHost := ""
	if website != "" {
		if !strings.Contains(website, "://") {
			website = "https://" + website
		}
		if u, err := url.Parse(website); err == nil {
			siteHost = strings.ToLower(u.Host)
		}
	}

	var filtered []string
	for _, e := range candidates {
		if e == "" {
			continue
		}
		local, domain := splitEmail(e)
		if domain == "" || len(local) > 40 {
			continue
		}
		if _, bad := blacklistDomains[domain]; bad {
			continue
		}
		if hasAnySuffix(domain, blacklistSuffixes) {
			continue
		}
		// Script file names sliced mid-token by the regex look like emails.
		if strings.Contains(domain, ".js") || strings.Contains(local, ".js") {
			continue
		}
		filtered = append(filtered, e)
	}
	if len(filtered) == 0 {
		return ""
	}

	if siteHost != "" {
		for _, e := range filtered {
			_, domain := splitEmail(e)
			if strings.Contains(siteHost, domain) {
				return e
			}
		}
	}
	for _, e := range filtered {
		_, domain := splitEmail(e)
		if _, ok := commonProviders[domain]; ok {
			return e
		}
	}
	return filtered[0]
}

// splitEmail returns the local part and lowercased domain, or empty strings
// when the address does not have exactly one @.
func splitEmail(email string) (local, domain string) {
	parts := strings.Split(strings.ToLower(email), "@")
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
