package alert

import (
	"net/url"
	"strings"
	"unicode"
)

// renderTitle derives a human-readable title from a reference URL.
//
// Article slugs look like "Торфяник_Радовицкий_Мох_42": underscores
// separate words and a trailing numeric token is the catalogue id. Such
// links render as "<words> (id <token>)"; anything else renders as the
// decoded last path segment verbatim. Malformed links must not raise —
// the worst case is an ugly title, never a lost alert.
func renderTitle(wikiURL string) string {
	raw := wikiURL
	if i := strings.LastIndex(raw, "/"); i >= 0 {
		raw = raw[i+1:]
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		decoded = raw
	}

	parts := strings.Split(decoded, "_")
	last := parts[len(parts)-1]
	if len(parts) > 1 && isDigits(last) {
		return strings.Join(parts[:len(parts)-1], " ") + " (id " + last + ")"
	}
	return decoded
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
