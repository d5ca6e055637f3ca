// internal/pkg/slug/slug.go
package slug

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength bounds the base part of a generated slug
const MaxLength = 80

// Make turns a display name into a URL-friendly slug. Accents are folded,
// every run of non-alphanumeric characters becomes a single dash and the
// result is trimmed and cut to maxLen.
func Make(name string, maxLen int) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	pendingDash := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}

	s := b.String()
	if maxLen > 0 && len(s) > maxLen {
		s = strings.TrimRight(s[:maxLen], "-")
	}
	return s
}

// WithToken appends a base-36 timestamp so repeated names do not collide
func WithToken(base string, now time.Time) string {
	token := strconv.FormatInt(now.UnixMilli(), 36)
	if base == "" {
		return token
	}
	return base + "-" + token
}
