package normalize

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"unicode"

	"event-radar/ingester/internal/model"
)

// NormalizeText lowercases, strips non-alphanumeric runes and
// collapses whitespace. Two listings differing only in punctuation or
// case normalize to the same text, which is what makes the hash a
// usable dedup key.
func NormalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// EventHash is the 128-bit dedup key over the normalized identity
// fields (title, date, location, source).
func EventHash(title, date, location string, source model.Source) string {
	payload := NormalizeText(title) + "|" + date + "|" + NormalizeText(location) + "|" + string(source)
	sum := md5.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}
