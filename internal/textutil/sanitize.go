package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxTokenLength bounds the readable part of generated file names.
const maxTokenLength = 80

// FoldDiacritics strips combining marks so "Café Müller" becomes "Cafe Muller".
func FoldDiacritics(value string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(folder, value)
	if err != nil {
		return value
	}
	return out
}

// CollapseWhitespace trims value and replaces every whitespace run with a
// single space.
func CollapseWhitespace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// SanitizeToken converts a string to a lowercase filesystem-safe token.
// Diacritics are folded first; letters are lowercased, digits and
// hyphens/underscores are kept, everything else becomes an underscore and
// runs of underscores collapse. Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(FoldDiacritics(value))
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	lastUnderscore := false
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "_-")
	if len(out) > maxTokenLength {
		out = strings.TrimRight(out[:maxTokenLength], "_-")
	}
	if out == "" {
		return "unknown"
	}
	return out
}

// ShortHash returns the first 8 hex characters of sha256(value).
func ShortHash(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:4])
}

// StableFileName returns "<token>-<hash8><ext>" for id. Distinct ids whose
// tokens collide still map to distinct names.
func StableFileName(id, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return SanitizeToken(id) + "-" + ShortHash(id) + ext
}
