package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"plaques2gallery/internal/textutil"
)

var placeholderArtists = map[string]struct{}{
	"unknown":        {},
	"unknown artist": {},
	"n/a":            {},
	"na":             {},
	"none":           {},
	"null":           {},
	"undefined":      {},
	"-":              {},
}

// cleanField applies NFC, collapses whitespace, trims surrounding noise and
// folds an exact repetition ("Mona Lisa Mona Lisa") to one instance.
func cleanField(value string) string {
	value = norm.NFC.String(value)
	value = textutil.CollapseWhitespace(value)
	value = strings.TrimFunc(value, isEdgeNoise)
	return collapseRepetition(value)
}

func isEdgeNoise(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	switch r {
	case '"', '\'', '`', '“', '”', '‘', '’', '«', '»', ',', ';', ':', '-', '–', '—', '*', '#', '_', '|', '~', '/', '\\':
		return true
	}
	return false
}

func collapseRepetition(value string) string {
	words := strings.Fields(value)
	if len(words) < 2 || len(words)%2 != 0 {
		return value
	}
	half := len(words) / 2
	for i := 0; i < half; i++ {
		if !strings.EqualFold(strings.Trim(words[i], ",;"), strings.Trim(words[half+i], ",;")) {
			return value
		}
	}
	return strings.TrimFunc(strings.Join(words[:half], " "), isEdgeNoise)
}

func isPlaceholderArtist(value string) bool {
	_, ok := placeholderArtists[strings.ToLower(strings.TrimSpace(value))]
	return ok
}
