package resolver

import (
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"plaques2gallery/internal/browser"
)

// SelectLargest returns the visible image with the largest rendered area of
// at least minArea. Ties go to the earlier element in document order.
func SelectLargest(images []browser.Image, minArea float64) (browser.Image, bool) {
	var (
		best  browser.Image
		found bool
	)
	for _, img := range images {
		area := img.Area()
		if math.IsNaN(area) || math.IsInf(area, 0) || area < minArea || area <= 0 {
			continue
		}
		if !found || area > best.Area() || (area == best.Area() && img.Index < best.Index) {
			best = img
			found = true
		}
	}
	return best, found
}

type srcsetEntry struct {
	url   string
	value float64
}

// parseSrcSet returns srcset URLs by descending w/x descriptor. Entries
// without a usable descriptor follow in reverse order of appearance, since
// authors usually list the largest source last. Commas inside a URL are kept.
func parseSrcSet(srcset string) []string {
	var described []srcsetEntry
	var plain []string
	rest := srcset
	for {
		rest = strings.TrimLeft(rest, " \t\n\r\f,")
		if rest == "" {
			break
		}
		end := strings.IndexAny(rest, " \t\n\r\f")
		if end < 0 {
			end = len(rest)
		}
		ref, descriptor := rest[:end], ""
		rest = rest[end:]
		if trimmed := strings.TrimRight(ref, ","); trimmed != ref {
			ref = trimmed
		} else {
			comma := strings.IndexByte(rest, ',')
			if comma < 0 {
				comma = len(rest)
			}
			descriptor = strings.TrimSpace(rest[:comma])
			rest = rest[comma:]
		}
		if value := descriptorValue(descriptor); value > 0 {
			described = append(described, srcsetEntry{url: ref, value: value})
		} else {
			plain = append(plain, ref)
		}
	}
	sort.SliceStable(described, func(i, j int) bool { return described[i].value > described[j].value })
	out := make([]string, 0, len(described)+len(plain))
	for _, entry := range described {
		out = append(out, entry.url)
	}
	for i := len(plain) - 1; i >= 0; i-- {
		out = append(out, plain[i])
	}
	return out
}

func descriptorValue(descriptor string) float64 {
	descriptor = strings.ToLower(strings.TrimSpace(descriptor))
	if len(descriptor) < 2 {
		return 0
	}
	unit := descriptor[len(descriptor)-1]
	if unit != 'w' && unit != 'x' {
		return 0
	}
	value, err := strconv.ParseFloat(descriptor[:len(descriptor)-1], 64)
	if err != nil || value <= 0 {
		return 0
	}
	return value
}

// SourceURLs lists download candidates for img: srcset entries by
// descending descriptor, then src, then any other attribute holding a URL.
// Relative references resolve against pageURL; duplicates and non-http
// schemes are dropped.
func SourceURLs(pageURL string, img browser.Image) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		base = &url.URL{}
	}
	seen := make(map[string]struct{})
	var out []string
	add := func(ref string) {
		ref = strings.TrimSpace(ref)
		if ref == "" || strings.HasPrefix(ref, "data:") {
			return
		}
		resolved, err := base.Parse(ref)
		if err != nil || (resolved.Scheme != "http" && resolved.Scheme != "https") || resolved.Host == "" {
			return
		}
		key := resolved.String()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}

	srcset := img.SrcSet
	if srcset == "" {
		srcset = img.Attrs["srcset"]
	}
	for _, ref := range parseSrcSet(srcset) {
		add(ref)
	}
	if img.Src != "" {
		add(img.Src)
	}
	add(img.Attrs["src"])

	keys := make([]string, 0, len(img.Attrs))
	for key := range img.Attrs {
		if key == "src" || key == "srcset" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := strings.TrimSpace(img.Attrs[key])
		if looksLikeURL(value) {
			add(value)
		}
	}
	return out
}

func looksLikeURL(value string) bool {
	if value == "" || strings.ContainsAny(value, " \t\n") {
		return false
	}
	lower := strings.ToLower(value)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "//") ||
		strings.HasPrefix(lower, "/")
}
