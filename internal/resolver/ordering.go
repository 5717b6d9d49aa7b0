package resolver

import (
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/publicsuffix"

	"plaques2gallery/internal/config"
	"plaques2gallery/internal/records"
)

// Order returns the candidates in the sequence they are tried. Under
// trust_first, candidates on a trusted domain come first; rank order is kept
// within each group. Any other policy keeps pure rank order.
func Order(candidates []records.Candidate, policy string, trustDomains []string) []records.Candidate {
	ordered := append([]records.Candidate(nil), candidates...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Rank < ordered[j].Rank })
	if policy != config.OrderingTrustFirst {
		return ordered
	}
	trusted := make([]records.Candidate, 0, len(ordered))
	rest := make([]records.Candidate, 0, len(ordered))
	for _, candidate := range ordered {
		if IsTrusted(candidate.URL, trustDomains) {
			trusted = append(trusted, candidate)
		} else {
			rest = append(rest, candidate)
		}
	}
	return append(trusted, rest...)
}

// IsTrusted reports whether the URL's registrable domain, or the host
// itself, matches an entry of trustDomains.
func IsTrusted(rawURL string, trustDomains []string) bool {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	host := strings.TrimSuffix(strings.ToLower(parsed.Hostname()), ".")
	if host == "" {
		return false
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		registrable = host
	}
	for _, domain := range trustDomains {
		domain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), ".")
		if domain == "" {
			continue
		}
		if registrable == domain || host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
