package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"plaques2gallery/internal/logging"
	"plaques2gallery/internal/quota"
	"plaques2gallery/internal/records"
	"plaques2gallery/internal/services"
)

const stageName = "search"

// ErrQuotaExceeded is returned when the window's budget is spent. Nothing
// was sent to the provider.
var ErrQuotaExceeded = services.ErrQuotaExceeded

// ErrNoResults marks queries the provider returned nothing usable for.
var ErrNoResults = errors.New("no search results")

// QuotaCounter is the subset of quota.Counter the searcher needs.
type QuotaCounter interface {
	TryAcquire(ctx context.Context) (quota.Lease, bool, error)
	Release(ctx context.Context, lease quota.Lease) error
	Exhaust(ctx context.Context) error
}

// Searcher runs quota-guarded searches.
type Searcher struct {
	provider Provider
	quota    QuotaCounter
	results  int
	logger   *slog.Logger
}

// NewSearcher constructs a Searcher returning at most results URLs.
func NewSearcher(provider Provider, quota QuotaCounter, results int, logger *slog.Logger) *Searcher {
	if results <= 0 {
		results = 3
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Searcher{provider: provider, quota: quota, results: results, logger: logger}
}

// Search returns up to the configured number of candidate URLs for query.
//
// Errors carry services markers: quota exhaustion (stop the batch), storage
// and configuration (end the run), transient (retry next run) and
// validation or ErrNoResults (fail the record).
func (s *Searcher) Search(ctx context.Context, query records.Query) ([]records.Candidate, error) {
	text := strings.TrimSpace(query.String())
	if text == "" {
		return nil, services.Wrap(services.ErrValidation, stageName, "query", "empty query", nil)
	}

	lease, ok, err := s.quota.TryAcquire(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, stageName, "acquire quota", "", err)
	}
	if !ok {
		return nil, services.Wrap(ErrQuotaExceeded, stageName, "acquire quota", "window limit reached", nil)
	}

	links, err := s.provider.Search(ctx, text, s.results)
	if err != nil {
		return nil, s.providerFailure(ctx, lease, err)
	}

	candidates := dedupe(links, s.results)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w for %q", ErrNoResults, text)
	}
	return candidates, nil
}

func (s *Searcher) providerFailure(ctx context.Context, lease quota.Lease, cause error) error {
	logger := logging.WithContext(ctx, s.logger)
	var perr *ProviderError
	if errors.As(cause, &perr) && perr.QuotaSpent() {
		if err := s.quota.Exhaust(context.WithoutCancel(ctx)); err != nil {
			return services.Wrap(services.ErrStorage, stageName, "exhaust quota", "", err)
		}
		logging.WarnWithContext(logger, "provider reported quota exhausted", "search_quota_exhausted",
			logging.Int("status", perr.StatusCode),
			logging.String("reason", perr.Reason),
			logging.String(logging.FieldErrorHint, "the provider's daily quota is spent; the batch resumes next window"),
		)
		return services.Wrap(ErrQuotaExceeded, stageName, "request", "provider quota exhausted", cause)
	}

	if err := s.quota.Release(context.WithoutCancel(ctx), lease); err != nil {
		return services.Wrap(services.ErrStorage, stageName, "release quota", "", err)
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if perr != nil {
		switch {
		case perr.StatusCode == http.StatusUnauthorized || perr.StatusCode == http.StatusForbidden:
			return services.Wrap(services.ErrConfiguration, stageName, "request", "credentials rejected", cause)
		case perr.StatusCode >= http.StatusInternalServerError || perr.StatusCode == http.StatusRequestTimeout:
			return services.Wrap(services.ErrTransient, stageName, "request", "provider unavailable", cause)
		default:
			return services.Wrap(services.ErrValidation, stageName, "request", "query rejected", cause)
		}
	}
	if isTimeout(cause) {
		return services.Wrap(services.ErrTimeout, stageName, "request", "timed out", cause)
	}
	var urlErr *url.Error
	if errors.As(cause, &urlErr) {
		return services.Wrap(services.ErrTransient, stageName, "request", "network error", cause)
	}
	return services.Wrap(services.ErrValidation, stageName, "request", "unusable response", cause)
}

// dedupe keeps the first limit distinct non-blank absolute http(s) links
// and ranks them in provider order.
func dedupe(links []string, limit int) []records.Candidate {
	seen := make(map[string]struct{}, len(links))
	out := make([]records.Candidate, 0, limit)
	for _, link := range links {
		link = strings.TrimSpace(link)
		if link == "" {
			continue
		}
		parsed, err := url.Parse(link)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			continue
		}
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		out = append(out, records.Candidate{URL: link, Rank: len(out)})
		if len(out) == limit {
			break
		}
	}
	return out
}
