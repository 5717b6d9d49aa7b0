package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"plaques2gallery/internal/config"
)

// Provider returns result page URLs for query in provider rank order.
type Provider interface {
	Search(ctx context.Context, query string, num int) ([]string, error)
}

// ProviderError is a non-2xx response from the search API.
type ProviderError struct {
	StatusCode int
	Reason     string
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("search api: http %d (%s): %s", e.StatusCode, e.Reason, e.Message)
	}
	return fmt.Sprintf("search api: http %d: %s", e.StatusCode, e.Message)
}

// QuotaSpent reports whether the provider refused because its own quota is gone.
func (e *ProviderError) QuotaSpent() bool {
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	if e.StatusCode != http.StatusForbidden {
		return false
	}
	switch e.Reason {
	case "dailyLimitExceeded", "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded":
		return true
	}
	return false
}

// GoogleProvider calls the Google Custom Search JSON API.
type GoogleProvider struct {
	apiKey     string
	engineID   string
	baseURL    string
	httpClient *http.Client
}

// NewGoogleProvider builds a provider with a bounded request timeout.
func NewGoogleProvider(apiKey, engineID, baseURL string, timeout time.Duration) *GoogleProvider {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &GoogleProvider{
		apiKey:     strings.TrimSpace(apiKey),
		engineID:   strings.TrimSpace(engineID),
		baseURL:    strings.TrimSpace(baseURL),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NewGoogleProviderFromConfig reads the search section.
func NewGoogleProviderFromConfig(cfg *config.Config) *GoogleProvider {
	return NewGoogleProvider(cfg.Search.APIKey, cfg.Search.EngineID, cfg.Search.BaseURL, cfg.SearchTimeout())
}

type googleResponse struct {
	Items []struct {
		Link string `json:"link"`
	} `json:"items"`
}

type googleErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// Search issues one API call. A query with no results returns an empty slice.
func (g *GoogleProvider) Search(ctx context.Context, query string, num int) ([]string, error) {
	endpoint, err := url.Parse(g.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse search url: %w", err)
	}
	params := endpoint.Query()
	params.Set("key", g.apiKey)
	params.Set("cx", g.engineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(num))
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseProviderError(resp.StatusCode, body)
	}

	var decoded googleResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	links := make([]string, 0, len(decoded.Items))
	for _, item := range decoded.Items {
		links = append(links, item.Link)
	}
	return links, nil
}

func parseProviderError(status int, body []byte) error {
	perr := &ProviderError{StatusCode: status, Message: strings.TrimSpace(string(body))}
	var decoded googleErrorResponse
	if err := json.Unmarshal(body, &decoded); err == nil && decoded.Error.Message != "" {
		perr.Message = decoded.Error.Message
		if len(decoded.Error.Errors) > 0 {
			perr.Reason = decoded.Error.Errors[0].Reason
		}
	}
	if len(perr.Message) > 300 {
		perr.Message = perr.Message[:300] + "..."
	}
	return perr
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
