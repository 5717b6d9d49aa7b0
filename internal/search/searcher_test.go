package search_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"plaques2gallery/internal/quota"
	"plaques2gallery/internal/records"
	"plaques2gallery/internal/search"
	"plaques2gallery/internal/services"
	"plaques2gallery/internal/testsupport"
)

func newCounter(t *testing.T, limit int) *quota.Counter {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	return quota.New(quota.NewStoreBackend(store), limit, 24*time.Hour, time.UTC)
}

func remaining(t *testing.T, counter *quota.Counter) int {
	t.Helper()
	left, err := counter.Remaining(context.Background())
	if err != nil {
		t.Fatalf("Remaining failed: %v", err)
	}
	return left
}

func googleServer(t *testing.T, status int, payload any, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.URL.Query().Get("key") != "k" || r.URL.Query().Get("cx") != "cx" || r.URL.Query().Get("num") != "3" {
			t.Errorf("unexpected query params %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(payload)
	}))
}

func items(links ...string) map[string]any {
	out := make([]any, 0, len(links))
	for _, link := range links {
		out = append(out, map[string]any{"link": link})
	}
	return map[string]any{"items": out}
}

func TestSearchReturnsRankedCandidates(t *testing.T) {
	var calls int32
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		gotQuery = r.URL.Query().Get("q")
		_ = json.NewEncoder(w).Encode(items(
			"https://en.wikipedia.org/wiki/The_Starry_Night",
			" ",
			"https://en.wikipedia.org/wiki/The_Starry_Night",
			"javascript:void(0)",
			"https://www.moma.org/collection/works/79802",
			"https://example.com/starry",
			"https://example.com/extra",
		))
	}))
	defer server.Close()

	counter := newCounter(t, 5)
	searcher := search.NewSearcher(search.NewGoogleProvider("k", "cx", server.URL, time.Second), counter, 3, nil)
	candidates, err := searcher.Search(context.Background(), records.Query{Title: "Starry Night", Artist: "Vincent van Gogh"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if gotQuery != "Starry Night by Vincent van Gogh" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %#v", candidates)
	}
	if candidates[1].URL != "https://www.moma.org/collection/works/79802" || candidates[1].Rank != 1 {
		t.Fatalf("unexpected second candidate %#v", candidates[1])
	}
	if remaining(t, counter) != 4 {
		t.Fatal("expected one quota unit consumed")
	}
}

func TestSearchQuotaExceededMakesNoCall(t *testing.T) {
	var calls int32
	server := googleServer(t, http.StatusOK, items("https://a.test/"), &calls)
	defer server.Close()

	counter := newCounter(t, 1)
	searcher := search.NewSearcher(search.NewGoogleProvider("k", "cx", server.URL, time.Second), counter, 3, nil)
	ctx := context.Background()
	if _, err := searcher.Search(ctx, records.Query{Title: "One"}); err != nil {
		t.Fatalf("first search failed: %v", err)
	}
	_, err := searcher.Search(ctx, records.Query{Title: "Two"})
	if !errors.Is(err, search.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if services.Classify(err) != services.DispositionStop {
		t.Fatalf("expected stop disposition, got %s", services.Classify(err))
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected a single provider call, got %d", calls)
	}
}

func TestSearchProviderErrors(t *testing.T) {
	cases := []struct {
		name          string
		status        int
		reason        string
		want          services.Disposition
		wantRemaining int
	}{
		{"daily limit", http.StatusForbidden, "dailyLimitExceeded", services.DispositionStop, 0},
		{"rate limited", http.StatusTooManyRequests, "rateLimitExceeded", services.DispositionStop, 0},
		{"bad key", http.StatusForbidden, "forbidden", services.DispositionAbort, 3},
		{"unauthorized", http.StatusUnauthorized, "", services.DispositionAbort, 3},
		{"bad request", http.StatusBadRequest, "invalid", services.DispositionFail, 3},
		{"server error", http.StatusServiceUnavailable, "backendError", services.DispositionRetry, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var calls int32
			payload := map[string]any{"error": map[string]any{
				"code":    tc.status,
				"message": "failure " + tc.name,
				"errors":  []any{map[string]any{"reason": tc.reason}},
			}}
			server := googleServer(t, tc.status, payload, &calls)
			defer server.Close()

			counter := newCounter(t, 3)
			searcher := search.NewSearcher(search.NewGoogleProvider("k", "cx", server.URL, time.Second), counter, 3, nil)
			_, err := searcher.Search(context.Background(), records.Query{Title: "The Kiss"})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := services.Classify(err); got != tc.want {
				t.Fatalf("expected %s, got %s (%v)", tc.want, got, err)
			}
			if got := remaining(t, counter); got != tc.wantRemaining {
				t.Fatalf("expected %d remaining, got %d", tc.wantRemaining, got)
			}
		})
	}
}

func TestSearchNoResults(t *testing.T) {
	var calls int32
	server := googleServer(t, http.StatusOK, map[string]any{"searchInformation": map[string]any{"totalResults": "0"}}, &calls)
	defer server.Close()

	searcher := search.NewSearcher(search.NewGoogleProvider("k", "cx", server.URL, time.Second), newCounter(t, 3), 3, nil)
	_, err := searcher.Search(context.Background(), records.Query{Title: "Nothing"})
	if !errors.Is(err, search.ErrNoResults) {
		t.Fatalf("expected ErrNoResults, got %v", err)
	}
	if services.Classify(err) != services.DispositionFail {
		t.Fatal("no results must fail the record")
	}
}

func TestSearchTimeoutIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	counter := newCounter(t, 3)
	searcher := search.NewSearcher(search.NewGoogleProvider("k", "cx", server.URL, 50*time.Millisecond), counter, 3, nil)
	_, err := searcher.Search(context.Background(), records.Query{Title: "Slow"})
	if services.Classify(err) != services.DispositionRetry {
		t.Fatalf("expected retry disposition, got %v", err)
	}
	if remaining(t, counter) != 3 {
		t.Fatal("timed out call must be refunded")
	}
}
