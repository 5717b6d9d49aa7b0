package workflow_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"plaques2gallery/internal/browser"
	"plaques2gallery/internal/metrics"
	"plaques2gallery/internal/normalize"
	"plaques2gallery/internal/quota"
	"plaques2gallery/internal/records"
	"plaques2gallery/internal/resolver"
	"plaques2gallery/internal/search"
	"plaques2gallery/internal/testsupport"
	"plaques2gallery/internal/workflow"
)

func TestWorkflowIntegrationEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	counter := quota.New(quota.NewStoreBackend(store), cfg.Quota.Limit, cfg.QuotaWindow(), cfg.QuotaLocation())

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/slow":
			select {
			case <-time.After(5 * time.Second):
			case <-r.Context().Done():
			}
		case "/painting":
			w.Header().Set("Content-Type", "text/html")
			_, _ = fmt.Fprint(w, `<html><body>
				<img src="/img/thumb.png" width="120" height="90">
				<img src="/img/starry.png" width="640" height="480">
			</body></html>`)
		case "/other":
			w.Header().Set("Content-Type", "text/html")
			_, _ = fmt.Fprint(w, `<html><body><img src="/img/thumb.png" width="120" height="90"></body></html>`)
		case "/img/starry.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(testsupport.PNG(t, 640, 480))
		case "/img/thumb.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(testsupport.PNG(t, 120, 90))
		default:
			http.NotFound(w, r)
		}
	}))
	defer site.Close()

	var searches int32
	var gotQuery atomic.Value
	google := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&searches, 1)
		gotQuery.Store(r.URL.Query().Get("q"))
		_ = json.NewEncoder(w).Encode(map[string]any{"items": []any{
			map[string]any{"link": site.URL + "/slow"},
			map[string]any{"link": site.URL + "/painting"},
			map[string]any{"link": site.URL + "/other"},
		}})
	}))
	defer google.Close()

	extractor := &stubExtractor{
		texts: map[string]string{
			"room3/starry.jpg":    "Vincent van G0gh\nStarry Night\n1889, oil on canvas",
			"room3/illegible.jpg": "###illegible###",
		},
		calls: map[string]int{},
	}
	normalizer, err := normalize.New(&stubCompleter{}, cfg.Normalize.MinConfidence, nil)
	if err != nil {
		t.Fatalf("normalize.New failed: %v", err)
	}
	searcher := search.NewSearcher(search.NewGoogleProvider("k", "cx", google.URL, time.Second), counter, cfg.Search.Results, nil)

	opts := resolver.OptionsFromConfig(cfg)
	opts.PageTimeout = 300 * time.Millisecond
	opts.DownloadTimeout = time.Second
	res := resolver.New(browser.NewStaticRenderer(browser.OptionsFromConfig(cfg)), opts, nil)

	exporter := metrics.New()
	notifier := &stubNotifier{}
	manager := workflow.NewManager(cfg, store, counter, nil,
		workflow.WithNotifier(notifier),
		workflow.WithMetrics(exporter),
	)
	manager.ConfigureStages(workflow.StageSet{
		Normalizer: normalize.NewStage(extractor, normalizer, nil),
		Searcher:   search.NewStage(searcher),
		Resolver:   resolver.NewStage(res),
	})
	if err := manager.Preflight(context.Background()); err != nil {
		t.Fatalf("Preflight failed: %v", err)
	}

	testsupport.Ingest(t, store, cfg, "room3/starry.jpg")
	testsupport.Ingest(t, store, cfg, "room3/illegible.jpg")

	summary, err := manager.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	starry, err := store.Get(context.Background(), "room3/starry.jpg")
	if err != nil || starry == nil {
		t.Fatalf("Get starry failed: %v", err)
	}
	if starry.Status != records.StatusResolved {
		t.Fatalf("expected starry resolved, got %s (%s: %s)", starry.Status, starry.FailureStage, starry.FailureReason)
	}
	if starry.Query == nil || starry.Query.Title != "Starry Night" || starry.Query.Artist != "Vincent van Gogh" {
		t.Fatalf("unexpected query %+v", starry.Query)
	}
	if q, _ := gotQuery.Load().(string); q != "Starry Night by Vincent van Gogh" {
		t.Fatalf("unexpected search query %q", q)
	}
	if len(starry.Candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(starry.Candidates))
	}
	if starry.SourceURL != site.URL+"/painting" || starry.ImageURL != site.URL+"/img/starry.png" {
		t.Fatalf("expected the second url to resolve, got %s (%s)", starry.SourceURL, starry.ImageURL)
	}
	if starry.DownloadedImagePath != res.ImagePath("room3/starry.jpg") {
		t.Fatalf("unexpected image path %q", starry.DownloadedImagePath)
	}
	if _, err := os.Stat(starry.DownloadedImagePath); err != nil {
		t.Fatalf("expected downloaded image on disk: %v", err)
	}

	illegible, err := store.Get(context.Background(), "room3/illegible.jpg")
	if err != nil || illegible == nil {
		t.Fatalf("Get illegible failed: %v", err)
	}
	if illegible.Status != records.StatusFailed || illegible.FailureStage != records.StageNormalization {
		t.Fatalf("expected illegible plaque failed at normalization, got %s/%s", illegible.Status, illegible.FailureStage)
	}
	if got := atomic.LoadInt32(&searches); got != 1 {
		t.Fatalf("expected exactly one search call, got %d", got)
	}
	usage, err := counter.Usage(context.Background())
	if err != nil {
		t.Fatalf("Usage failed: %v", err)
	}
	if usage.Used != 1 {
		t.Fatalf("expected the illegible plaque to leave quota untouched, used %d", usage.Used)
	}

	if summary.Resolved != 1 || summary.FailedByStage[records.StageNormalization] != 1 || summary.Pending != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	rec := httptest.NewRecorder()
	exporter.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`plaques2gallery_records_terminal_total{failure_stage="",status="resolved"} 1`,
		`plaques2gallery_records_terminal_total{failure_stage="normalization",status="failed"} 1`,
		`plaques2gallery_runs_total{result="ok"} 1`,
		`plaques2gallery_quota_used 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics:\n%s", want, body)
		}
	}
}
