package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"plaques2gallery/internal/config"
	"plaques2gallery/internal/ingest"
	"plaques2gallery/internal/normalize"
	"plaques2gallery/internal/notifications"
	"plaques2gallery/internal/ocr"
	"plaques2gallery/internal/quota"
	"plaques2gallery/internal/records"
	"plaques2gallery/internal/search"
	"plaques2gallery/internal/stage"
	"plaques2gallery/internal/testsupport"
	"plaques2gallery/internal/workflow"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type publishedEvent struct {
	event   notifications.Event
	payload notifications.Payload
}

type stubNotifier struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (s *stubNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	s.mu.Lock()
	s.events = append(s.events, publishedEvent{event: event, payload: payload})
	s.mu.Unlock()
	return nil
}

func (s *stubNotifier) find(event notifications.Event) (notifications.Payload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.event == event {
			return e.payload, true
		}
	}
	return nil, false
}

// stubExtractor returns canned OCR text per plaque.
type stubExtractor struct {
	mu    sync.Mutex
	texts map[string]string
	calls map[string]int
}

func (s *stubExtractor) Extract(_ context.Context, plaque ingest.PlaqueImage) ocr.Extraction {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[plaque.ID]++
	text, ok := s.texts[plaque.ID]
	if !ok {
		text = "Painting " + plaque.ID + "\nAnon Painter"
	}
	return ocr.Extraction{Text: text, Confidence: 85, Language: "eng", LanguageName: "English"}
}

// stubCompleter answers like the normalization model. Plaque text containing
// "###" yields no title.
type stubCompleter struct {
	calls atomic.Int32
}

func (s *stubCompleter) CompleteJSON(_ context.Context, _, userPrompt string) (string, error) {
	s.calls.Add(1)
	if strings.Contains(userPrompt, "###") {
		return `{"title": null, "artist": null, "confidence": 0.05}`, nil
	}
	if strings.Contains(userPrompt, "G0gh") {
		return `{"title": "Starry Night", "artist": "Vincent van Gogh", "confidence": 0.93}`, nil
	}
	start := strings.Index(userPrompt, "Painting ")
	if start < 0 {
		return `{"title": null, "confidence": 0}`, nil
	}
	line := strings.SplitN(userPrompt[start:], "\n", 2)[0]
	return fmt.Sprintf(`{"title": %q, "artist": "Anon Painter", "confidence": 0.9}`, line), nil
}

// stubProvider returns three links per query unless err is set or the query
// contains a key of failOn.
type stubProvider struct {
	calls  atomic.Int32
	err    atomic.Pointer[error]
	mu     sync.Mutex
	failOn map[string]error
}

func (s *stubProvider) Search(_ context.Context, query string, num int) ([]string, error) {
	s.calls.Add(1)
	if errPtr := s.err.Load(); errPtr != nil {
		return nil, *errPtr
	}
	s.mu.Lock()
	for fragment, err := range s.failOn {
		if strings.Contains(query, fragment) {
			s.mu.Unlock()
			return nil, err
		}
	}
	s.mu.Unlock()
	slug := strings.ReplaceAll(strings.ToLower(query), " ", "-")
	links := make([]string, 0, num)
	for i := 1; i <= num; i++ {
		links = append(links, fmt.Sprintf("https://example.org/%s/%d", slug, i))
	}
	return links, nil
}

func (s *stubProvider) failWith(err error) {
	if err == nil {
		s.err.Store(nil)
		return
	}
	s.err.Store(&err)
}

func (s *stubProvider) failQueriesContaining(fragment string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn == nil {
		s.failOn = map[string]error{}
	}
	s.failOn[fragment] = err
}

// stubResolver resolves to the first candidate unless fail names the plaque.
type stubResolver struct {
	mu        sync.Mutex
	calls     map[string]int
	fail      map[string]error
	hook      func(ctx context.Context, record *records.Record) error
	delay     time.Duration
	active    atomic.Int32
	maxActive atomic.Int32
	healthy   bool
}

func (s *stubResolver) Prepare(_ context.Context, record *records.Record) error {
	return stage.RequireCandidates("resolve", record)
}

func (s *stubResolver) Execute(ctx context.Context, record *records.Record) error {
	current := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		seen := s.maxActive.Load()
		if current <= seen || s.maxActive.CompareAndSwap(seen, current) {
			break
		}
	}

	s.mu.Lock()
	s.calls[record.PlaqueID]++
	failure := s.fail[record.PlaqueID]
	hook := s.hook
	s.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, record); err != nil {
			return err
		}
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if failure != nil {
		return failure
	}
	source := record.Candidates[0].URL
	record.MarkResolved("/images/"+strings.ReplaceAll(record.PlaqueID, "/", "_"), source, source+"/image.jpg", "")
	return nil
}

func (s *stubResolver) HealthCheck(context.Context) stage.Health {
	if !s.healthy {
		return stage.Unhealthy("resolve", "renderer offline")
	}
	return stage.Healthy("resolve")
}

func (s *stubResolver) callsFor(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[id]
}

type harness struct {
	t         *testing.T
	cfg       *config.Config
	store     *records.Store
	clock     *fakeClock
	counter   *quota.Counter
	extractor *stubExtractor
	completer *stubCompleter
	provider  *stubProvider
	resolver  *stubResolver
	notifier  *stubNotifier
	manager   *workflow.Manager
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	clock := newFakeClock()
	counter := quota.New(quota.NewStoreBackend(store), cfg.Quota.Limit, cfg.QuotaWindow(), cfg.QuotaLocation(), quota.WithClock(clock.Now))

	h := &harness{
		t:         t,
		cfg:       cfg,
		store:     store,
		clock:     clock,
		counter:   counter,
		extractor: &stubExtractor{texts: map[string]string{}, calls: map[string]int{}},
		completer: &stubCompleter{},
		provider:  &stubProvider{},
		resolver:  &stubResolver{calls: map[string]int{}, fail: map[string]error{}, healthy: true},
		notifier:  &stubNotifier{},
	}

	normalizer, err := normalize.New(h.completer, cfg.Normalize.MinConfidence, nil)
	if err != nil {
		t.Fatalf("normalize.New failed: %v", err)
	}
	searcher := search.NewSearcher(h.provider, counter, cfg.Search.Results, nil)
	h.manager = workflow.NewManager(cfg, store, counter, nil,
		workflow.WithNotifier(h.notifier),
		workflow.WithClock(clock.Now),
	)
	h.manager.ConfigureStages(workflow.StageSet{
		Normalizer: normalize.NewStage(h.extractor, normalizer, nil),
		Searcher:   search.NewStage(searcher),
		Resolver:   h.resolver,
	})
	return h
}

func (h *harness) ingest(ids ...string) {
	h.t.Helper()
	for _, id := range ids {
		testsupport.Ingest(h.t, h.store, h.cfg, id)
	}
}

func (h *harness) run(ctx context.Context) workflow.Summary {
	h.t.Helper()
	summary, err := h.manager.Run(ctx)
	if err != nil {
		h.t.Fatalf("Run failed: %v", err)
	}
	return summary
}

func (h *harness) record(id string) *records.Record {
	h.t.Helper()
	record, err := h.store.Get(context.Background(), id)
	if err != nil {
		h.t.Fatalf("Get %s failed: %v", id, err)
	}
	if record == nil {
		h.t.Fatalf("record %s missing", id)
	}
	return record
}

func (h *harness) quotaUsed() int {
	h.t.Helper()
	usage, err := h.counter.Usage(context.Background())
	if err != nil {
		h.t.Fatalf("Usage failed: %v", err)
	}
	return usage.Used
}

func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
