package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"plaques2gallery/internal/browser"
	"plaques2gallery/internal/config"
	"plaques2gallery/internal/fileutil"
	"plaques2gallery/internal/imageutil"
	"plaques2gallery/internal/logging"
	"plaques2gallery/internal/records"
	"plaques2gallery/internal/services"
	"plaques2gallery/internal/textutil"
)

// Resolution is a successfully downloaded artwork image.
type Resolution struct {
	ImagePath string
	SourceURL string
	ImageURL  string
	Museum    string
	Attempts  int
}

// ResolutionFailure reports that every candidate failed. Stage is where the
// last attempted candidate stopped. Museum is still inferred from the
// candidate URLs.
type ResolutionFailure struct {
	Stage    records.FailureStage
	Reason   string
	URL      string
	Museum   string
	Attempts int
}

func (f *ResolutionFailure) Error() string {
	if f == nil {
		return "<nil>"
	}
	return fmt.Sprintf("resolution failed at %s after %d candidate(s): %s", f.Stage, f.Attempts, f.Reason)
}

// Options holds the resolver heuristics.
type Options struct {
	ImagesDir       string
	Ordering        string
	TrustDomains    []string
	MinArea         float64
	MinBytes        int
	MinDimension    int
	PageTimeout     time.Duration
	DownloadTimeout time.Duration
	CaptchaKeywords []string
	UserAgent       string
}

// OptionsFromConfig maps configuration onto resolver options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ImagesDir:       cfg.Paths.ImagesDir,
		Ordering:        cfg.Resolver.Ordering,
		TrustDomains:    cfg.Resolver.TrustDomains,
		MinArea:         float64(cfg.Resolver.MinArea),
		MinBytes:        cfg.Resolver.MinBytes,
		MinDimension:    cfg.Resolver.MinDimension,
		PageTimeout:     cfg.PageTimeout(),
		DownloadTimeout: cfg.DownloadTimeout(),
		CaptchaKeywords: cfg.Resolver.CaptchaKeywords,
		UserAgent:       cfg.Resolver.UserAgent,
	}
}

// Resolver downloads the main image of the first candidate page that has one.
type Resolver struct {
	renderer browser.Renderer
	client   *http.Client
	opts     Options
	logger   *slog.Logger
}

// New constructs a Resolver around renderer.
func New(renderer browser.Renderer, opts Options, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = 10 * time.Second
	}
	if opts.DownloadTimeout <= 0 {
		opts.DownloadTimeout = 10 * time.Second
	}
	return &Resolver{
		renderer: renderer,
		client:   &http.Client{},
		opts:     opts,
		logger:   logger,
	}
}

// ImagePath returns where the image for plaqueID is written.
func (r *Resolver) ImagePath(plaqueID string) string {
	return filepath.Join(r.opts.ImagesDir, textutil.StableFileName(plaqueID, "jpg"))
}

type attemptError struct {
	stage  records.FailureStage
	reason string
}

// Resolve tries candidates in policy order until one yields a verified
// image. Failures of individual candidates are logged and the next one is
// tried; a *ResolutionFailure is returned when none succeeds. Context
// cancellation and write errors are returned as-is.
func (r *Resolver) Resolve(ctx context.Context, plaqueID string, candidates []records.Candidate) (Resolution, error) {
	logger := logging.WithContext(ctx, r.logger)
	ordered := Order(candidates, r.opts.Ordering, r.opts.TrustDomains)
	if len(ordered) == 0 {
		return Resolution{}, &ResolutionFailure{Stage: records.StageRender, Reason: "no candidate urls"}
	}

	urls := make([]string, 0, len(ordered))
	for _, candidate := range ordered {
		urls = append(urls, candidate.URL)
	}

	var last attemptError
	var lastURL string
	for i, candidate := range ordered {
		if err := ctx.Err(); err != nil {
			return Resolution{}, err
		}
		res, attempt, err := r.resolveCandidate(ctx, plaqueID, candidate.URL)
		if err != nil {
			return Resolution{}, err
		}
		if attempt == nil {
			res.Attempts = i + 1
			res.Museum = InferMuseum(append([]string{candidate.URL}, urls...)...)
			logger.Info("image resolved",
				logging.String("source_url", res.SourceURL),
				logging.String("image_url", res.ImageURL),
				logging.Int("attempt", res.Attempts),
				logging.Bool("trusted", IsTrusted(candidate.URL, r.opts.TrustDomains)),
			)
			return res, nil
		}
		if err := ctx.Err(); err != nil {
			return Resolution{}, err
		}
		last, lastURL = *attempt, candidate.URL
		logging.WarnWithContext(logger, "candidate failed", "candidate_failed",
			logging.String("url", candidate.URL),
			logging.Int("rank", candidate.Rank),
			logging.Stage(string(attempt.stage)),
			logging.String("reason", attempt.reason),
			logging.String(logging.FieldImpact, "next candidate tried"),
		)
	}
	return Resolution{}, &ResolutionFailure{
		Stage:    last.stage,
		Reason:   last.reason,
		URL:      lastURL,
		Museum:   InferMuseum(urls...),
		Attempts: len(ordered),
	}
}

func (r *Resolver) resolveCandidate(ctx context.Context, plaqueID, pageURL string) (Resolution, *attemptError, error) {
	pageCtx, cancel := context.WithTimeout(ctx, r.opts.PageTimeout)
	page, err := r.renderer.Render(pageCtx, pageURL)
	timedOut := errors.Is(pageCtx.Err(), context.DeadlineExceeded)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return Resolution{}, nil, ctx.Err()
		}
		reason := err.Error()
		if timedOut {
			reason = fmt.Sprintf("page timed out after %s", r.opts.PageTimeout)
		}
		return Resolution{}, &attemptError{stage: records.StageRender, reason: reason}, nil
	}
	if keyword := r.captchaKeyword(page.Text); keyword != "" {
		return Resolution{}, &attemptError{stage: records.StageRender, reason: fmt.Sprintf("captcha page (%q)", keyword)}, nil
	}

	img, ok := SelectLargest(page.Images, r.opts.MinArea)
	if !ok {
		return Resolution{}, &attemptError{
			stage:  records.StageImageSelection,
			reason: fmt.Sprintf("no visible image of at least %.0f px² among %d", r.opts.MinArea, len(page.Images)),
		}, nil
	}

	sources := SourceURLs(page.URL, img)
	if len(sources) == 0 {
		return Resolution{}, &attemptError{stage: records.StageDownload, reason: "selected image has no downloadable source"}, nil
	}
	var lastErr error
	for _, source := range sources {
		got, err := r.fetchImage(ctx, source, page.URL)
		if err != nil {
			if ctx.Err() != nil {
				return Resolution{}, nil, ctx.Err()
			}
			lastErr = err
			r.logger.Debug("image source rejected", logging.String("image_url", source), logging.Error(err))
			continue
		}
		path := r.ImagePath(plaqueID)
		if err := fileutil.WriteAtomicFunc(path, 0o644, func(w io.Writer) error {
			return imageutil.EncodeJPEG(w, got.image)
		}); err != nil {
			return Resolution{}, nil, services.Wrap(services.ErrStorage, "resolve", "write image", path, err)
		}
		return Resolution{ImagePath: path, SourceURL: pageURL, ImageURL: got.url}, nil, nil
	}
	return Resolution{}, &attemptError{
		stage:  records.StageDownload,
		reason: fmt.Sprintf("all %d image source(s) failed: %v", len(sources), lastErr),
	}, nil
}

func (r *Resolver) captchaKeyword(text string) string {
	lower := strings.ToLower(text)
	for _, keyword := range r.opts.CaptchaKeywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword != "" && strings.Contains(lower, keyword) {
			return keyword
		}
	}
	return ""
}
