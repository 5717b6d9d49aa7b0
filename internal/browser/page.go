package browser

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"plaques2gallery/internal/config"
)

// Image is one visible <img> element of a rendered page.
type Image struct {
	// Index is the element's position in document order.
	Index         int
	Src           string
	SrcSet        string
	Attrs         map[string]string
	Width         float64
	Height        float64
	NaturalWidth  int
	NaturalHeight int
}

// Area returns the rendered area in CSS pixels.
func (i Image) Area() float64 {
	if i.Width <= 0 || i.Height <= 0 {
		return 0
	}
	return i.Width * i.Height
}

// Page is the observable state of a page after rendering.
type Page struct {
	// URL is the final location after redirects; relative image sources
	// resolve against it.
	URL            string
	StatusCode     int
	Text           string
	Images         []Image
	ConsentClicked bool
}

// Renderer loads a page and enumerates its visible images.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (*Page, error)
	Close() error
}

// Options configures either engine.
type Options struct {
	UserAgent       string
	SettleDelay     time.Duration
	ConsentKeywords []string
	ChromePath      string
	Headless        bool
	MaxBodyBytes    int64
}

// OptionsFromConfig maps the resolver section onto renderer options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		UserAgent:       cfg.Resolver.UserAgent,
		SettleDelay:     cfg.SettleDelay(),
		ConsentKeywords: cfg.Resolver.ConsentKeywords,
		ChromePath:      cfg.Resolver.ChromePath,
		Headless:        cfg.Resolver.Headless,
	}
}

// consentSource builds a word-boundary alternation over the keywords. The
// result is valid in both Go and JavaScript regular expressions.
func consentSource(keywords []string) string {
	parts := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			continue
		}
		parts = append(parts, regexp.QuoteMeta(keyword))
	}
	if len(parts) == 0 {
		return ""
	}
	return `\b(?:` + strings.Join(parts, "|") + `)\b`
}

// ConsentPattern compiles the case-insensitive consent matcher, or returns
// nil when no keywords are configured.
func ConsentPattern(keywords []string) *regexp.Regexp {
	source := consentSource(keywords)
	if source == "" {
		return nil
	}
	return regexp.MustCompile(`(?i)` + source)
}

// New builds the renderer selected by resolver.engine.
func New(ctx context.Context, cfg *config.Config) (Renderer, error) {
	opts := OptionsFromConfig(cfg)
	switch strings.ToLower(strings.TrimSpace(cfg.Resolver.Engine)) {
	case config.EngineChrome, "":
		return NewChromeRenderer(ctx, opts)
	case config.EngineStatic:
		return NewStaticRenderer(opts), nil
	default:
		return nil, fmt.Errorf("unknown resolver engine %q", cfg.Resolver.Engine)
	}
}
