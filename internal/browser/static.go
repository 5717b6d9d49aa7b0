package browser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"plaques2gallery/internal/imageutil"
)

const defaultMaxBodyBytes = 16 << 20

// StaticRenderer fetches pages over HTTP and measures images from markup.
// It cannot execute scripts, so consent overlays are never dismissed.
type StaticRenderer struct {
	client    *http.Client
	userAgent string
	maxBody   int64
}

// NewStaticRenderer constructs a StaticRenderer. Timeouts come from the
// context passed to Render.
func NewStaticRenderer(opts Options) *StaticRenderer {
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &StaticRenderer{
		client:    &http.Client{},
		userAgent: opts.UserAgent,
		maxBody:   maxBody,
	}
}

// Close is a no-op.
func (r *StaticRenderer) Close() error { return nil }

// Render fetches pageURL and enumerates its visible, sized images. A URL
// that serves an image directly renders as a page holding only that image.
func (r *StaticRenderer) Render(ctx context.Context, pageURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,image/*;q=0.9,*/*;q=0.8")
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("navigate: http status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBody))
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}

	finalURL := resp.Request.URL
	page := &Page{URL: finalURL.String(), StatusCode: resp.StatusCode}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "image/") {
		cfg, _, err := imageutil.DecodeConfig(body)
		if err != nil {
			return nil, fmt.Errorf("direct image: %w", err)
		}
		page.Images = []Image{{
			Index:         0,
			Src:           page.URL,
			Attrs:         map[string]string{"src": page.URL},
			Width:         float64(cfg.Width),
			Height:        float64(cfg.Height),
			NaturalWidth:  cfg.Width,
			NaturalHeight: cfg.Height,
		}}
		return page, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	base := finalURL
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := finalURL.Parse(strings.TrimSpace(href)); err == nil {
			base = ref
		}
	}

	page.Text = strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	doc.Find("img").Each(func(i int, sel *goquery.Selection) {
		if hidden(sel) {
			return
		}
		width, height := markupSize(sel)
		if width <= 0 || height <= 0 {
			return
		}
		attrs := make(map[string]string)
		for _, attr := range sel.Nodes[0].Attr {
			attrs[strings.ToLower(attr.Key)] = attr.Val
		}
		page.Images = append(page.Images, Image{
			Index:  i,
			Src:    absolute(base, attrs["src"]),
			SrcSet: attrs["srcset"],
			Attrs:  attrs,
			Width:  width,
			Height: height,
		})
	})
	// Relative srcset entries resolve against Page.URL, so it honors <base>.
	page.URL = base.String()
	return page, nil
}

func absolute(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	resolved, err := base.Parse(ref)
	if err != nil {
		return ref
	}
	return resolved.String()
}

// hidden reports whether the element or an ancestor is hidden by markup.
func hidden(sel *goquery.Selection) bool {
	for node := sel; node.Length() > 0; node = node.Parent() {
		if _, ok := node.Attr("hidden"); ok {
			return true
		}
		style := parseStyle(node.AttrOr("style", ""))
		if style["display"] == "none" || style["visibility"] == "hidden" {
			return true
		}
	}
	return false
}

func markupSize(sel *goquery.Selection) (float64, float64) {
	style := parseStyle(sel.AttrOr("style", ""))
	width := pixels(style["width"])
	if width <= 0 {
		width = pixels(sel.AttrOr("width", ""))
	}
	height := pixels(style["height"])
	if height <= 0 {
		height = pixels(sel.AttrOr("height", ""))
	}
	return width, height
}

func parseStyle(style string) map[string]string {
	out := make(map[string]string)
	for _, decl := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "!important")))
		if name != "" {
			out[name] = strings.TrimSpace(value)
		}
	}
	return out
}

// pixels parses "320" or "320px". Relative units have no rendered size
// without a layout engine and yield zero.
func pixels(value string) float64 {
	value = strings.TrimSpace(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(value)), "px"))
	if value == "" {
		return 0
	}
	n, err := strconv.ParseFloat(value, 64)
	if err != nil || n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}
