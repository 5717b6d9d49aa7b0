package browser_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"plaques2gallery/internal/browser"
	"plaques2gallery/internal/testsupport"
)

const galleryPage = `<!doctype html>
<html><head><base href="/assets/"></head>
<body>
  <p>The Starry Night, 1889</p>
  <img src="logo.png" width="120" height="40">
  <img src="hero.jpg" srcset="hero-800.jpg 800w, hero-1600.jpg 1600w" width="640" height="480" alt="hero">
  <img src="inline.jpg" style="width: 300px; height:200px !important">
  <img src="relative.jpg" style="width: 50%" height="100">
  <img src="hidden.jpg" width="900" height="900" style="display:none">
  <div hidden><img src="nested.jpg" width="900" height="900"></div>
  <img src="nosize.jpg">
  <img src="nan.jpg" width="NaN" height="300">
  <img src="inf.jpg" width="Inf" height="+Inf">
</body></html>`

func TestStaticRenderEnumeratesVisibleSizedImages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "plaque-test" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(galleryPage))
	}))
	defer server.Close()

	renderer := browser.NewStaticRenderer(browser.Options{UserAgent: "plaque-test"})
	page, err := renderer.Render(context.Background(), server.URL+"/wiki/Starry")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(page.Text, "The Starry Night, 1889") {
		t.Fatalf("unexpected page text %q", page.Text)
	}
	if page.URL != server.URL+"/assets/" {
		t.Fatalf("expected base href to set page URL, got %q", page.URL)
	}
	if len(page.Images) != 3 {
		t.Fatalf("expected 3 sized visible images, got %#v", page.Images)
	}
	hero := page.Images[1]
	if hero.Index != 1 || hero.Area() != 640*480 {
		t.Fatalf("unexpected hero image %#v", hero)
	}
	if hero.Src != server.URL+"/assets/hero.jpg" {
		t.Fatalf("expected absolute src, got %q", hero.Src)
	}
	if hero.SrcSet == "" || hero.Attrs["alt"] != "hero" {
		t.Fatalf("expected attributes to be kept, got %#v", hero)
	}
	inline := page.Images[2]
	if inline.Width != 300 || inline.Height != 200 || inline.Index != 2 {
		t.Fatalf("unexpected inline-styled image %#v", inline)
	}
}

func TestStaticRenderDirectImage(t *testing.T) {
	data := testsupport.PNG(t, 320, 240)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	}))
	defer server.Close()

	page, err := browser.NewStaticRenderer(browser.Options{}).Render(context.Background(), server.URL+"/file.png")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(page.Images) != 1 || page.Images[0].Area() != 320*240 {
		t.Fatalf("expected the image itself, got %#v", page.Images)
	}
	if page.Images[0].Src != server.URL+"/file.png" {
		t.Fatalf("unexpected src %q", page.Images[0].Src)
	}
}

func TestStaticRenderHTTPError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	if _, err := browser.NewStaticRenderer(browser.Options{}).Render(context.Background(), server.URL); err == nil {
		t.Fatal("expected 404 to fail rendering")
	}
}

func TestConsentPattern(t *testing.T) {
	pattern := browser.ConsentPattern([]string{"accept all", "agree", " "})
	cases := []struct {
		html string
		want bool
	}{
		{`<button class="cc">Accept all</button>`, true},
		{`<button>I AGREE</button>`, true},
		{`<button>Disagreement</button>`, false},
		{`<button>Reject</button>`, false},
	}
	for _, tc := range cases {
		if got := pattern.MatchString(tc.html); got != tc.want {
			t.Fatalf("ConsentPattern(%q) = %v, want %v", tc.html, got, tc.want)
		}
	}
	if browser.ConsentPattern(nil) != nil {
		t.Fatal("expected nil pattern without keywords")
	}
}
