package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const consentButtons = `button, input[type=button], input[type=submit], [role=button], a[role=button]`

const collectScript = `(() => {
  const images = [];
  document.querySelectorAll('img').forEach((img, index) => {
    const rect = img.getBoundingClientRect();
    const style = window.getComputedStyle(img);
    if (rect.width <= 0 || rect.height <= 0) return;
    if (style.display === 'none' || style.visibility === 'hidden' || parseFloat(style.opacity || '1') === 0) return;
    const attrs = {};
    for (const attr of img.attributes) attrs[attr.name.toLowerCase()] = attr.value;
    images.push({
      index: index,
      src: img.currentSrc || img.src || '',
      srcset: img.getAttribute('srcset') || '',
      attrs: attrs,
      width: rect.width,
      height: rect.height,
      naturalWidth: img.naturalWidth || 0,
      naturalHeight: img.naturalHeight || 0,
    });
  });
  return {
    url: location.href,
    text: document.body ? document.body.innerText : '',
    images: images,
  };
})()`

const consentScriptTemplate = `(() => {
  const pattern = new RegExp(%s, 'i');
  for (const el of document.querySelectorAll(%s)) {
    const rect = el.getBoundingClientRect();
    const style = window.getComputedStyle(el);
    if (rect.width <= 0 || rect.height <= 0) continue;
    if (style.display === 'none' || style.visibility === 'hidden') continue;
    if (el.disabled || el.getAttribute('aria-disabled') === 'true') continue;
    if (!pattern.test(el.outerHTML)) continue;
    el.click();
    return true;
  }
  return false;
})()`

type snapshot struct {
	URL    string `json:"url"`
	Text   string `json:"text"`
	Images []struct {
		Index         int               `json:"index"`
		Src           string            `json:"src"`
		SrcSet        string            `json:"srcset"`
		Attrs         map[string]string `json:"attrs"`
		Width         float64           `json:"width"`
		Height        float64           `json:"height"`
		NaturalWidth  int               `json:"naturalWidth"`
		NaturalHeight int               `json:"naturalHeight"`
	} `json:"images"`
}

// ChromeRenderer drives one headless Chrome process. Each Render runs in a
// fresh browser context, so cookies and storage never leak between pages.
type ChromeRenderer struct {
	opts          Options
	consentScript string

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	closeOnce     sync.Once
}

// NewChromeRenderer starts Chrome. The process lives until Close or until
// ctx is cancelled.
func NewChromeRenderer(ctx context.Context, opts Options) (*ChromeRenderer, error) {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("mute-audio", true),
		chromedp.WindowSize(1366, 900),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	r := &ChromeRenderer{
		opts:          opts,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}
	if source := consentSource(opts.ConsentKeywords); source != "" {
		pattern, _ := json.Marshal(source)
		selector, _ := json.Marshal(consentButtons)
		r.consentScript = fmt.Sprintf(consentScriptTemplate, pattern, selector)
	}
	return r, nil
}

// Close shuts Chrome down.
func (r *ChromeRenderer) Close() error {
	r.closeOnce.Do(func() {
		r.browserCancel()
		r.allocCancel()
	})
	return nil
}

// Render navigates to pageURL, waits for the settle delay, clicks a consent
// button when one matches and snapshots the visible images.
func (r *ChromeRenderer) Render(ctx context.Context, pageURL string) (*Page, error) {
	tabCtx, cancelTab := chromedp.NewContext(r.browserCtx, chromedp.WithNewBrowserContext())
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var (
		statusMu sync.Mutex
		status   int
	)
	chromedp.ListenTarget(tabCtx, func(ev any) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
			return
		}
		statusMu.Lock()
		if status == 0 {
			status = int(resp.Response.Status)
		}
		statusMu.Unlock()
	})

	if err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.Navigate(pageURL),
		chromedp.Sleep(r.opts.SettleDelay),
	); err != nil {
		return nil, renderError(ctx, "navigate", err)
	}

	statusMu.Lock()
	code := status
	statusMu.Unlock()
	if code >= 400 {
		return nil, fmt.Errorf("navigate: http status %d", code)
	}

	page := &Page{StatusCode: code}
	if r.consentScript != "" {
		var clicked bool
		if err := chromedp.Run(tabCtx, chromedp.Evaluate(r.consentScript, &clicked)); err == nil && clicked {
			page.ConsentClicked = true
			_ = chromedp.Run(tabCtx, chromedp.Sleep(consentPause(r.opts.SettleDelay)))
		}
	}

	var snap snapshot
	if err := chromedp.Run(tabCtx, chromedp.Evaluate(collectScript, &snap)); err != nil {
		return nil, renderError(ctx, "enumerate images", err)
	}
	page.URL = snap.URL
	if page.URL == "" {
		page.URL = pageURL
	}
	page.Text = strings.Join(strings.Fields(snap.Text), " ")
	for _, img := range snap.Images {
		page.Images = append(page.Images, Image{
			Index:         img.Index,
			Src:           img.Src,
			SrcSet:        img.SrcSet,
			Attrs:         img.Attrs,
			Width:         img.Width,
			Height:        img.Height,
			NaturalWidth:  img.NaturalWidth,
			NaturalHeight: img.NaturalHeight,
		})
	}
	return page, nil
}

func consentPause(settle time.Duration) time.Duration {
	pause := settle / 2
	if pause > time.Second {
		pause = time.Second
	}
	return pause
}

// renderError prefers the caller's context error so deadlines read as
// timeouts rather than as a closed tab.
func renderError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: browser closed: %w", op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
