package resolver

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"mime"
	"net/http"
	"strings"

	"plaques2gallery/internal/imageutil"
)

const imageAccept = "image/avif,image/webp,image/apng,image/*,*/*;q=0.8"

const maxImageBytes = 64 << 20

var errRejected = errors.New("image rejected")

// fetched is a verified download.
type fetched struct {
	url   string
	image image.Image
	bytes int
}

// fetchImage downloads ref with the page as Referer and verifies it: status
// 200, an image content type, at least minBytes, decodable and no side
// shorter than minDimension.
func (r *Resolver) fetchImage(ctx context.Context, ref, referer string) (*fetched, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.DownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", imageAccept)
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	if r.opts.UserAgent != "" {
		req.Header.Set("User-Agent", r.opts.UserAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("download timed out after %s", r.opts.DownloadTimeout)
		}
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: http status %d", errRejected, resp.StatusCode)
	}
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "image/") {
		return nil, fmt.Errorf("%w: content type %q is not an image", errRejected, resp.Header.Get("Content-Type"))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) < r.opts.MinBytes {
		return nil, fmt.Errorf("%w: %d bytes is below the %d byte minimum", errRejected, len(data), r.opts.MinBytes)
	}
	img, _, err := imageutil.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errRejected, err)
	}
	bounds := img.Bounds()
	if bounds.Dx() < r.opts.MinDimension || bounds.Dy() < r.opts.MinDimension {
		return nil, fmt.Errorf("%w: %dx%d is below %dpx", errRejected, bounds.Dx(), bounds.Dy(), r.opts.MinDimension)
	}
	return &fetched{url: resp.Request.URL.String(), image: img, bytes: len(data)}, nil
}
