// Package imageutil decodes every raster format the pipeline accepts and
// re-encodes resolved images as JPEG.
package imageutil

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// JPEGQuality is used for every converted image.
const JPEGQuality = 92

// ErrUndecodable marks data no registered decoder accepts.
var ErrUndecodable = errors.New("undecodable image")

// Decode parses data with the std and x/image decoders.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return img, format, nil
}

// DecodeConfig reads only the header to report format and dimensions.
func DecodeConfig(data []byte) (image.Config, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, "", fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return cfg, format, nil
}

// EncodeJPEG writes img as JPEG. Transparent pixels are flattened onto white.
func EncodeJPEG(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	flat := image.NewRGBA(bounds)
	draw.Draw(flat, bounds, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(flat, bounds, img, bounds.Min, draw.Over)
	return jpeg.Encode(w, flat, &jpeg.Options{Quality: JPEGQuality})
}
