package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Recognition is one OCR reading of a preprocessed image.
type Recognition struct {
	Text       string
	Confidence float64
}

// Engine recognizes text in an encoded image.
type Engine interface {
	Recognize(ctx context.Context, image []byte) (Recognition, error)
	Close() error
}

// TesseractEngine recognizes text with tesseract through gosseract. A single
// client is reused across calls, so an engine must not be shared between
// goroutines.
type TesseractEngine struct {
	client *gosseract.Client
}

// NewTesseractEngine configures a client for languages ("eng+deu" form).
// Page segmentation runs with orientation and script detection so rotated
// plaques are read upright.
func NewTesseractEngine(languages, tessdataPrefix string) (*TesseractEngine, error) {
	client := gosseract.NewClient()
	if tessdataPrefix != "" {
		client.TessdataPrefix = tessdataPrefix
	}
	var langs []string
	for _, lang := range strings.Split(languages, "+") {
		if lang = strings.TrimSpace(lang); lang != "" {
			langs = append(langs, lang)
		}
	}
	if len(langs) > 0 {
		if err := client.SetLanguage(langs...); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO_OSD); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("set page segmentation: %w", err)
	}
	return &TesseractEngine{client: client}, nil
}

// Recognize returns the text and mean word confidence (0-100).
func (e *TesseractEngine) Recognize(ctx context.Context, image []byte) (Recognition, error) {
	if err := ctx.Err(); err != nil {
		return Recognition{}, err
	}
	if err := e.client.SetImageFromBytes(image); err != nil {
		return Recognition{}, fmt.Errorf("set image: %w", err)
	}
	text, err := e.client.Text()
	if err != nil {
		return Recognition{}, fmt.Errorf("recognize text: %w", err)
	}
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return Recognition{Text: strings.TrimSpace(text)}, nil
	}
	var sum float64
	for _, box := range boxes {
		sum += box.Confidence
	}
	return Recognition{Text: strings.TrimSpace(text), Confidence: sum / float64(len(boxes))}, nil
}

// Close releases the tesseract client.
func (e *TesseractEngine) Close() error {
	return e.client.Close()
}
