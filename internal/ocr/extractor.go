package ocr

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/abadojack/whatlanggo"

	"plaques2gallery/internal/config"
	"plaques2gallery/internal/imageutil"
	"plaques2gallery/internal/ingest"
	"plaques2gallery/internal/logging"
)

// Extraction is the best reading of one plaque.
type Extraction struct {
	Text       string
	Confidence float64
	// Language is the ISO 639-3 code of the detected language, empty when
	// detection was unreliable.
	Language string
	// LanguageName is the English language name passed to the normalizer.
	LanguageName string
	Threshold    int
	Inverted     bool
}

// Empty reports whether no text was recovered.
func (e Extraction) Empty() bool {
	return strings.TrimSpace(e.Text) == ""
}

// Options tunes preprocessing.
type Options struct {
	ThresholdStart int
	ThresholdStop  int
	ThresholdStep  int
	MinShortSide   int
}

// OptionsFromConfig reads the OCR section.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ThresholdStart: cfg.OCR.ThresholdStart,
		ThresholdStop:  cfg.OCR.ThresholdStop,
		ThresholdStep:  cfg.OCR.ThresholdStep,
		MinShortSide:   cfg.OCR.MinShortSide,
	}
}

// Extractor runs preprocessing and the threshold sweep over an Engine.
type Extractor struct {
	engine Engine
	opts   Options
	logger *slog.Logger
	mu     sync.Mutex
}

// NewExtractor constructs an Extractor. Calls are serialized because the
// engine holds a single OCR client.
func NewExtractor(engine Engine, opts Options, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Extractor{engine: engine, opts: opts, logger: logger}
}

// Extract reads the plaque text. It never fails; problems are logged and an
// empty Extraction returned.
func (x *Extractor) Extract(ctx context.Context, plaque ingest.PlaqueImage) Extraction {
	logger := logging.WithContext(ctx, x.logger)
	data, err := os.ReadFile(plaque.Path)
	if err != nil {
		logging.WarnWithContext(logger, "plaque image unreadable", "ocr_read_failed",
			logging.String("path", plaque.Path), logging.Error(err))
		return Extraction{}
	}
	src, _, err := imageutil.Decode(data)
	if err != nil {
		logging.WarnWithContext(logger, "plaque image undecodable", "ocr_decode_failed",
			logging.String("path", plaque.Path), logging.Error(err),
			logging.String(logging.FieldErrorHint, "re-export the photo as JPEG or PNG"))
		return Extraction{}
	}

	gray := upscale(toGray(src), x.opts.MinShortSide)
	inverted := invertIfDark(gray)
	gray = medianFilter(gray)

	x.mu.Lock()
	defer x.mu.Unlock()

	var best Extraction
	found := false
	for _, threshold := range thresholds(x.opts.ThresholdStart, x.opts.ThresholdStop, x.opts.ThresholdStep) {
		if ctx.Err() != nil {
			break
		}
		encoded, err := encodePNG(binarize(gray, threshold))
		if err != nil {
			logger.Debug("encode binarized image failed", logging.Int("threshold", threshold), logging.Error(err))
			continue
		}
		reading, err := x.engine.Recognize(ctx, encoded)
		if err != nil {
			logger.Debug("ocr pass failed", logging.Int("threshold", threshold), logging.Error(err))
			continue
		}
		if strings.TrimSpace(reading.Text) == "" {
			continue
		}
		if !found || reading.Confidence > best.Confidence {
			best = Extraction{Text: reading.Text, Confidence: reading.Confidence, Threshold: threshold, Inverted: inverted}
			found = true
		}
	}
	if !found {
		logging.WarnWithContext(logger, "no text recognized", "ocr_empty",
			logging.String(logging.FieldErrorHint, "photo may be blurred or the plaque cropped"))
		return Extraction{}
	}

	best.Language, best.LanguageName = detectLanguage(best.Text)
	logger.Debug("ocr complete",
		logging.Float64("confidence", best.Confidence),
		logging.Int("threshold", best.Threshold),
		logging.Bool("inverted", best.Inverted),
		logging.String("language", best.Language),
	)
	return best
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// detectLanguage guesses the plaque language; unreliable guesses are dropped.
func detectLanguage(text string) (string, string) {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return "", ""
	}
	return info.Lang.Iso6393(), info.Lang.String()
}
