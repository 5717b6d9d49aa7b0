// Package ocr turns a plaque photograph into text.
//
// The Extractor preprocesses the photo (grayscale, upscale, inversion of
// light-on-dark plaques, median denoise), sweeps a range of binarization
// thresholds and keeps the reading with the highest mean word confidence.
// Extraction never fails: unreadable input yields an empty Extraction so the
// caller records a normalization failure.
package ocr
