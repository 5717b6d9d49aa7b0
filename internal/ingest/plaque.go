package ingest

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PlaqueImage is one photograph of a wall plaque. ID is the slash-separated
// path relative to the plaques directory and never changes once recorded.
type PlaqueImage struct {
	ID   string
	Path string
}

var supportedExts = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"webp": {},
	"bmp":  {},
	"tif":  {},
	"tiff": {},
}

// skippedExts are images we recognize but cannot decode.
var skippedExts = map[string]struct{}{
	"heic": {},
	"heif": {},
}

func extOf(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// IsSupported reports whether path has a decodable plaque image extension.
func IsSupported(path string) bool {
	_, ok := supportedExts[extOf(path)]
	return ok
}

func isSkippedImage(path string) bool {
	_, ok := skippedExts[extOf(path)]
	return ok
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// NewPlaqueImage derives the plaque ID for path under root.
func NewPlaqueImage(root, path string) (PlaqueImage, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return PlaqueImage{}, fmt.Errorf("resolve plaques dir: %w", err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return PlaqueImage{}, fmt.Errorf("resolve plaque path: %w", err)
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return PlaqueImage{}, fmt.Errorf("plaque %s outside %s: %w", path, root, err)
	}
	if rel == "." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return PlaqueImage{}, fmt.Errorf("plaque %s is outside %s", path, root)
	}
	return PlaqueImage{ID: filepath.ToSlash(rel), Path: absPath}, nil
}
