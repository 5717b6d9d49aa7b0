package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// ScanResult lists discovered plaques in ID order plus recognized images
// that were skipped as undecodable.
type ScanResult struct {
	Images  []PlaqueImage
	Skipped []string
}

// Scan walks root recursively. Hidden files and directories are ignored.
func Scan(root string) (ScanResult, error) {
	var result ScanResult
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return result, fmt.Errorf("plaques dir %q does not exist", root)
		}
		return result, fmt.Errorf("stat plaques dir: %w", err)
	}
	if !info.IsDir() {
		return result, fmt.Errorf("plaques dir %q is not a directory", root)
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path != root && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if isSkippedImage(path) {
			result.Skipped = append(result.Skipped, path)
			return nil
		}
		if !IsSupported(path) {
			return nil
		}
		image, err := NewPlaqueImage(root, path)
		if err != nil {
			return err
		}
		result.Images = append(result.Images, image)
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("scan plaques dir: %w", err)
	}
	sort.Slice(result.Images, func(i, j int) bool { return result.Images[i].ID < result.Images[j].ID })
	return result, nil
}
