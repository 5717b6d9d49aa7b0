// Package deps locates the programs and data files plaques2gallery loads at
// runtime but does not ship: a Chrome binary for the chrome resolver engine
// and tesseract traineddata for each OCR language.
package deps

import (
	"os"
	"os/exec"
	"strings"
)

// Status reports whether one runtime dependency was found. Path is the
// resolved binary or directory, empty when nothing was found.
type Status struct {
	Name      string
	Path      string
	Available bool
	Detail    string
}

// findExecutable resolves command on PATH, or checks it directly when it
// names a file.
func findExecutable(command string) (string, bool) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "", false
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return "", false
	}
	return resolved, true
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
