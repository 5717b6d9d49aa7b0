package deps

import (
	"fmt"
	"path/filepath"
	"strings"
)

// tessdataDirs are the traineddata locations of common tesseract packages,
// newest first.
var tessdataDirs = []string{
	"/usr/share/tesseract-ocr/5/tessdata",
	"/usr/share/tesseract-ocr/4.00/tessdata",
	"/usr/share/tessdata",
	"/usr/local/share/tessdata",
	"/opt/homebrew/share/tessdata",
}

// CheckTessdata looks for <lang>.traineddata for every language in a
// tesseract "eng+deu" list. A non-empty prefix is the only directory
// searched, either as the tessdata directory itself or as its parent.
// Path is empty when no tessdata directory was found at all; tesseract may
// still locate its compiled-in default in that case.
func CheckTessdata(languages, prefix string) Status {
	status := Status{Name: "Tesseract data"}
	langs := splitLanguages(languages)
	if len(langs) == 0 {
		status.Detail = "no OCR languages configured"
		return status
	}

	dir := locateTessdata(prefix)
	if dir == "" {
		if strings.TrimSpace(prefix) != "" {
			status.Detail = fmt.Sprintf("tessdata_prefix %q is not a directory", prefix)
		} else {
			status.Detail = "no tessdata directory found; set ocr.tessdata_prefix or TESSDATA_PREFIX"
		}
		return status
	}
	status.Path = dir

	var missing []string
	for _, lang := range langs {
		if !isFile(filepath.Join(dir, lang+".traineddata")) {
			missing = append(missing, lang)
		}
	}
	if len(missing) > 0 {
		status.Detail = fmt.Sprintf("missing traineddata for %s in %s", strings.Join(missing, ", "), dir)
		return status
	}
	status.Available = true
	status.Detail = strings.Join(langs, "+")
	return status
}

func locateTessdata(prefix string) string {
	if prefix = strings.TrimSpace(prefix); prefix != "" {
		for _, dir := range []string{prefix, filepath.Join(prefix, "tessdata")} {
			if isDir(dir) && hasTraineddata(dir) {
				return dir
			}
		}
		if isDir(prefix) {
			return prefix
		}
		return ""
	}
	for _, dir := range tessdataDirs {
		if isDir(dir) {
			return dir
		}
	}
	return ""
}

func hasTraineddata(dir string) bool {
	matches, err := filepath.Glob(filepath.Join(dir, "*.traineddata"))
	return err == nil && len(matches) > 0
}

func splitLanguages(languages string) []string {
	var out []string
	for _, lang := range strings.Split(languages, "+") {
		if lang = strings.TrimSpace(lang); lang != "" {
			out = append(out, lang)
		}
	}
	return out
}
