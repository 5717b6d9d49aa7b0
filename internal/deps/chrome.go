package deps

import (
	"fmt"
	"strings"
)

// chromeCandidates follows the lookup order chromedp uses on Linux and macOS.
var chromeCandidates = []string{
	"headless_shell",
	"headless-shell",
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"google-chrome-beta",
	"google-chrome-unstable",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
}

// CheckChrome reports the browser the chrome resolver engine will launch.
// A configured path is checked on its own; otherwise the first candidate
// found wins.
func CheckChrome(configured string) Status {
	status := Status{Name: "Chrome"}
	if path := strings.TrimSpace(configured); path != "" {
		resolved, ok := findExecutable(path)
		if !ok {
			status.Detail = fmt.Sprintf("configured chrome_path %q not found or not executable", path)
			return status
		}
		status.Path = resolved
		status.Available = true
		return status
	}

	for _, candidate := range chromeCandidates {
		if resolved, ok := findExecutable(candidate); ok {
			status.Path = resolved
			status.Available = true
			return status
		}
	}
	status.Detail = "no chrome or chromium binary found; install one or set resolver.chrome_path"
	return status
}
