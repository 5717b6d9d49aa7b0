package preflight

import (
	"context"
	"strings"

	"plaques2gallery/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Engine- and backend-specific checks only run when selected.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryReadable("Plaques directory", cfg.Paths.PlaquesDir),
		CheckDirectoryAccess("Images directory", cfg.Paths.ImagesDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckSearchCredentials(cfg),
		CheckLLM(ctx, "Normalization LLM", cfg.GetLLM()),
		CheckTesseract(cfg.OCR.Languages, cfg.OCR.TessdataPrefix),
	}

	if strings.EqualFold(strings.TrimSpace(cfg.Resolver.Engine), config.EngineChrome) {
		results = append(results, CheckChrome(cfg.Resolver.ChromePath))
	}
	if cfg.Quota.Backend == config.QuotaBackendRedis {
		results = append(results, CheckRedis(ctx, cfg.Quota.RedisURL))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
