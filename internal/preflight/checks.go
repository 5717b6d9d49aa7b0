package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"plaques2gallery/internal/config"
	"plaques2gallery/internal/deps"
	"plaques2gallery/internal/ocr"
	"plaques2gallery/internal/quota"
	"plaques2gallery/internal/services/llm"
)

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt (no retries).
func CheckLLM(ctx context.Context, name string, cfg config.LLMConfig) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Referer: cfg.Referer,
		Title:   cfg.Title,
	}, llm.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeNetworkError("LLM API", err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckSearchCredentials confirms the Custom Search key and engine ID are
// set. It never calls the API, since every call spends quota.
func CheckSearchCredentials(cfg *config.Config) Result {
	const name = "Search credentials"
	var missing []string
	if strings.TrimSpace(cfg.Search.APIKey) == "" {
		missing = append(missing, "api_key")
	}
	if strings.TrimSpace(cfg.Search.EngineID) == "" {
		missing = append(missing, "engine_id")
	}
	if len(missing) > 0 {
		return Result{Name: name, Detail: "missing " + strings.Join(missing, ", ")}
	}
	return Result{Name: name, Passed: true, Detail: "configured (not called to save quota)"}
}

// CheckTesseract confirms traineddata exists for every configured language
// and opens a tesseract client with them.
func CheckTesseract(languages, tessdataPrefix string) Result {
	const name = "Tesseract"
	if data := deps.CheckTessdata(languages, tessdataPrefix); !data.Available && data.Path != "" {
		return Result{Name: name, Detail: data.Detail}
	}
	engine, err := ocr.NewTesseractEngine(languages, tessdataPrefix)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("languages %q unavailable (%v)", languages, err)}
	}
	_ = engine.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("languages %s", languages)}
}

// CheckChrome confirms a browser binary exists for the chrome engine.
func CheckChrome(chromePath string) Result {
	status := deps.CheckChrome(chromePath)
	if !status.Available {
		return Result{Name: status.Name, Detail: status.Detail}
	}
	return Result{Name: status.Name, Passed: true, Detail: status.Path}
}

// CheckRedis pings the shared quota backend.
func CheckRedis(ctx context.Context, redisURL string) Result {
	const name = "Redis quota backend"
	if strings.TrimSpace(redisURL) == "" {
		return Result{Name: name, Detail: "redis_url missing"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	backend, err := quota.NewRedisBackend(checkCtx, redisURL, "", time.Minute)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetworkError("Redis", err)}
	}
	_ = backend.Close()
	return Result{Name: name, Passed: true, Detail: "reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckDirectoryReadable verifies that the directory exists and can be listed.
func CheckDirectoryReadable(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "read ok")
}

func checkDirectory(name, path string, mode uint32, okDetail string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, okDetail)}
}

func summarizeNetworkError(service string, err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("health check timed out (%s unresponsive)", service)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("health check timed out (%s unreachable)", service)
	}
	return err.Error()
}
