package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	PlaquesDir string `toml:"plaques_dir"`
	ImagesDir  string `toml:"images_dir"`
	StateDir   string `toml:"state_dir"`
	LogDir     string `toml:"log_dir"`
}

// Workflow contains batch orchestration settings.
type Workflow struct {
	BatchSize            int  `toml:"batch_size"`
	Workers              int  `toml:"workers"`
	DrainBatches         bool `toml:"drain_batches"`
	WatchDebounceMillis  int  `toml:"watch_debounce_ms"`
	QuotaRecheckSeconds  int  `toml:"quota_recheck_seconds"`
	// A plaque fails once this many stage calls end in a timeout or 5xx.
	MaxTransientAttempts int  `toml:"max_transient_attempts"`
}

// Quota contains the search call budget per window.
type Quota struct {
	Limit       int    `toml:"limit"`
	Window      string `toml:"window"`
	Timezone    string `toml:"timezone"`
	Backend     string `toml:"backend"`
	RedisURL    string `toml:"redis_url"`
	RedisPrefix string `toml:"redis_prefix"`
}

// Search contains configuration for the Google Custom Search JSON API.
type Search struct {
	APIKey         string `toml:"api_key"`
	EngineID       string `toml:"engine_id"`
	BaseURL        string `toml:"base_url"`
	Results        int    `toml:"results"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// LLM contains connection settings for the normalization model.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Normalize contains acceptance thresholds for extracted queries.
type Normalize struct {
	MinConfidence float64 `toml:"min_confidence"`
}

// OCR contains tesseract tuning.
type OCR struct {
	Languages      string `toml:"languages"`
	ThresholdStart int    `toml:"threshold_start"`
	ThresholdStop  int    `toml:"threshold_stop"`
	ThresholdStep  int    `toml:"threshold_step"`
	MinShortSide   int    `toml:"min_short_side"`
	TessdataPrefix string `toml:"tessdata_prefix"`
}

// Resolver contains every image-selection heuristic in one place.
type Resolver struct {
	Engine                 string   `toml:"engine"`
	Ordering               string   `toml:"ordering"`
	TrustDomains           []string `toml:"trust_domains"`
	MinArea                int      `toml:"min_area"`
	MinBytes               int      `toml:"min_bytes"`
	MinDimension           int      `toml:"min_dimension"`
	PageTimeoutSeconds     int      `toml:"page_timeout_seconds"`
	SettleDelayMillis      int      `toml:"settle_delay_ms"`
	DownloadTimeoutSeconds int      `toml:"download_timeout_seconds"`
	ConsentKeywords        []string `toml:"consent_keywords"`
	CaptchaKeywords        []string `toml:"captcha_keywords"`
	UserAgent              string   `toml:"user_agent"`
	ChromePath             string   `toml:"chrome_path"`
	Headless               bool     `toml:"headless"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RunCompleted   bool   `toml:"run_completed"`
	QuotaExhausted bool   `toml:"quota_exhausted"`
	Errors         bool   `toml:"errors"`
}

// Metrics contains the prometheus exporter settings.
type Metrics struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
	MaxSizeMB     int    `toml:"max_size_mb"`
	MaxBackups    int    `toml:"max_backups"`
}

// Export contains the spreadsheet export destination.
type Export struct {
	Path  string `toml:"path"`
	Sheet string `toml:"sheet"`
}

// Config encapsulates all configuration values for plaques2gallery.
//
// Configuration sections by subsystem:
//   - Paths: plaque input, resolved image output, state and logs
//   - Workflow: batch size, worker count, batch draining
//   - Quota: search budget per window and its backend
//   - Search: Google Custom Search credentials
//   - LLM, Normalize: the title/artist extraction model
//   - OCR: tesseract languages and preprocessing sweep
//   - Resolver: rendering engine and image heuristics
//   - Notifications, Metrics, Logging, Export: ambient outputs
type Config struct {
	Paths         Paths         `toml:"paths"`
	Workflow      Workflow      `toml:"workflow"`
	Quota         Quota         `toml:"quota"`
	Search        Search        `toml:"search"`
	LLM           LLM           `toml:"llm"`
	Normalize     Normalize     `toml:"normalize"`
	OCR           OCR           `toml:"ocr"`
	Resolver      Resolver      `toml:"resolver"`
	Notifications Notifications `toml:"notifications"`
	Metrics       Metrics       `toml:"metrics"`
	Logging       Logging       `toml:"logging"`
	Export        Export        `toml:"export"`

	quotaWindow   time.Duration
	quotaLocation *time.Location
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigRelativePath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	loadDotEnv(resolvedPath)

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err == nil {
			if info.IsDir() {
				return "", false, fmt.Errorf("config path %q is a directory", expanded)
			}
			return expanded, true, nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}

	defaultPath, err := expandPath(defaultConfigRelativePath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(defaultProjectConfigFile)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// loadDotEnv reads .env files beside the config and in the working directory.
// Variables already present in the environment win.
func loadDotEnv(configPath string) {
	candidates := []string{defaultDotEnvFile}
	if configPath != "" {
		candidates = append([]string{filepath.Join(filepath.Dir(configPath), defaultDotEnvFile)}, candidates...)
	}
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		if info, err := os.Stat(abs); err != nil || info.IsDir() {
			continue
		}
		_ = godotenv.Load(abs)
	}
}

// EnsureDirectories creates required directories for pipeline operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.ImagesDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite record store location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, defaultDatabaseFileName)
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, defaultLockFileName)
}

// LogFilePath returns the rotated log file location.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, defaultLogFileName)
}

// QuotaWindow returns the parsed quota window length.
func (c *Config) QuotaWindow() time.Duration {
	if c.quotaWindow > 0 {
		return c.quotaWindow
	}
	if d, err := time.ParseDuration(strings.TrimSpace(c.Quota.Window)); err == nil && d > 0 {
		return d
	}
	return 24 * time.Hour
}

// QuotaLocation returns the timezone used to align quota windows.
func (c *Config) QuotaLocation() *time.Location {
	if c.quotaLocation != nil {
		return c.quotaLocation
	}
	if loc, err := time.LoadLocation(strings.TrimSpace(c.Quota.Timezone)); err == nil {
		return loc
	}
	return time.UTC
}

// SearchTimeout returns the per-call search timeout.
func (c *Config) SearchTimeout() time.Duration {
	return secondsOr(c.Search.TimeoutSeconds, defaultSearchTimeoutSeconds)
}

// PageTimeout returns the bounded page load timeout.
func (c *Config) PageTimeout() time.Duration {
	return secondsOr(c.Resolver.PageTimeoutSeconds, defaultResolverPageTimeout)
}

// DownloadTimeout returns the bounded image download timeout.
func (c *Config) DownloadTimeout() time.Duration {
	return secondsOr(c.Resolver.DownloadTimeoutSeconds, defaultResolverDownloadTimeout)
}

// SettleDelay returns how long to wait for dynamic content after load.
func (c *Config) SettleDelay() time.Duration {
	if c.Resolver.SettleDelayMillis <= 0 {
		return 0
	}
	return time.Duration(c.Resolver.SettleDelayMillis) * time.Millisecond
}

func secondsOr(value, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the normalization model connection settings.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// GetLLM returns the model connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
}
