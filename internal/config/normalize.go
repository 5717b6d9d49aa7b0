package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"plaques2gallery/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWorkflow()
	if err := c.normalizeQuota(); err != nil {
		return err
	}
	c.normalizeSearch()
	c.normalizeLLM()
	c.normalizeOCR()
	c.normalizeResolver()
	c.normalizeNotifications()
	if err := c.normalizeExport(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.PlaquesDir, err = expandPath(c.Paths.PlaquesDir); err != nil {
		return fmt.Errorf("paths.plaques_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ImagesDir) == "" {
		c.Paths.ImagesDir = defaultImagesDir
	}
	if c.Paths.ImagesDir, err = expandPath(c.Paths.ImagesDir); err != nil {
		return fmt.Errorf("paths.images_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.WatchDebounceMillis <= 0 {
		c.Workflow.WatchDebounceMillis = defaultWatchDebounceMillis
	}
	if c.Workflow.QuotaRecheckSeconds <= 0 {
		c.Workflow.QuotaRecheckSeconds = defaultWatchQuotaRecheckSeconds
	}
	if c.Workflow.MaxTransientAttempts <= 0 {
		c.Workflow.MaxTransientAttempts = defaultMaxTransientAttempts
	}
}

func (c *Config) normalizeQuota() error {
	c.Quota.Backend = strings.ToLower(strings.TrimSpace(c.Quota.Backend))
	if c.Quota.Backend == "" {
		c.Quota.Backend = defaultQuotaBackend
	}
	if c.Quota.RedisURL == "" {
		if value, ok := os.LookupEnv("REDIS_URL"); ok {
			c.Quota.RedisURL = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Quota.RedisPrefix) == "" {
		c.Quota.RedisPrefix = defaultQuotaRedisPrefix
	}

	c.Quota.Window = strings.TrimSpace(c.Quota.Window)
	if c.Quota.Window == "" {
		c.Quota.Window = defaultQuotaWindow
	}
	window, err := time.ParseDuration(c.Quota.Window)
	if err != nil {
		return fmt.Errorf("quota.window: %w", err)
	}
	c.quotaWindow = window

	c.Quota.Timezone = strings.TrimSpace(c.Quota.Timezone)
	if c.Quota.Timezone == "" {
		c.Quota.Timezone = defaultQuotaTimezone
	}
	loc, err := time.LoadLocation(c.Quota.Timezone)
	if err != nil {
		return fmt.Errorf("quota.timezone: %w", err)
	}
	c.quotaLocation = loc
	return nil
}

func (c *Config) normalizeSearch() {
	if c.Search.APIKey == "" {
		if value, ok := os.LookupEnv("GOOGLE_API_KEY"); ok {
			c.Search.APIKey = value
		}
	}
	if c.Search.EngineID == "" {
		if value, ok := os.LookupEnv("GOOGLE_CSE_ID"); ok {
			c.Search.EngineID = value
		}
	}
	c.Search.APIKey = strings.TrimSpace(c.Search.APIKey)
	c.Search.EngineID = strings.TrimSpace(c.Search.EngineID)
	c.Search.BaseURL = strings.TrimSpace(c.Search.BaseURL)
	if c.Search.BaseURL == "" {
		c.Search.BaseURL = defaultSearchBaseURL
	}
	if c.Search.TimeoutSeconds <= 0 {
		c.Search.TimeoutSeconds = defaultSearchTimeoutSeconds
	}
}

func (c *Config) normalizeLLM() {
	if c.LLM.APIKey == "" {
		for _, key := range []string{"LLM_API_KEY", "OPENROUTER_API_KEY"} {
			if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
				c.LLM.APIKey = value
				break
			}
		}
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeOCR() {
	c.OCR.Languages = language.TesseractList(c.OCR.Languages)
	if c.OCR.Languages == "" {
		c.OCR.Languages = defaultOCRLanguages
	}
	if c.OCR.TessdataPrefix == "" {
		if value, ok := os.LookupEnv("TESSDATA_PREFIX"); ok {
			c.OCR.TessdataPrefix = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeResolver() {
	c.Resolver.Engine = strings.ToLower(strings.TrimSpace(c.Resolver.Engine))
	if c.Resolver.Engine == "" {
		c.Resolver.Engine = defaultResolverEngine
	}
	c.Resolver.Ordering = strings.ToLower(strings.TrimSpace(c.Resolver.Ordering))
	if c.Resolver.Ordering == "" {
		c.Resolver.Ordering = defaultResolverOrdering
	}
	c.Resolver.TrustDomains = normalizeHosts(c.Resolver.TrustDomains)
	c.Resolver.ConsentKeywords = normalizeKeywords(c.Resolver.ConsentKeywords)
	c.Resolver.CaptchaKeywords = normalizeKeywords(c.Resolver.CaptchaKeywords)
	if strings.TrimSpace(c.Resolver.UserAgent) == "" {
		c.Resolver.UserAgent = defaultResolverUserAgent
	}
	c.Resolver.ChromePath = strings.TrimSpace(c.Resolver.ChromePath)
}

func (c *Config) normalizeNotifications() {
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = value
		}
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeExport() error {
	if strings.TrimSpace(c.Export.Path) == "" {
		c.Export.Path = defaultExportPath
	}
	var err error
	if c.Export.Path, err = expandPath(c.Export.Path); err != nil {
		return fmt.Errorf("export.path: %w", err)
	}
	if strings.TrimSpace(c.Export.Sheet) == "" {
		c.Export.Sheet = defaultExportSheet
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
}

func normalizeHosts(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		host := strings.ToLower(strings.TrimSpace(value))
		host = strings.TrimPrefix(host, "https://")
		host = strings.TrimPrefix(host, "http://")
		host = strings.TrimPrefix(host, "www.")
		host = strings.Trim(host, "./")
		if host == "" {
			continue
		}
		if _, ok := seen[host]; ok {
			continue
		}
		seen[host] = struct{}{}
		out = append(out, host)
	}
	return out
}

func normalizeKeywords(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		keyword := strings.ToLower(strings.TrimSpace(value))
		if keyword == "" {
			continue
		}
		if _, ok := seen[keyword]; ok {
			continue
		}
		seen[keyword] = struct{}{}
		out = append(out, keyword)
	}
	return out
}
