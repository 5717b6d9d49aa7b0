package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const maxWorkers = 8

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateQuota(); err != nil {
		return err
	}
	if err := c.validateSearch(); err != nil {
		return err
	}
	if err := c.validateNormalize(); err != nil {
		return err
	}
	if err := c.validateOCR(); err != nil {
		return err
	}
	if err := c.validateResolver(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// ValidateCredentials reports missing external service credentials. It is
// separate from Validate so that read-only commands (status, export) work
// without API keys.
func (c *Config) ValidateCredentials() error {
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigRelativePath
	}
	if c.Search.APIKey == "" {
		return fmt.Errorf("search.api_key is required. Set GOOGLE_API_KEY env var or edit %s (create with 'plaques2gallery config init')", defaultPath)
	}
	if c.Search.EngineID == "" {
		return fmt.Errorf("search.engine_id is required. Set GOOGLE_CSE_ID env var or edit %s", defaultPath)
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required. Set LLM_API_KEY env var or edit %s", defaultPath)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.BatchSize <= 0 {
		return errors.New("workflow.batch_size must be positive")
	}
	if c.Workflow.Workers <= 0 {
		return errors.New("workflow.workers must be positive")
	}
	if c.Workflow.Workers > maxWorkers {
		return fmt.Errorf("workflow.workers must be at most %d", maxWorkers)
	}
	return nil
}

func (c *Config) validateQuota() error {
	if c.Quota.Limit <= 0 {
		return errors.New("quota.limit must be positive")
	}
	if c.QuotaWindow() < time.Second {
		return errors.New("quota.window must be at least 1s")
	}
	switch c.Quota.Backend {
	case QuotaBackendSQLite:
	case QuotaBackendRedis:
		if strings.TrimSpace(c.Quota.RedisURL) == "" {
			return errors.New("quota.redis_url is required when quota.backend = \"redis\"")
		}
	default:
		return fmt.Errorf("quota.backend: unsupported value %q", c.Quota.Backend)
	}
	return nil
}

func (c *Config) validateSearch() error {
	if c.Search.Results <= 0 || c.Search.Results > 10 {
		return errors.New("search.results must be between 1 and 10")
	}
	return nil
}

func (c *Config) validateNormalize() error {
	if c.Normalize.MinConfidence < 0 || c.Normalize.MinConfidence > 1 {
		return errors.New("normalize.min_confidence must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateOCR() error {
	if c.OCR.ThresholdStep <= 0 {
		return errors.New("ocr.threshold_step must be positive")
	}
	if c.OCR.ThresholdStart < 0 || c.OCR.ThresholdStop > 255 || c.OCR.ThresholdStart >= c.OCR.ThresholdStop {
		return errors.New("ocr.threshold_start must be below ocr.threshold_stop within 0-255")
	}
	if c.OCR.MinShortSide < 0 {
		return errors.New("ocr.min_short_side must not be negative")
	}
	return nil
}

func (c *Config) validateResolver() error {
	switch c.Resolver.Engine {
	case EngineChrome, EngineStatic:
	default:
		return fmt.Errorf("resolver.engine: unsupported value %q", c.Resolver.Engine)
	}
	switch c.Resolver.Ordering {
	case OrderingTrustFirst, OrderingRank:
	default:
		return fmt.Errorf("resolver.ordering: unsupported value %q", c.Resolver.Ordering)
	}
	if c.Resolver.MinArea < 0 {
		return errors.New("resolver.min_area must not be negative")
	}
	if c.Resolver.MinBytes < 0 {
		return errors.New("resolver.min_bytes must not be negative")
	}
	if c.Resolver.MinDimension < 0 {
		return errors.New("resolver.min_dimension must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
