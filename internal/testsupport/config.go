package testsupport

import (
	"path/filepath"
	"testing"

	"plaques2gallery/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Credentials are filled with placeholders and the static engine is selected
// so no browser is needed.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.PlaquesDir = filepath.Join(base, "plaques")
	cfgVal.Paths.ImagesDir = filepath.Join(base, "images")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Export.Path = filepath.Join(base, "gallery.xlsx")
	cfgVal.Search.APIKey = "test"
	cfgVal.Search.EngineID = "test-cx"
	cfgVal.LLM.APIKey = "test"
	cfgVal.Resolver.Engine = config.EngineStatic
	cfgVal.Resolver.SettleDelayMillis = 0
	cfgVal.Metrics.Listen = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithBatchSize overrides the batch capacity.
func WithBatchSize(size int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.BatchSize = size
	}
}

// WithQuotaLimit overrides the per-window search budget.
func WithQuotaLimit(limit int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Quota.Limit = limit
	}
}

// WithWorkers overrides the number of concurrent record workers.
func WithWorkers(workers int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.Workers = workers
	}
}

// WithTrustDomains replaces the resolver trust list.
func WithTrustDomains(domains ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Resolver.TrustDomains = append([]string(nil), domains...)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
