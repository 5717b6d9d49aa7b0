package quota

import (
	"context"
	"fmt"

	"plaques2gallery/internal/config"
	"plaques2gallery/internal/records"
)

// NewFromConfig builds a Counter over the configured backend. The returned
// close function releases backend resources and is never nil.
func NewFromConfig(ctx context.Context, cfg *config.Config, store *records.Store, opts ...Option) (*Counter, func() error, error) {
	noop := func() error { return nil }
	window := cfg.QuotaWindow()
	switch cfg.Quota.Backend {
	case config.QuotaBackendRedis:
		backend, err := NewRedisBackend(ctx, cfg.Quota.RedisURL, cfg.Quota.RedisPrefix, 2*window)
		if err != nil {
			return nil, noop, err
		}
		return New(backend, cfg.Quota.Limit, window, cfg.QuotaLocation(), opts...), backend.Close, nil
	case config.QuotaBackendSQLite, "":
		if store == nil {
			return nil, noop, fmt.Errorf("quota: sqlite backend requires a record store")
		}
		return New(NewStoreBackend(store), cfg.Quota.Limit, window, cfg.QuotaLocation(), opts...), noop, nil
	default:
		return nil, noop, fmt.Errorf("quota: unsupported backend %q", cfg.Quota.Backend)
	}
}
