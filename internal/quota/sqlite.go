package quota

import (
	"context"
	"time"

	"plaques2gallery/internal/records"
)

// StoreBackend keeps usage in the record database's quota_windows table.
type StoreBackend struct {
	store *records.Store
}

// NewStoreBackend wraps an open record store.
func NewStoreBackend(store *records.Store) *StoreBackend {
	return &StoreBackend{store: store}
}

func (b *StoreBackend) TryAcquire(ctx context.Context, windowStart time.Time, limit int) (bool, error) {
	return b.store.QuotaTryAcquire(ctx, windowStart, limit)
}

func (b *StoreBackend) Release(ctx context.Context, windowStart time.Time) error {
	return b.store.QuotaRelease(ctx, windowStart)
}

func (b *StoreBackend) Exhaust(ctx context.Context, windowStart time.Time, limit int) error {
	return b.store.QuotaExhaust(ctx, windowStart, limit)
}

func (b *StoreBackend) Usage(ctx context.Context, windowStart time.Time, limit int) (records.QuotaWindow, error) {
	return b.store.QuotaUsage(ctx, windowStart, limit)
}
