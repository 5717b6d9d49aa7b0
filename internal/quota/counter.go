package quota

import (
	"context"
	"fmt"
	"time"

	"plaques2gallery/internal/records"
)

// Backend persists per-window usage. TryAcquire must be atomic across every
// process sharing the backend.
type Backend interface {
	TryAcquire(ctx context.Context, windowStart time.Time, limit int) (bool, error)
	Release(ctx context.Context, windowStart time.Time) error
	Exhaust(ctx context.Context, windowStart time.Time, limit int) error
	Usage(ctx context.Context, windowStart time.Time, limit int) (records.QuotaWindow, error)
}

// Counter tracks search calls against a per-window limit.
type Counter struct {
	backend Backend
	limit   int
	window  time.Duration
	loc     *time.Location
	now     func() time.Time
}

// Option customizes a Counter.
type Option func(*Counter)

// WithClock overrides the time source, for tests that advance across windows.
func WithClock(now func() time.Time) Option {
	return func(c *Counter) {
		if now != nil {
			c.now = now
		}
	}
}

// New constructs a Counter over backend.
func New(backend Backend, limit int, window time.Duration, loc *time.Location, opts ...Option) *Counter {
	if window <= 0 {
		window = 24 * time.Hour
	}
	if loc == nil {
		loc = time.UTC
	}
	counter := &Counter{
		backend: backend,
		limit:   limit,
		window:  window,
		loc:     loc,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(counter)
	}
	return counter
}

// Limit returns the configured per-window limit.
func (c *Counter) Limit() int {
	return c.limit
}

// WindowStart returns the start of the window containing t.
func (c *Counter) WindowStart(t time.Time) time.Time {
	return alignWindow(t, c.window, c.loc)
}

// NextWindow returns the start of the window after the current one.
func (c *Counter) NextWindow() time.Time {
	current := c.WindowStart(c.now())
	if c.window%(24*time.Hour) != 0 {
		return current.Add(c.window)
	}
	// Whole-day windows can be an hour short or long across DST changes.
	return alignWindow(current.Add(c.window+time.Hour), c.window, c.loc)
}

// Lease is one acquired unit and the window it was charged to.
type Lease struct {
	WindowStart time.Time
}

// TryAcquire claims one unit in the current window. It reports false when
// the window is already at its limit.
func (c *Counter) TryAcquire(ctx context.Context) (Lease, bool, error) {
	if c.limit <= 0 {
		return Lease{}, false, nil
	}
	lease := Lease{WindowStart: c.WindowStart(c.now())}
	ok, err := c.backend.TryAcquire(ctx, lease.WindowStart, c.limit)
	if err != nil {
		return Lease{}, false, fmt.Errorf("quota acquire: %w", err)
	}
	return lease, ok, nil
}

// Release refunds the unit held by lease after a failed provider call. The
// refund goes to the lease's window even when the call crossed into the next.
func (c *Counter) Release(ctx context.Context, lease Lease) error {
	if err := c.backend.Release(ctx, lease.WindowStart); err != nil {
		return fmt.Errorf("quota release: %w", err)
	}
	return nil
}

// Exhaust marks the current window as spent, used when the provider itself
// reports the quota is gone.
func (c *Counter) Exhaust(ctx context.Context) error {
	if err := c.backend.Exhaust(ctx, c.WindowStart(c.now()), c.limit); err != nil {
		return fmt.Errorf("quota exhaust: %w", err)
	}
	return nil
}

// Usage returns usage for the current window.
func (c *Counter) Usage(ctx context.Context) (records.QuotaWindow, error) {
	usage, err := c.backend.Usage(ctx, c.WindowStart(c.now()), c.limit)
	if err != nil {
		return usage, fmt.Errorf("quota usage: %w", err)
	}
	return usage, nil
}

// Remaining returns the units left in the current window.
func (c *Counter) Remaining(ctx context.Context) (int, error) {
	usage, err := c.Usage(ctx)
	if err != nil {
		return 0, err
	}
	if left := usage.Limit - usage.Used; left > 0 {
		return left, nil
	}
	return 0, nil
}

// alignWindow maps t onto its window start. Whole-day windows align to local
// midnight in loc so a "24h" quota resets with the provider's calendar day;
// shorter windows truncate absolute time.
func alignWindow(t time.Time, window time.Duration, loc *time.Location) time.Time {
	const day = 24 * time.Hour
	if window%day != 0 {
		return t.Truncate(window).In(loc)
	}
	local := t.In(loc)
	days := int64(window / day)
	civil := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC).Unix() / int64(day/time.Second)
	start := civil - civil%days
	return time.Date(1970, time.January, 1+int(start), 0, 0, 0, 0, loc)
}
