package reconciler

import (
	"time"

	"github.com/agentstation/skusync/pkg/constants"
	"github.com/agentstation/skusync/pkg/errors"
)

// UnmappedPolicy decides what happens when a raw identifier has no registry
// entry for its channel.
type UnmappedPolicy string

// Unmapped identifier policies. Unmapped units must never silently vanish
// into another SKU: they are either reported and excluded, or fatal.
const (
	// UnmappedSkip records a diagnostic and excludes the record (default).
	UnmappedSkip UnmappedPolicy = "skip"

	// UnmappedFail aborts the run on the first unmapped identifier.
	UnmappedFail UnmappedPolicy = "fail"
)

// options holds resolved reconciler configuration.
type options struct {
	unmapped    UnmappedPolicy
	concurrency int
	bundles     bool
	now         func() time.Time
}

// Option configures a Reconciler.
type Option func(*options) error

// newOptions applies opts over defaults.
func newOptions(opts ...Option) (*options, error) {
	o := &options{
		unmapped:    UnmappedSkip,
		concurrency: constants.MaxConcurrentParsers,
		now:         time.Now,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithUnmappedPolicy sets the unmapped identifier policy.
func WithUnmappedPolicy(p UnmappedPolicy) Option {
	return func(o *options) error {
		if p != UnmappedSkip && p != UnmappedFail {
			return errors.NewConfigError("reconciler", "unknown unmapped policy "+string(p), nil)
		}
		o.unmapped = p
		return nil
	}
}

// WithConcurrency bounds how many source files are parsed at once.
func WithConcurrency(n int) Option {
	return func(o *options) error {
		if n < 1 {
			return errors.NewConfigError("reconciler", "concurrency must be at least 1", nil)
		}
		o.concurrency = n
		return nil
	}
}

// WithBundles enables the trailing bundle pseudo-row that aggregates bundle
// codes the registry maps to the bundle pseudo-SKU.
func WithBundles(enabled bool) Option {
	return func(o *options) error {
		o.bundles = enabled
		return nil
	}
}

// WithClock overrides the run-date clock, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) error {
		if now == nil {
			return errors.NewConfigError("reconciler", "clock must not be nil", nil)
		}
		o.now = now
		return nil
	}
}
