package czdb

import "time"

// Metrics is the set of counters and timers a Handle reports into, if
// configured with WithMetrics. It is grounded on the geoip.Metrics
// interface pattern: a narrow, Handle-facing seam that production callers
// implement against whatever metrics registry they already run, with a
// no-op default for everyone else.
type Metrics interface {
	// ObserveLookup records the outcome and latency of a single Search call.
	ObserveLookup(found bool, dur time.Duration)

	// ObserveLookupError records a Search call that returned an error.
	ObserveLookupError(err error)

	// ObserveBatch records the size of a SearchMany/SearchManyScan call and
	// whether the scan path was chosen over per-query binary search.
	ObserveBatch(size int, scanned bool, dur time.Duration)
}

// EmptyMetrics is a Metrics implementation that discards everything. It is
// the default for a Handle opened without WithMetrics.
type EmptyMetrics struct{}

var _ Metrics = EmptyMetrics{}

// ObserveLookup implements Metrics.
func (EmptyMetrics) ObserveLookup(found bool, dur time.Duration) {}

// ObserveLookupError implements Metrics.
func (EmptyMetrics) ObserveLookupError(err error) {}

// ObserveBatch implements Metrics.
func (EmptyMetrics) ObserveBatch(size int, scanned bool, dur time.Duration) {}
