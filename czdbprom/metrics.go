// Package czdbprom is a ready-made czdb.Metrics implementation backed by
// github.com/prometheus/client_golang. It is grounded on the
// Metrics-interface-plus-promauto pattern in
// AdguardTeam-AdGuardDNS/internal/metrics/geoip.go: one counter/histogram
// set registered once via promauto, with label values chosen per call
// rather than per-metric variables.
package czdbprom

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/czdb/czdb"
)

const namespace = "czdb"

// Metrics is a czdb.Metrics implementation that reports lookup and batch
// statistics to Prometheus. Construct one with New and pass it to
// czdb.WithMetrics.
type Metrics struct {
	lookups        *prometheus.CounterVec
	lookupErrors   *prometheus.CounterVec
	lookupDuration prometheus.Histogram
	batchSize      prometheus.Histogram
	batchDuration  *prometheus.HistogramVec
}

// New registers czdb's metrics with reg and returns a Metrics ready to pass
// to czdb.WithMetrics. Passing the same *prometheus.Registry to two calls of
// New panics, matching promauto's own registration-collision behavior.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		lookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "The number of Search calls, labeled by whether the address was found.",
		}, []string{"hit"}),
		lookupErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_errors_total",
			Help:      "The number of Search calls that returned an error, labeled by error kind.",
		}, []string{"kind"}),
		lookupDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lookup_duration_seconds",
			Help:      "The latency of successful Search calls.",
			Buckets:   prometheus.ExponentialBuckets(1e-7, 4, 10),
		}),
		batchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "The size of SearchMany/SearchManyScan calls.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
		}),
		batchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "The latency of SearchMany/SearchManyScan calls, labeled by whether the internal scan path was used.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}, []string{"scanned"}),
	}
}

// ObserveLookup implements czdb.Metrics.
func (m *Metrics) ObserveLookup(found bool, dur time.Duration) {
	m.lookups.With(prometheus.Labels{"hit": hitLabel(found)}).Inc()
	m.lookupDuration.Observe(dur.Seconds())
}

// ObserveLookupError implements czdb.Metrics.
func (m *Metrics) ObserveLookupError(err error) {
	m.lookupErrors.With(prometheus.Labels{"kind": errorKind(err)}).Inc()
}

// ObserveBatch implements czdb.Metrics.
func (m *Metrics) ObserveBatch(size int, scanned bool, dur time.Duration) {
	m.batchSize.Observe(float64(size))
	m.batchDuration.With(prometheus.Labels{"scanned": boolLabel(scanned)}).Observe(dur.Seconds())
}

func hitLabel(found bool) string {
	if found {
		return "1"
	}
	return "0"
}

func boolLabel(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// errorKind returns a short, low-cardinality label identifying err's
// concrete type, matching the error kinds czdb's error.go exports. It is
// used only as a Prometheus label value, so an unrecognized error becomes
// "other" rather than leaking its full message into a label.
func errorKind(err error) string {
	switch {
	case errors.Is(err, czdb.ErrTruncated):
		return "truncated"
	case errors.As(err, new(*czdb.IOError)):
		return "io"
	case errors.As(err, new(*czdb.InvalidKeyError)):
		return "invalid_key"
	case errors.As(err, new(*czdb.CorruptHeaderError)):
		return "corrupt_header"
	case errors.As(err, new(*czdb.CorruptRecordError)):
		return "corrupt_record"
	case errors.As(err, new(*czdb.IPVersionMismatchError)):
		return "ip_version_mismatch"
	case errors.As(err, new(*czdb.InvalidAddressError)):
		return "invalid_address"
	default:
		return "other"
	}
}
