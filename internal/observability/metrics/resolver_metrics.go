package metrics

import (
	"sync"
	"time"

	"github.com/bell24h/bell24h/pkg/db"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeGranted = "granted"
	OutcomeNone    = "none"
	OutcomeError   = "error"
)

// ResolverMetrics are Prometheus collectors scraped from /metrics.
type ResolverMetrics struct {
	resolutions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	storeErrors *prometheus.CounterVec
	denials     *prometheus.CounterVec
}

var (
	resolverMetrics     *ResolverMetrics
	resolverMetricsOnce sync.Once
)

// Resolver returns the process-wide collectors registered on the default registerer.
func Resolver() *ResolverMetrics {
	resolverMetricsOnce.Do(func() {
		resolverMetrics = NewResolverMetrics(prometheus.DefaultRegisterer)
	})
	return resolverMetrics
}

// NewResolverMetrics registers the collectors on registerer.
func NewResolverMetrics(registerer prometheus.Registerer) *ResolverMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &ResolverMetrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bell24h",
			Subsystem: "acl",
			Name:      "resolutions_total",
			Help:      "Effective permission resolutions by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bell24h",
			Subsystem: "acl",
			Name:      "resolution_duration_seconds",
			Help:      "Time spent resolving an effective permission.",
			Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"outcome"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bell24h",
			Subsystem: "acl",
			Name:      "store_errors_total",
			Help:      "Entity store errors surfaced by the resolver, by reason.",
		}, []string{"reason"}),
		denials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bell24h",
			Subsystem: "http",
			Name:      "access_denied_total",
			Help:      "Requests rejected by the permission or organization guard.",
		}, []string{"guard"}),
	}

	m.resolutions = registerCounterVec(registerer, m.resolutions)
	m.duration = registerHistogramVec(registerer, m.duration)
	m.storeErrors = registerCounterVec(registerer, m.storeErrors)
	m.denials = registerCounterVec(registerer, m.denials)
	return m
}

// ObserveResolution records one resolver call. err takes precedence over granted.
func (m *ResolverMetrics) ObserveResolution(elapsed time.Duration, granted bool, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeNone
	switch {
	case err != nil:
		outcome = OutcomeError
		m.storeErrors.WithLabelValues(db.ClassifyError(err)).Inc()
	case granted:
		outcome = OutcomeGranted
	}
	m.resolutions.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveDenial counts a rejected request for guard ("permission" or "organization").
func (m *ResolverMetrics) ObserveDenial(guard string) {
	if m == nil {
		return
	}
	m.denials.WithLabelValues(guard).Inc()
}

func registerCounterVec(registerer prometheus.Registerer, c *prometheus.CounterVec) *prometheus.CounterVec {
	if err := registerer.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
	}
	return c
}

func registerHistogramVec(registerer prometheus.Registerer, h *prometheus.HistogramVec) *prometheus.HistogramVec {
	if err := registerer.Register(h); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing
			}
		}
	}
	return h
}
