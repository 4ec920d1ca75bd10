package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// FrameCacheMetrics observes the LRU frame cache.
type FrameCacheMetrics interface {
	RecordHit()
	RecordMiss()
	RecordEviction()
	SetEntries(n int)
}

type frameCacheMetrics struct {
	lookups   *prometheus.CounterVec
	evictions prometheus.Counter
	entries   prometheus.Gauge
}

// NewFrameCacheMetrics creates Prometheus cache metrics labelled with the
// name of the wrapped frame store. Returns a no-op implementation when
// metrics are disabled.
func NewFrameCacheMetrics(store string) FrameCacheMetrics {
	if !IsEnabled() {
		return NewNoopFrameCacheMetrics()
	}

	reg := GetRegistry()
	labels := prometheus.Labels{"store": store}

	return &frameCacheMetrics{
		lookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name:        "stonify_frame_cache_lookups_total",
				Help:        "Frame cache lookups by result",
				ConstLabels: labels,
			},
			[]string{"result"},
		),
		evictions: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name:        "stonify_frame_cache_evictions_total",
				Help:        "Frames evicted from the cache",
				ConstLabels: labels,
			},
		),
		entries: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name:        "stonify_frame_cache_entries",
				Help:        "Frames currently cached",
				ConstLabels: labels,
			},
		),
	}
}

func (m *frameCacheMetrics) RecordHit()       { m.lookups.WithLabelValues("hit").Inc() }
func (m *frameCacheMetrics) RecordMiss()      { m.lookups.WithLabelValues("miss").Inc() }
func (m *frameCacheMetrics) RecordEviction()  { m.evictions.Inc() }
func (m *frameCacheMetrics) SetEntries(n int) { m.entries.Set(float64(n)) }

// NewNoopFrameCacheMetrics returns a FrameCacheMetrics that records nothing.
func NewNoopFrameCacheMetrics() FrameCacheMetrics {
	return noopFrameCacheMetrics{}
}

type noopFrameCacheMetrics struct{}

func (noopFrameCacheMetrics) RecordHit()      {}
func (noopFrameCacheMetrics) RecordMiss()     {}
func (noopFrameCacheMetrics) RecordEviction() {}
func (noopFrameCacheMetrics) SetEntries(int)  {}
