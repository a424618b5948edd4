package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ConsoleMetrics is the concrete Prometheus-backed Recorder for this
// service, plus a handful of domain gauges specific to show control
// that don't fit the generic operation/duration/error shape.
type ConsoleMetrics struct {
	operationsTotal *prometheus.CounterVec
	durationSeconds *prometheus.HistogramVec
	errorsTotal     *prometheus.CounterVec

	PlaybackPosition  prometheus.Gauge
	BGMVolume         prometheus.Gauge
	SFXVolume         prometheus.Gauge
	SFXVoicesActive   prometheus.Gauge
	EventsPublished   prometheus.Counter
	EventsDropped     prometheus.Counter
	RemoteOpsQueued   prometheus.Gauge
}

// NewConsoleMetrics registers every collector on registry and returns
// the populated ConsoleMetrics. Registering twice on the same registry
// panics (promauto registers with MustRegister), so callers should
// construct exactly one ConsoleMetrics per process registry.
func NewConsoleMetrics(registry prometheus.Registerer) *ConsoleMetrics {
	factory := promauto.With(registry)

	return &ConsoleMetrics{
		operationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "showconsole",
			Name:      "operations_total",
			Help:      "Count of kernel operations by operation and status.",
		}, []string{"operation", "status"}),

		durationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "showconsole",
			Name:      "operation_duration_seconds",
			Help:      "Duration of kernel operations in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),

		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "showconsole",
			Name:      "errors_total",
			Help:      "Count of errors by operation and error type.",
		}, []string{"operation", "error_type"}),

		PlaybackPosition: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "showconsole",
			Name:      "bgm_position_seconds",
			Help:      "Current BGM playback position in seconds.",
		}),

		BGMVolume: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "showconsole",
			Name:      "bgm_volume",
			Help:      "Current BGM volume, 0.0-3.0.",
		}),

		SFXVolume: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "showconsole",
			Name:      "sfx_volume",
			Help:      "Current SFX volume, 0.0-3.0.",
		}),

		SFXVoicesActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "showconsole",
			Name:      "sfx_voices_active",
			Help:      "Number of SFX voices currently playing.",
		}),

		EventsPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "showconsole",
			Name:      "events_published_total",
			Help:      "Total events published on the kernel event bus.",
		}),

		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "showconsole",
			Name:      "events_dropped_total",
			Help:      "Total events dropped due to a full subscriber buffer.",
		}),

		RemoteOpsQueued: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "showconsole",
			Name:      "remote_ops_queued",
			Help:      "Remote commands currently deferred behind local priority.",
		}),
	}
}

func (m *ConsoleMetrics) RecordOperation(operation, status string) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

func (m *ConsoleMetrics) RecordDuration(operation string, seconds float64) {
	m.durationSeconds.WithLabelValues(operation).Observe(seconds)
}

func (m *ConsoleMetrics) RecordError(operation, errorType string) {
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
}

var _ Recorder = (*ConsoleMetrics)(nil)
