// internal/metrics/prometheus.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors holds the Prometheus metrics vigil exposes about itself
type Collectors struct {
	ProbesTotal       *prometheus.CounterVec
	ProbeDuration     *prometheus.HistogramVec
	EndpointUp        *prometheus.GaugeVec
	RPOAgeHours       prometheus.Gauge
	RPOStatus         prometheus.Gauge
	RTOEstimateHours  prometheus.Gauge
	RTOStatus         prometheus.Gauge
	AlertsSentTotal   *prometheus.CounterVec
	LogBufferDepth    prometheus.Gauge
	ForwardFailsTotal *prometheus.CounterVec
}

// NewCollectors creates and registers all vigil metrics on a registry.
// Pass nil to register on the default registerer.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collectors{
		ProbesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vigil",
			Subsystem: "probe",
			Name:      "checks_total",
			Help:      "Total health checks by endpoint and resulting status",
		}, []string{"endpoint", "status"}),
		ProbeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vigil",
			Subsystem: "probe",
			Name:      "duration_seconds",
			Help:      "Health check wall-clock duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		EndpointUp: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "vigil",
			Subsystem: "probe",
			Name:      "endpoint_up",
			Help:      "1 when the last probe of the endpoint was healthy",
		}, []string{"endpoint"}),
		RPOAgeHours: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "vigil",
			Subsystem: "dr",
			Name:      "rpo_age_hours",
			Help:      "Age of the last known backup in hours",
		}),
		RPOStatus: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "vigil",
			Subsystem: "dr",
			Name:      "rpo_status",
			Help:      "RPO status: 0 unknown, 1 ok, 2 warning, 3 critical",
		}),
		RTOEstimateHours: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "vigil",
			Subsystem: "dr",
			Name:      "rto_estimate_hours",
			Help:      "Estimated total restore time in hours",
		}),
		RTOStatus: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "vigil",
			Subsystem: "dr",
			Name:      "rto_status",
			Help:      "RTO status: 0 unknown, 1 ok, 2 warning, 3 critical",
		}),
		AlertsSentTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vigil",
			Subsystem: "alert",
			Name:      "sent_total",
			Help:      "Alert deliveries by channel and outcome",
		}, []string{"channel", "outcome"}),
		LogBufferDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "vigil",
			Subsystem: "logs",
			Name:      "buffer_depth",
			Help:      "Entries currently held in the in-memory log buffer",
		}),
		ForwardFailsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vigil",
			Subsystem: "logs",
			Name:      "forward_failures_total",
			Help:      "Failed log forwards by sink",
		}, []string{"sink"}),
	}
}
