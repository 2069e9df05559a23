package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess  = "success"
	OutcomeConnect  = "connect_error"
	OutcomeProtocol = "protocol_error"
	OutcomeRange    = "out_of_range"
	OutcomeCanceled = "canceled"
)

var (
	registerOnce sync.Once
	registry     = prometheus.NewRegistry()

	framesDecoded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradefeed",
			Subsystem: "frames",
			Name:      "decoded_total",
			Help:      "Packet frames decoded, by phase.",
		},
		[]string{"phase"},
	)
	streamFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradefeed",
			Subsystem: "stream",
			Name:      "fetches_total",
			Help:      "Stream-all fetches, by outcome.",
		},
		[]string{"outcome"},
	)
	resendAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradefeed",
			Subsystem: "resend",
			Name:      "attempts_total",
			Help:      "Single-packet resend attempts, by outcome.",
		},
		[]string{"outcome"},
	)
	persistentGaps = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tradefeed",
			Subsystem: "run",
			Name:      "persistent_gaps",
			Help:      "Sequences still missing after resend in the last run.",
		},
	)
	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tradefeed",
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Wall time of one fetch/resolve run.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
		},
		[]string{"complete"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		registry.MustRegister(framesDecoded, streamFetches, resendAttempts, persistentGaps, runDuration)
	})
}

// Gatherer exposes the package registry, e.g. for tests or a textfile export.
func Gatherer() prometheus.Gatherer {
	RegisterMetrics()
	return registry
}

func RecordFrame(phase string) {
	RegisterMetrics()
	framesDecoded.WithLabelValues(phase).Inc()
}

func RecordStreamFetch(outcome string) {
	RegisterMetrics()
	streamFetches.WithLabelValues(outcome).Inc()
}

func RecordResend(outcome string) {
	RegisterMetrics()
	resendAttempts.WithLabelValues(outcome).Inc()
}

// RecordResends counts n sequences settled with one outcome without a connection each.
func RecordResends(outcome string, n int64) {
	RegisterMetrics()
	resendAttempts.WithLabelValues(outcome).Add(float64(n))
}

func RecordRun(gaps int64, duration time.Duration) {
	RegisterMetrics()
	persistentGaps.Set(float64(gaps))
	complete := "true"
	if gaps > 0 {
		complete = "false"
	}
	runDuration.WithLabelValues(complete).Observe(duration.Seconds())
}

// WriteTextfile dumps the current metric values in the text exposition format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Gatherer())
}
