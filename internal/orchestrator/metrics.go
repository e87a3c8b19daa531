package orchestrator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dialogd",
			Subsystem: "infer",
			Name:      "turns_total",
			Help:      "Total conversation turns by outcome",
		},
		[]string{"model", "outcome"},
	)

	inferDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dialogd",
			Subsystem: "infer",
			Name:      "duration_seconds",
			Help:      "Duration of model calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"model"},
	)

	inferInflight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "dialogd",
			Subsystem: "infer",
			Name:      "inflight",
			Help:      "In-flight model calls",
		},
		[]string{"model"},
	)

	gateWait = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dialogd",
			Subsystem: "infer",
			Name:      "gate_wait_seconds",
			Help:      "Time spent waiting on a model's request gate",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"model"},
	)
)

func init() {
	prometheus.MustRegister(turnsTotal, inferDuration, inferInflight, gateWait)
}

func observeTurn(model, outcome string, dur time.Duration) {
	turnsTotal.WithLabelValues(model, outcome).Inc()
	inferDuration.WithLabelValues(model).Observe(dur.Seconds())
}
