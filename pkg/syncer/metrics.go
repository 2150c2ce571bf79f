package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus collectors for sync passes.
type Metrics struct {
	Passes       *prometheus.CounterVec
	Entries      *prometheus.CounterVec
	Writes       *prometheus.CounterVec
	Errors       *prometheus.CounterVec
	Cursor       *prometheus.GaugeVec
	PassDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recipebox",
			Subsystem: "sync",
			Name:      "passes_total",
			Help:      "Sync passes by outcome.",
		}, []string{"account", "result"}),
		Entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recipebox",
			Subsystem: "sync",
			Name:      "entries_total",
			Help:      "Change feed entries by disposition.",
		}, []string{"account", "disposition"}),
		Writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recipebox",
			Subsystem: "sync",
			Name:      "writes_total",
			Help:      "Local recipe writes applied by sync.",
		}, []string{"account", "op"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recipebox",
			Subsystem: "sync",
			Name:      "errors_total",
			Help:      "Failed passes by error kind.",
		}, []string{"account", "kind"}),
		Cursor: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "recipebox",
			Subsystem: "sync",
			Name:      "cursor",
			Help:      "Largest change id consumed.",
		}, []string{"account"}),
		PassDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "recipebox",
			Subsystem: "sync",
			Name:      "pass_duration_seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"account"}),
	}

	if reg != nil {
		reg.MustRegister(m.Passes, m.Entries, m.Writes, m.Errors, m.Cursor, m.PassDuration)
	}
	return m
}
