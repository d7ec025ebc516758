// Package metrics counts what a generation run did and exports it in the
// Prometheus text format for the node exporter's textfile collector.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeCached    = "cached"
	OutcomeSkipped   = "skipped"
	OutcomeMalformed = "malformed"
	OutcomeFatal     = "fatal"
)

type Registry struct {
	reg              *prometheus.Registry
	Requests         *prometheus.CounterVec
	RecordsSkipped   prometheus.Counter
	EventsEmitted    prometheus.Counter
	DocumentsWritten prometheus.Counter
	RunSeconds       prometheus.Gauge
	LastSuccess      prometheus.Gauge
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "calgen_provider_requests_total",
		Help: "Provider requests by provider and outcome.",
	}, []string{"provider", "outcome"})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "calgen_records_skipped_total",
		Help: "Raw records that could not be normalized.",
	})
	emitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "calgen_events_emitted_total",
		Help: "Events written into calendar documents, mixins included.",
	})
	documents := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "calgen_documents_written_total",
		Help: "Calendar documents published.",
	})
	runSeconds := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "calgen_run_duration_seconds",
		Help: "Wall time of the last generation run.",
	})
	lastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "calgen_last_success_timestamp_seconds",
		Help: "Unix time of the last run that wrote the manifest.",
	})

	r.MustRegister(requests, skipped, emitted, documents, runSeconds, lastSuccess)
	return &Registry{
		reg:              r,
		Requests:         requests,
		RecordsSkipped:   skipped,
		EventsEmitted:    emitted,
		DocumentsWritten: documents,
		RunSeconds:       runSeconds,
		LastSuccess:      lastSuccess,
	}
}

// Request records one provider request outcome.
func (r *Registry) Request(provider, outcome string) {
	r.Requests.WithLabelValues(provider, outcome).Inc()
}

// WriteTextfile writes every metric to path atomically.
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
