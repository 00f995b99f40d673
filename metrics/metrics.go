// Package metrics provides Prometheus metrics for the lead service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	ActionsRecorded   *prometheus.CounterVec
	LeadPatches       *prometheus.CounterVec
	PatchDuration     prometheus.Histogram
	RemindersNotified prometheus.Counter
	DigestsSent       *prometheus.CounterVec
	StreamClients     prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		ActionsRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leads_actions_recorded_total",
				Help: "Seeker actions recorded by action type.",
			},
			[]string{"action_type"},
		),
		LeadPatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leads_patches_total",
				Help: "Batch lead updates by result.",
			},
			[]string{"result"},
		),
		PatchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "leads_patch_duration_seconds",
				Help:    "Time spent applying a batch lead update.",
				Buckets: prometheus.DefBuckets,
			},
		),
		RemindersNotified: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "leads_reminders_notified_total",
				Help: "Due reminders pushed to connected listers.",
			},
		),
		DigestsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leads_reminder_digests_total",
				Help: "Overdue reminder digest mails by result.",
			},
			[]string{"result"},
		),
		StreamClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "leads_reminder_stream_clients",
				Help: "Open reminder websocket connections.",
			},
		),
		registry: reg,
	}

	reg.MustRegister(m.ActionsRecorded)
	reg.MustRegister(m.LeadPatches)
	reg.MustRegister(m.PatchDuration)
	reg.MustRegister(m.RemindersNotified)
	reg.MustRegister(m.DigestsSent)
	reg.MustRegister(m.StreamClients)
	reg.MustRegister(collectors.NewGoCollector())

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordAction(actionType string) {
	m.ActionsRecorded.WithLabelValues(actionType).Inc()
}

// RecordPatch counts one batch update and its duration.
func (m *Metrics) RecordPatch(result string, seconds float64) {
	m.LeadPatches.WithLabelValues(result).Inc()
	m.PatchDuration.Observe(seconds)
}

func (m *Metrics) RecordNotified(n int) {
	m.RemindersNotified.Add(float64(n))
}

func (m *Metrics) RecordDigest(result string) {
	m.DigestsSent.WithLabelValues(result).Inc()
}

func (m *Metrics) StreamOpened() { m.StreamClients.Inc() }

func (m *Metrics) StreamClosed() { m.StreamClients.Dec() }
