// Package telemetry defines the Prometheus collectors exported on /metrics.
// A nil *Metrics is valid and records nothing.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "kioskwatch"

// Metrics holds every collector the service exports.
type Metrics struct {
	statusReports  *prometheus.CounterVec
	scanEvents     *prometheus.CounterVec
	scannerFaults  prometheus.Counter
	lookupDuration prometheus.Histogram
	subscribers    prometheus.Gauge
	hubMessages    *prometheus.CounterVec
	hubDropped     prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		statusReports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_reports_total",
			Help:      "Kiosk status reports received, by source and outcome.",
		}, []string{"source", "outcome"}),
		scanEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_events_total",
			Help:      "Scan events published, by result.",
		}, []string{"result"}),
		scannerFaults: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scanner_faults_total",
			Help:      "Read failures of the scan input stream.",
		}),
		lookupDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "record_lookup_duration_seconds",
			Help:      "Latency of record provider lookups.",
			Buckets:   prometheus.DefBuckets,
		}),
		subscribers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hub_subscribers",
			Help:      "Currently connected dashboard subscribers.",
		}),
		hubMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hub_messages_total",
			Help:      "Messages delivered to subscribers, by kind.",
		}, []string{"kind"}),
		hubDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hub_messages_dropped_total",
			Help:      "Pushed events dropped because a subscriber outbox was full.",
		}),
	}
}

// StatusReport counts one ingested status report.
func (m *Metrics) StatusReport(source, outcome string) {
	if m == nil {
		return
	}
	m.statusReports.WithLabelValues(source, outcome).Inc()
}

// ScanEvent counts one published scan result.
func (m *Metrics) ScanEvent(result string) {
	if m == nil {
		return
	}
	m.scanEvents.WithLabelValues(result).Inc()
}

// ScannerFault counts one input stream failure.
func (m *Metrics) ScannerFault() {
	if m == nil {
		return
	}
	m.scannerFaults.Inc()
}

// ObserveLookup records the latency of one record lookup.
func (m *Metrics) ObserveLookup(d time.Duration) {
	if m == nil {
		return
	}
	m.lookupDuration.Observe(d.Seconds())
}

// SetSubscribers sets the connected subscriber gauge.
func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.subscribers.Set(float64(n))
}

// HubMessage counts one delivered message of the given kind.
func (m *Metrics) HubMessage(kind string) {
	if m == nil {
		return
	}
	m.hubMessages.WithLabelValues(kind).Inc()
}

// HubDropped counts one dropped push.
func (m *Metrics) HubDropped() {
	if m == nil {
		return
	}
	m.hubDropped.Inc()
}
