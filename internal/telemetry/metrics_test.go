package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.StatusReport("http", "accepted")
	m.StatusReport("http", "accepted")
	m.StatusReport("mqtt", "invalid")
	m.ScanEvent("found")
	m.ScannerFault()
	m.ObserveLookup(15 * time.Millisecond)
	m.SetSubscribers(3)
	m.HubMessage("snapshot")
	m.HubDropped()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.statusReports.WithLabelValues("http", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.statusReports.WithLabelValues("mqtt", "invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scanEvents.WithLabelValues("found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scannerFaults))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.subscribers))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.hubDropped))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.StatusReport("http", "accepted")
		m.ScanEvent("found")
		m.ScannerFault()
		m.ObserveLookup(time.Second)
		m.SetSubscribers(1)
		m.HubMessage("update")
		m.HubDropped()
	})
}
