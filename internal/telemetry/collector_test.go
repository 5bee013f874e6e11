package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exp1azy/ether-net/internal/capture"
)

func TestCollectorExposesSnapshot(t *testing.T) {
	snap := capture.Snapshot{
		TotalPackets:        1234,
		TotalBytes:          567890,
		MaxPacketsPerSecond: 400,
		MaxBytesPerSecond:   48000,
		Dropped:             3,
		IfDropped:           1,
		Duration:            90 * time.Second,
		Errors:              []capture.CaptureError{{Time: time.Now()}},
	}

	registry := prometheus.NewRegistry()
	require.NoError(t, registry.Register(NewCollector("eth0", func() capture.Snapshot { return snap })))

	families, err := registry.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		require.Len(t, mf.GetMetric(), 1)
		m := mf.GetMetric()[0]
		switch {
		case m.GetCounter() != nil:
			values[mf.GetName()] = m.GetCounter().GetValue()
		case m.GetGauge() != nil:
			values[mf.GetName()] = m.GetGauge().GetValue()
		}
		// Every metric carries the device label.
		require.Len(t, m.GetLabel(), 1)
		assert.Equal(t, "device", m.GetLabel()[0].GetName())
		assert.Equal(t, "eth0", m.GetLabel()[0].GetValue())
	}

	assert.Equal(t, 1234.0, values["ethernet_capture_packets_total"])
	assert.Equal(t, 567890.0, values["ethernet_capture_bytes_total"])
	assert.Equal(t, 400.0, values["ethernet_capture_peak_packets_per_second"])
	assert.Equal(t, 48000.0, values["ethernet_capture_peak_bytes_per_second"])
	assert.Equal(t, 1.0, values["ethernet_capture_errors_total"])
	assert.Equal(t, 3.0, values["ethernet_capture_dropped_packets_total"])
	assert.Equal(t, 1.0, values["ethernet_capture_interface_dropped_packets_total"])
	assert.Equal(t, 90.0, values["ethernet_capture_session_duration_seconds"])
}

func TestCollectorReadsFreshSnapshotPerScrape(t *testing.T) {
	var packets uint64
	registry := prometheus.NewRegistry()
	require.NoError(t, registry.Register(NewCollector("eth0", func() capture.Snapshot {
		packets += 10
		return capture.Snapshot{TotalPackets: packets}
	})))

	for want := 10.0; want <= 30.0; want += 10.0 {
		families, err := registry.Gather()
		require.NoError(t, err)
		for _, mf := range families {
			if mf.GetName() == "ethernet_capture_packets_total" {
				assert.Equal(t, want, mf.GetMetric()[0].GetCounter().GetValue())
			}
		}
	}
}
