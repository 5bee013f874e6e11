// Package telemetry exposes capture session statistics to Prometheus.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/exp1azy/ether-net/internal/capture"
)

// SnapshotFunc supplies the current session snapshot on each scrape.
type SnapshotFunc func() capture.Snapshot

// Collector adapts a capture session's metrics snapshot to the
// Prometheus collect protocol. Scrapes read the aggregator's atomic
// counters; they never block the capture path.
type Collector struct {
	snapshot SnapshotFunc

	packetsTotal   *prometheus.Desc
	bytesTotal     *prometheus.Desc
	peakPacketRate *prometheus.Desc
	peakByteRate   *prometheus.Desc
	errorsTotal    *prometheus.Desc
	droppedTotal   *prometheus.Desc
	ifDroppedTotal *prometheus.Desc
	duration       *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector over the given snapshot source.
func NewCollector(device string, snapshot SnapshotFunc) *Collector {
	labels := prometheus.Labels{"device": device}
	return &Collector{
		snapshot: snapshot,
		packetsTotal: prometheus.NewDesc(
			"ethernet_capture_packets_total",
			"Total number of packets captured in the current session",
			nil, labels),
		bytesTotal: prometheus.NewDesc(
			"ethernet_capture_bytes_total",
			"Total number of bytes captured in the current session",
			nil, labels),
		peakPacketRate: prometheus.NewDesc(
			"ethernet_capture_peak_packets_per_second",
			"Highest packet count observed in any completed one-second window",
			nil, labels),
		peakByteRate: prometheus.NewDesc(
			"ethernet_capture_peak_bytes_per_second",
			"Highest byte count observed in any completed one-second window",
			nil, labels),
		errorsTotal: prometheus.NewDesc(
			"ethernet_capture_errors_total",
			"Number of capture-time errors recorded in the current session",
			nil, labels),
		droppedTotal: prometheus.NewDesc(
			"ethernet_capture_dropped_packets_total",
			"Packets dropped by the capture mechanism",
			nil, labels),
		ifDroppedTotal: prometheus.NewDesc(
			"ethernet_capture_interface_dropped_packets_total",
			"Packets dropped by the network interface",
			nil, labels),
		duration: prometheus.NewDesc(
			"ethernet_capture_session_duration_seconds",
			"Elapsed time of the current or most recent session",
			nil, labels),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.packetsTotal
	ch <- c.bytesTotal
	ch <- c.peakPacketRate
	ch <- c.peakByteRate
	ch <- c.errorsTotal
	ch <- c.droppedTotal
	ch <- c.ifDroppedTotal
	ch <- c.duration
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.snapshot()
	ch <- prometheus.MustNewConstMetric(c.packetsTotal, prometheus.CounterValue, float64(snap.TotalPackets))
	ch <- prometheus.MustNewConstMetric(c.bytesTotal, prometheus.CounterValue, float64(snap.TotalBytes))
	ch <- prometheus.MustNewConstMetric(c.peakPacketRate, prometheus.GaugeValue, float64(snap.MaxPacketsPerSecond))
	ch <- prometheus.MustNewConstMetric(c.peakByteRate, prometheus.GaugeValue, float64(snap.MaxBytesPerSecond))
	ch <- prometheus.MustNewConstMetric(c.errorsTotal, prometheus.CounterValue, float64(len(snap.Errors)))
	ch <- prometheus.MustNewConstMetric(c.droppedTotal, prometheus.CounterValue, float64(snap.Dropped))
	ch <- prometheus.MustNewConstMetric(c.ifDroppedTotal, prometheus.CounterValue, float64(snap.IfDropped))
	ch <- prometheus.MustNewConstMetric(c.duration, prometheus.GaugeValue, snap.Duration.Seconds())
}
