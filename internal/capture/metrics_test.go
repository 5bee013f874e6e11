package capture

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tickClock drives a Metrics instance with a manual tick for
// deterministic window tests.
type tickClock struct {
	nanos atomic.Int64
}

func (c *tickClock) now() time.Duration { return time.Duration(c.nanos.Load()) }

func (c *tickClock) advance(d time.Duration) { c.nanos.Add(int64(d)) }

func newTestMetrics() (*Metrics, *tickClock) {
	m := NewMetrics()
	m.OnCaptureStarted()
	clock := &tickClock{}
	m.now = clock.now
	return m, clock
}

func TestMetricsTotals(t *testing.T) {
	m, _ := newTestMetrics()

	lengths := []int{64, 512, 1500, 40, 9000}
	var want uint64
	for _, l := range lengths {
		m.OnPacketCaptured(l)
		want += uint64(l)
	}

	assert.Equal(t, uint64(len(lengths)), m.TotalPackets())
	assert.Equal(t, want, m.TotalBytes())
	assert.InDelta(t, float64(want)/float64(len(lengths)), m.AvgPacketSize(), 1e-9)
}

func TestMetricsTotalsConcurrent(t *testing.T) {
	m, _ := newTestMetrics()

	const workers = 16
	const perWorker = 5000
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				m.OnPacketCaptured(100)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(workers*perWorker), m.TotalPackets())
	assert.Equal(t, uint64(workers*perWorker*100), m.TotalBytes())
}

func TestMetricsZeroPacketSession(t *testing.T) {
	m := NewMetrics()
	m.OnCaptureStarted()
	m.OnCaptureComplete()

	assert.GreaterOrEqual(t, m.Duration(), time.Duration(0))
	assert.Zero(t, m.TotalPackets())
	assert.Zero(t, m.TotalBytes())
	assert.Zero(t, m.AvgPacketSize())
	assert.Zero(t, m.AvgPacketsPerSecond())
	assert.Zero(t, m.AvgBytesPerSecond())
	assert.Zero(t, m.AvgInterPacketTime())
	assert.Zero(t, m.MaxPacketsPerSecond())
	assert.Empty(t, m.Errors())
}

func TestMetricsNeverStarted(t *testing.T) {
	m := NewMetrics()

	assert.Zero(t, m.Duration())
	assert.Zero(t, m.AvgPacketsPerSecond())
	assert.True(t, m.StartTime().IsZero())
	assert.True(t, m.EndTime().IsZero())
}

func TestMetricsInterPacketTime(t *testing.T) {
	m, clock := newTestMetrics()

	// Single packet: no gap yet.
	m.OnPacketCaptured(64)
	assert.Zero(t, m.AvgInterPacketTime())

	clock.advance(10 * time.Millisecond)
	m.OnPacketCaptured(64)
	clock.advance(30 * time.Millisecond)
	m.OnPacketCaptured(64)

	// Two gaps of 10ms and 30ms over three packets.
	assert.Equal(t, 20*time.Millisecond, m.AvgInterPacketTime())
}

func TestMetricsWindowMaxima(t *testing.T) {
	m, clock := newTestMetrics()

	// First window: 3 packets, 300 bytes.
	for i := 0; i < 3; i++ {
		clock.advance(time.Millisecond)
		m.OnPacketCaptured(100)
	}
	assert.Zero(t, m.MaxPacketsPerSecond(), "no window completed yet")

	// Crossing the boundary closes the window including the closing
	// packet itself.
	clock.advance(time.Second)
	m.OnPacketCaptured(100)
	assert.Equal(t, uint64(4), m.MaxPacketsPerSecond())
	assert.Equal(t, uint64(400), m.MaxBytesPerSecond())

	// A smaller completed window must not displace the maximum.
	clock.advance(time.Second)
	m.OnPacketCaptured(100)
	assert.Equal(t, uint64(4), m.MaxPacketsPerSecond())

	// A larger one must.
	for i := 0; i < 9; i++ {
		clock.advance(time.Millisecond)
		m.OnPacketCaptured(100)
	}
	clock.advance(time.Second)
	m.OnPacketCaptured(100)
	assert.Equal(t, uint64(10), m.MaxPacketsPerSecond())
	assert.Equal(t, uint64(1000), m.MaxBytesPerSecond())
}

func TestMetricsIdleWindowsAdvanceBoundary(t *testing.T) {
	m, clock := newTestMetrics()

	clock.advance(time.Millisecond)
	m.OnPacketCaptured(100)

	// Long idle gap. The next packet closes whatever accumulated since
	// the last boundary; idle seconds never inflate the window.
	clock.advance(10 * time.Second)
	m.OnPacketCaptured(100)
	assert.Equal(t, uint64(2), m.MaxPacketsPerSecond())
}

func TestMetricsMaxNeverBelowCompletedWindow(t *testing.T) {
	m, clock := newTestMetrics()

	const workers = 8
	const rounds = 200

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// A reader hammering the maxima concurrently with window closes.
	wg.Add(1)
	go func() {
		defer wg.Done()
		var last uint64
		for {
			select {
			case <-stop:
				return
			default:
			}
			cur := m.MaxPacketsPerSecond()
			if cur < last {
				t.Error("running maximum decreased")
				return
			}
			last = cur
		}
	}()

	for r := 0; r < rounds; r++ {
		var pwg sync.WaitGroup
		for w := 0; w < workers; w++ {
			pwg.Add(1)
			go func() {
				defer pwg.Done()
				m.OnPacketCaptured(100)
			}()
		}
		pwg.Wait()
		clock.advance(time.Second + time.Millisecond)
	}
	// Close the final window.
	m.OnPacketCaptured(100)

	close(stop)
	wg.Wait()

	// Every round pushed `workers` packets inside one window; the
	// closing packet joins one of them. The recorded maximum can never
	// be below a full round's count.
	assert.GreaterOrEqual(t, m.MaxPacketsPerSecond(), uint64(workers))
}

func TestMetricsErrorsAppendOrder(t *testing.T) {
	m, _ := newTestMetrics()

	first := errors.New("first")
	second := errors.New("second")
	m.OnError(first)
	m.OnError(second)

	errs := m.Errors()
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0].Err, first)
	assert.ErrorIs(t, errs[1].Err, second)

	// Snapshot is a copy; appends do not mutate it.
	m.OnError(errors.New("third"))
	assert.Len(t, errs, 2)
}

func TestMetricsRestartResetsCounters(t *testing.T) {
	m, _ := newTestMetrics()
	m.OnPacketCaptured(500)
	m.OnError(errors.New("boom"))
	m.OnCaptureComplete()

	m.OnCaptureStarted()
	assert.Zero(t, m.TotalPackets())
	assert.Zero(t, m.TotalBytes())
	assert.Empty(t, m.Errors())
	assert.True(t, m.EndTime().IsZero())
}

func TestMetricsSnapshotConsistency(t *testing.T) {
	m, clock := newTestMetrics()
	clock.advance(time.Millisecond)
	m.OnPacketCaptured(100)
	clock.advance(time.Millisecond)
	m.OnPacketCaptured(300)
	m.OnCaptureComplete()

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.TotalPackets)
	assert.Equal(t, uint64(400), snap.TotalBytes)
	assert.InDelta(t, 200.0, snap.AvgPacketSize, 1e-9)
	assert.False(t, snap.StartTime.IsZero())
	assert.False(t, snap.EndTime.IsZero())
}
