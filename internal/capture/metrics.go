package capture

import (
	"sync"
	"sync/atomic"
	"time"
)

// noPreviousPacket is the lastPacketTick sentinel before the first frame.
const noPreviousPacket = int64(-1)

// CaptureError is one recorded capture-time failure.
type CaptureError struct {
	Time time.Time
	Err  error
}

// Metrics aggregates running and windowed throughput statistics for one
// capture session. The write side (OnPacketCaptured, OnError) is driven by
// the capture loop; the read side may be called from any goroutine at any
// time, including mid-update. Every counter is individually atomic, but
// cross-field consistency is not guaranteed: a reader racing an update may
// see totalPackets already incremented while totalBytes is not.
type Metrics struct {
	// epoch anchors the monotonic tick clock; set by OnCaptureStarted.
	epoch time.Time

	// now returns elapsed ticks since epoch. Overridable in tests.
	now func() time.Duration

	startTime atomic.Int64 // unix nanos, 0 = not started
	endTime   atomic.Int64 // unix nanos, 0 = still running

	totalPackets atomic.Uint64
	totalBytes   atomic.Uint64

	// Inter-packet timing: lastPacketTick is swapped on every frame and
	// the delta to the prior frame accumulates in interPacketNanos.
	interPacketNanos atomic.Int64
	lastPacketTick   atomic.Int64

	// Current one-second window. The accumulators reset to zero every
	// time the window boundary is crossed; everything else in this struct
	// is monotonically non-decreasing within a session.
	windowPackets atomic.Uint64
	windowBytes   atomic.Uint64
	windowStart   atomic.Int64 // tick nanos

	maxPacketsPerSec atomic.Uint64
	maxBytesPerSec   atomic.Uint64

	errMu sync.Mutex
	errs  []CaptureError
}

// NewMetrics returns a zero-valued aggregator. Counters stay at zero and
// derived statistics report zero until OnCaptureStarted is called.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.now = func() time.Duration { return time.Since(m.epoch) }
	m.lastPacketTick.Store(noPreviousPacket)
	return m
}

// OnCaptureStarted resets every counter, clears the error list, records
// the session start time and restarts the tick clock. Called exactly once
// per session start.
func (m *Metrics) OnCaptureStarted() {
	m.epoch = time.Now()
	m.startTime.Store(m.epoch.UnixNano())
	m.endTime.Store(0)
	m.totalPackets.Store(0)
	m.totalBytes.Store(0)
	m.interPacketNanos.Store(0)
	m.lastPacketTick.Store(noPreviousPacket)
	m.windowPackets.Store(0)
	m.windowBytes.Store(0)
	m.windowStart.Store(0)
	m.maxPacketsPerSec.Store(0)
	m.maxBytesPerSec.Store(0)

	m.errMu.Lock()
	m.errs = nil
	m.errMu.Unlock()
}

// OnCaptureComplete freezes the session: records the end-of-session
// timestamp used by duration-derived statistics. Called exactly once per
// session stop.
func (m *Metrics) OnCaptureComplete() {
	m.endTime.Store(time.Now().UnixNano())
}

// OnPacketCaptured accounts one captured frame of the given wire length.
// It is lock-free and never blocks the capture path.
func (m *Metrics) OnPacketCaptured(length int) {
	now := int64(m.now())

	m.totalPackets.Add(1)
	m.totalBytes.Add(uint64(length))

	// Inter-packet gap: swap in our tick, accumulate the delta to the
	// previous frame unless we are the first.
	if prev := m.lastPacketTick.Swap(now); prev != noPreviousPacket {
		m.interPacketNanos.Add(now - prev)
	}

	m.windowPackets.Add(1)
	m.windowBytes.Add(uint64(length))

	// Window close. Only the CAS winner exchanges the accumulators out,
	// so back-to-back closes from racing frames each account a distinct
	// completed window. Idle seconds simply advance the boundary: window
	// boundaries move strictly by elapsed ticks, and a zero-packet window
	// can never displace a positive maximum.
	ws := m.windowStart.Load()
	if now-ws >= int64(time.Second) && m.windowStart.CompareAndSwap(ws, now) {
		packets := m.windowPackets.Swap(0)
		bytes := m.windowBytes.Swap(0)
		storeMax(&m.maxPacketsPerSec, packets)
		storeMax(&m.maxBytesPerSec, bytes)
	}
}

// OnError appends one capture-time failure to the error list. Safe to
// call concurrently with readers iterating a snapshot.
func (m *Metrics) OnError(err error) {
	m.errMu.Lock()
	m.errs = append(m.errs, CaptureError{Time: time.Now(), Err: err})
	m.errMu.Unlock()
}

// storeMax installs val as the new maximum unless a concurrently
// installed maximum is already at least as large. Compare-and-retry on a
// single shared integer; no mutex on the hot path.
func storeMax(max *atomic.Uint64, val uint64) {
	for {
		cur := max.Load()
		if val <= cur {
			return
		}
		if max.CompareAndSwap(cur, val) {
			return
		}
	}
}

// ─── Read side ───

// TotalPackets reports the number of frames accounted so far.
func (m *Metrics) TotalPackets() uint64 { return m.totalPackets.Load() }

// TotalBytes reports the sum of wire lengths accounted so far.
func (m *Metrics) TotalBytes() uint64 { return m.totalBytes.Load() }

// StartTime reports the session start instant; zero if never started.
func (m *Metrics) StartTime() time.Time { return nanosToTime(m.startTime.Load()) }

// EndTime reports the session end instant; zero while running.
func (m *Metrics) EndTime() time.Time { return nanosToTime(m.endTime.Load()) }

// Duration reports end−start for a finished session, now−start for a
// running one, and zero for a never-started aggregator.
func (m *Metrics) Duration() time.Duration {
	start := m.startTime.Load()
	if start == 0 {
		return 0
	}
	if end := m.endTime.Load(); end != 0 {
		return time.Duration(end - start)
	}
	return time.Since(time.Unix(0, start))
}

// AvgPacketsPerSecond reports totalPackets over the session duration, 0
// when the duration is not positive.
func (m *Metrics) AvgPacketsPerSecond() float64 {
	if secs := m.Duration().Seconds(); secs > 0 {
		return float64(m.totalPackets.Load()) / secs
	}
	return 0
}

// AvgBytesPerSecond reports totalBytes over the session duration, 0 when
// the duration is not positive.
func (m *Metrics) AvgBytesPerSecond() float64 {
	if secs := m.Duration().Seconds(); secs > 0 {
		return float64(m.totalBytes.Load()) / secs
	}
	return 0
}

// AvgPacketSize reports totalBytes/totalPackets, 0 with no packets.
func (m *Metrics) AvgPacketSize() float64 {
	packets := m.totalPackets.Load()
	if packets == 0 {
		return 0
	}
	return float64(m.totalBytes.Load()) / float64(packets)
}

// AvgInterPacketTime reports the mean gap between consecutive frames:
// the cumulative gap accumulator over (totalPackets − 1). Zero with fewer
// than two packets.
func (m *Metrics) AvgInterPacketTime() time.Duration {
	packets := m.totalPackets.Load()
	if packets <= 1 {
		return 0
	}
	return time.Duration(m.interPacketNanos.Load() / int64(packets-1))
}

// MaxPacketsPerSecond reports the highest packet count observed in any
// completed one-second window.
func (m *Metrics) MaxPacketsPerSecond() uint64 { return m.maxPacketsPerSec.Load() }

// MaxBytesPerSecond reports the highest byte count observed in any
// completed one-second window.
func (m *Metrics) MaxBytesPerSecond() uint64 { return m.maxBytesPerSec.Load() }

// Errors returns a copy of the recorded capture-time failures in
// append order.
func (m *Metrics) Errors() []CaptureError {
	m.errMu.Lock()
	defer m.errMu.Unlock()
	out := make([]CaptureError, len(m.errs))
	copy(out, m.errs)
	return out
}

// Snapshot is a point-in-time view of the derived statistics, suitable
// for exposition. Dropped and IfDropped come from the bound device and
// are filled in by the session, not the aggregator.
type Snapshot struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	TotalPackets uint64
	TotalBytes   uint64

	AvgPacketsPerSecond float64
	AvgBytesPerSecond   float64
	AvgPacketSize       float64
	AvgInterPacketTime  time.Duration

	MaxPacketsPerSecond uint64
	MaxBytesPerSecond   uint64

	Dropped   uint64
	IfDropped uint64

	Errors []CaptureError
}

// Snapshot captures the aggregator's current derived statistics. Fields
// are read individually-atomically; see the type comment on Metrics for
// the cross-field consistency caveat.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		StartTime:           m.StartTime(),
		EndTime:             m.EndTime(),
		Duration:            m.Duration(),
		TotalPackets:        m.TotalPackets(),
		TotalBytes:          m.TotalBytes(),
		AvgPacketsPerSecond: m.AvgPacketsPerSecond(),
		AvgBytesPerSecond:   m.AvgBytesPerSecond(),
		AvgPacketSize:       m.AvgPacketSize(),
		AvgInterPacketTime:  m.AvgInterPacketTime(),
		MaxPacketsPerSecond: m.MaxPacketsPerSecond(),
		MaxBytesPerSecond:   m.MaxBytesPerSecond(),
		Errors:              m.Errors(),
	}
}

func nanosToTime(nanos int64) time.Time {
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}
