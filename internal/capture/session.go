// Package capture implements the live capture session pipeline: the
// lifecycle state machine around a bound capture device, the hand-off
// queue that turns the blocking capture loop into a consumable ordered
// stream, and the lock-free metrics aggregator updated on every frame.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Config is the capture surface a session consumes.
type Config struct {
	// Filter is a BPF filter expression applied at Start; empty means
	// capture everything.
	Filter string

	// Promiscuous puts the device into promiscuous mode. The stock
	// default of true comes from DefaultConfig and the config layer; a
	// zero Config means non-promiscuous.
	Promiscuous bool

	// ReadTimeout bounds a single blocking read; it also bounds how long
	// Stop waits for the capture loop to notice the stop signal.
	ReadTimeout time.Duration

	// SnapLen caps the number of bytes captured per frame.
	SnapLen int
}

// DefaultConfig returns the stock capture configuration.
func DefaultConfig() Config {
	return Config{
		Promiscuous: true,
		ReadTimeout: time.Second,
		SnapLen:     65535,
	}
}

// Session owns one capture device and runs Start/Stop cycles over it.
// Each cycle gets a fresh queue and a fresh metrics aggregator; counters
// never carry over between sessions.
//
// States: Unbound (no device) → Bound (device set) → Capturing (Start
// succeeded) → Bound again on Stop. Unbound is reachable again through
// TryRemoveDevice.
type Session struct {
	cfg Config

	mu      sync.Mutex
	dev     Device
	started bool
	queue   *queue
	metrics *Metrics
	stop    chan struct{}
	wg      sync.WaitGroup
}

// New creates a session with the given configuration. Zero-valued
// ReadTimeout and SnapLen fall back to the defaults.
func New(cfg Config) *Session {
	def := DefaultConfig()
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.SnapLen <= 0 {
		cfg.SnapLen = def.SnapLen
	}
	return &Session{
		cfg: cfg,
		// Metrics is non-nil from birth so reads before the first Start
		// observe an empty, zero-valued aggregator.
		metrics: NewMetrics(),
	}
}

// SetDevice binds a device to the session and returns ErrDeviceBound if
// one is already bound; detach with TryRemoveDevice first.
func (s *Session) SetDevice(dev Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev != nil {
		return ErrDeviceBound
	}
	s.dev = dev
	return nil
}

// TryRemoveDevice unbinds the device. It refuses (returns false) while a
// capture is running; otherwise it clears the binding and returns true,
// idempotently so when no device is bound.
func (s *Session) TryRemoveDevice() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return false
	}
	s.dev = nil
	return true
}

// Start opens the bound device, applies the configured filter, creates a
// fresh metrics aggregator and hand-off queue, and launches the capture
// loop. A second Start while capturing is a no-op. Open and filter
// failures propagate to the caller and leave the session not started,
// with the device closed again.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.dev == nil {
		return ErrNoDevice
	}

	if err := s.dev.Open(s.cfg.Promiscuous, s.cfg.ReadTimeout, s.cfg.SnapLen); err != nil {
		return fmt.Errorf("open device %s: %w", s.dev.Name(), err)
	}
	if s.cfg.Filter != "" {
		if err := s.dev.SetFilter(s.cfg.Filter); err != nil {
			s.dev.Close()
			return fmt.Errorf("apply filter %q: %w", s.cfg.Filter, err)
		}
	}

	s.metrics = NewMetrics()
	s.metrics.OnCaptureStarted()
	s.queue = newQueue()
	s.stop = make(chan struct{})
	s.started = true

	s.wg.Add(1)
	go s.run(s.dev, s.queue, s.metrics, s.stop)

	slog.Info("capture started",
		"device", s.dev.Name(),
		"filter", s.cfg.Filter,
		"promiscuous", s.cfg.Promiscuous,
		"snap_len", s.cfg.SnapLen)
	return nil
}

// Stop ends the running capture: it signals the capture loop, waits for
// it to exit, closes the device, finalizes the queue so a draining
// consumer observes completion, and freezes the metrics end timestamp.
// Stopping a session that is not capturing is a no-op.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	close(s.stop)
	// The loop notices the signal within one read timeout; the device
	// must not be closed underneath a blocked read.
	s.wg.Wait()

	err := s.dev.Close()
	s.queue.Close(nil)
	s.metrics.OnCaptureComplete()
	s.started = false

	slog.Info("capture stopped",
		"device", s.dev.Name(),
		"packets", s.metrics.TotalPackets(),
		"bytes", s.metrics.TotalBytes())

	if err != nil {
		return fmt.Errorf("close device %s: %w", s.dev.Name(), err)
	}
	return nil
}

// Packets returns the session's packet stream as a lazy, single-consumer
// channel over the current queue. The channel yields buffered packets in
// arrival order, blocks while the queue is empty, and closes once the
// queue is finalized and drained or ctx is cancelled. A fatal capture
// loop failure also closes the stream; inspect Metrics().Errors() to
// distinguish it from a clean stop.
//
// Each call restarts consumption from the queue's current position.
// Running two consumers concurrently is a misuse: packets are handed to
// whichever consumer pops first, with no duplication. Iterating does not
// itself start or stop the capture.
func (s *Session) Packets(ctx context.Context) <-chan RawPacket {
	s.mu.Lock()
	q := s.queue
	s.mu.Unlock()

	out := make(chan RawPacket)
	if q == nil {
		// Never started: complete immediately.
		close(out)
		return out
	}

	go func() {
		defer close(out)
		for {
			batch, err := q.PopAll(ctx)
			if err != nil {
				return
			}
			for _, pkt := range batch {
				select {
				case out <- pkt:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Metrics returns the current aggregator: a zero-valued one before the
// first Start, the live one while capturing, and the most recent
// session's afterwards. The returned value is safe for concurrent reads.
func (s *Session) Metrics() *Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

// Snapshot combines the aggregator's derived statistics with the bound
// device's drop counters, queried at read time. A failing or absent
// device degrades the drop counts to zero.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	m, dev := s.metrics, s.dev
	s.mu.Unlock()

	snap := m.Snapshot()
	if dev != nil {
		if st, err := dev.Stats(); err == nil {
			snap.Dropped = st.Dropped
			snap.IfDropped = st.IfDropped
		}
	}
	return snap
}

// run is the capture loop. It drives the device's blocking read on a
// dedicated goroutine, converts each frame into a RawPacket, pushes it
// into the queue and updates metrics. A single bad frame never ends the
// loop; a fatal device error finalizes the queue with that error so a
// suspended consumer resumes instead of hanging.
func (s *Session) run(dev Device, q *queue, m *Metrics, stop <-chan struct{}) {
	defer s.wg.Done()

	for {
		select {
		case <-stop:
			return
		default:
		}

		data, ci, err := dev.ReadPacketData()
		switch {
		case err == nil:
		case errors.Is(err, ErrReadTimeout):
			continue
		case errors.Is(err, io.EOF):
			// Source exhausted: let the consumer drain and complete.
			q.Close(nil)
			return
		default:
			select {
			case <-stop:
				// Read failures racing Stop are expected, not fatal.
				return
			default:
			}
			loopErr := fmt.Errorf("capture loop on %s: %w", dev.Name(), err)
			slog.Error("capture loop failed", "device", dev.Name(), "error", err)
			m.OnError(loopErr)
			q.Close(loopErr)
			return
		}

		pkt := NewRawPacket(data, ci, dev.LinkType())
		if !q.Push(pkt) {
			// Queue finalized underneath us; the session is stopping.
			return
		}
		m.OnPacketCaptured(pkt.Length)
	}
}
