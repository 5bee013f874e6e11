package capture

import (
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// DeviceStats are the device-level drop counters queried at read time.
type DeviceStats struct {
	// Dropped counts packets dropped by the capture mechanism because
	// the ring or kernel buffer was full.
	Dropped uint64

	// IfDropped counts packets dropped by the network interface itself.
	IfDropped uint64
}

// Device is the capture handle a session binds to. Implementations live
// in internal/device; tests use in-memory fakes.
//
// The device is exclusively owned by its session: only the capture loop
// and Start/Stop touch it. ReadPacketData is the blocking read driven by
// the session's capture loop; implementations must return ErrReadTimeout
// (possibly wrapped) when a poll timeout expires with no frame, and
// io.EOF when the packet source is exhausted or has been closed.
type Device interface {
	// Name identifies the device (interface name, file path, ...).
	Name() string

	// Open activates the handle with the given promiscuous mode, read
	// timeout and snap length.
	Open(promiscuous bool, timeout time.Duration, snapLen int) error

	// SetFilter applies a BPF filter expression to the open handle.
	SetFilter(expr string) error

	// LinkType reports the link-layer type of frames this device yields.
	LinkType() layers.LinkType

	// ReadPacketData returns the next frame. The returned buffer may be
	// reused by the next call; callers must copy what they keep.
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)

	// Stats queries the device's drop counters. Callers degrade to zero
	// on error rather than propagating it.
	Stats() (DeviceStats, error)

	// Close releases the handle. Safe to call on a never-opened device.
	Close() error
}
