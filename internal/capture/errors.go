package capture

import "errors"

var (
	// ErrDeviceBound is returned by SetDevice when the session already has
	// a bound device. Call TryRemoveDevice first.
	ErrDeviceBound = errors.New("capture: a device is already bound to this session")

	// ErrNoDevice is returned by Start when no device has been bound.
	ErrNoDevice = errors.New("capture: no device bound to this session")

	// ErrReadTimeout is the normalized read-timeout error. Device
	// implementations return it from ReadPacketData when a poll timeout
	// expires with no frame; the capture loop treats it as a retry signal.
	ErrReadTimeout = errors.New("capture: read timeout")

	// ErrFinalized is the terminal result of a drained queue that was
	// closed cleanly.
	ErrFinalized = errors.New("capture: queue finalized")
)
