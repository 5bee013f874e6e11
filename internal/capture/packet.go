package capture

import (
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// RawPacket is one captured frame. It is immutable once constructed and
// safe to share across goroutines without synchronization.
type RawPacket struct {
	// Length is the original frame length on the wire. It may exceed
	// len(Payload) when the frame was truncated by the snap length.
	Length int

	// Payload holds the captured bytes, at most Length of them.
	Payload []byte

	// Timestamp is the capture-time instant reported by the device.
	// Relative ordering follows arrival order, not wall-clock precision.
	Timestamp time.Time

	// LinkType is the link-layer type the device reported for this frame.
	LinkType layers.LinkType
}

// NewRawPacket builds a RawPacket from a device read. The data buffer is
// copied because capture implementations reuse it between reads.
func NewRawPacket(data []byte, ci gopacket.CaptureInfo, linkType layers.LinkType) RawPacket {
	payload := make([]byte, len(data))
	copy(payload, data)
	return RawPacket{
		Length:    ci.Length,
		Payload:   payload,
		Timestamp: ci.Timestamp,
		LinkType:  linkType,
	}
}
