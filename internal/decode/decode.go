// Package decode turns captured frames into inspectable gopacket values.
// It is pure post-processing over already-captured packets; the capture
// pipeline never depends on it.
package decode

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/exp1azy/ether-net/internal/capture"
)

// Packet decodes a captured frame with its reported link-layer type.
// Decoding is lazy; layers are parsed on first access.
func Packet(raw capture.RawPacket) gopacket.Packet {
	return gopacket.NewPacket(raw.Payload, raw.LinkType, gopacket.Lazy)
}

// HasLayer reports whether the frame contains the given layer.
func HasLayer(raw capture.RawPacket, lt gopacket.LayerType) bool {
	return Packet(raw).Layer(lt) != nil
}

// Summary is a one-line view of a decoded frame.
type Summary struct {
	Timestamp time.Time
	Length    int

	// Src and Dst are network endpoints ("10.0.0.1"), empty for frames
	// without a network layer.
	Src string
	Dst string

	// Protocol names the highest classified protocol (TCP, UDP, ICMPv4,
	// ARP, ...); falls back to the link type.
	Protocol string

	// SrcPort and DstPort are transport ports, 0 without a transport
	// layer.
	SrcPort uint16
	DstPort uint16

	// PayloadLen is the application payload length, 0 when absent.
	PayloadLen int
}

// Summarize extracts a Summary from one captured frame.
func Summarize(raw capture.RawPacket) Summary {
	pkt := Packet(raw)
	sum := Summary{
		Timestamp: raw.Timestamp,
		Length:    raw.Length,
		Protocol:  raw.LinkType.String(),
	}

	if net := pkt.NetworkLayer(); net != nil {
		flow := net.NetworkFlow()
		sum.Src = flow.Src().String()
		sum.Dst = flow.Dst().String()
		sum.Protocol = net.LayerType().String()
	} else if arp := pkt.Layer(layers.LayerTypeARP); arp != nil {
		sum.Protocol = "ARP"
	}

	switch t := pkt.TransportLayer().(type) {
	case *layers.TCP:
		sum.Protocol = "TCP"
		sum.SrcPort = uint16(t.SrcPort)
		sum.DstPort = uint16(t.DstPort)
	case *layers.UDP:
		sum.Protocol = "UDP"
		sum.SrcPort = uint16(t.SrcPort)
		sum.DstPort = uint16(t.DstPort)
	default:
		if icmp := pkt.Layer(layers.LayerTypeICMPv4); icmp != nil {
			sum.Protocol = "ICMPv4"
		} else if icmp := pkt.Layer(layers.LayerTypeICMPv6); icmp != nil {
			sum.Protocol = "ICMPv6"
		}
	}

	if app := pkt.ApplicationLayer(); app != nil {
		sum.PayloadLen = len(app.Payload())
	}
	return sum
}

// String renders the summary in a tcpdump-like single line.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", s.Timestamp.Format("15:04:05.000000"), s.Protocol)
	if s.Src != "" {
		if s.SrcPort != 0 || s.DstPort != 0 {
			fmt.Fprintf(&b, " %s:%d > %s:%d", s.Src, s.SrcPort, s.Dst, s.DstPort)
		} else {
			fmt.Fprintf(&b, " %s > %s", s.Src, s.Dst)
		}
	}
	fmt.Fprintf(&b, " length %d", s.Length)
	if s.PayloadLen > 0 {
		fmt.Fprintf(&b, " payload %d", s.PayloadLen)
	}
	return b.String()
}
