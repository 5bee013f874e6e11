// Package device provides capture.Device implementations over libpcap
// and Linux AF_PACKET, plus interface enumeration.
package device

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/exp1azy/ether-net/internal/capture"
)

// Pcap is a libpcap-backed capture device for a network interface.
type Pcap struct {
	name   string
	handle *pcap.Handle
}

var _ capture.Device = (*Pcap)(nil)

// NewPcap returns an unopened pcap device for the named interface.
func NewPcap(name string) *Pcap {
	return &Pcap{name: name}
}

func (d *Pcap) Name() string { return d.name }

// Open activates a live handle. The timeout bounds a single blocking
// read so the capture loop can poll its stop signal.
func (d *Pcap) Open(promiscuous bool, timeout time.Duration, snapLen int) error {
	inactive, err := pcap.NewInactiveHandle(d.name)
	if err != nil {
		return fmt.Errorf("create handle for %s: %w", d.name, err)
	}
	defer inactive.CleanUp()

	if err := inactive.SetSnapLen(snapLen); err != nil {
		return fmt.Errorf("set snap length: %w", err)
	}
	if err := inactive.SetPromisc(promiscuous); err != nil {
		return fmt.Errorf("set promiscuous mode: %w", err)
	}
	if err := inactive.SetTimeout(timeout); err != nil {
		return fmt.Errorf("set read timeout: %w", err)
	}

	handle, err := inactive.Activate()
	if err != nil {
		return fmt.Errorf("activate %s: %w", d.name, err)
	}
	d.handle = handle
	return nil
}

func (d *Pcap) SetFilter(expr string) error {
	return d.handle.SetBPFFilter(expr)
}

func (d *Pcap) LinkType() layers.LinkType {
	if d.handle == nil {
		return layers.LinkTypeEthernet
	}
	return d.handle.LinkType()
}

func (d *Pcap) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	data, ci, err := d.handle.ReadPacketData()
	if errors.Is(err, pcap.NextErrorTimeoutExpired) {
		return nil, ci, capture.ErrReadTimeout
	}
	return data, ci, err
}

func (d *Pcap) Stats() (capture.DeviceStats, error) {
	if d.handle == nil {
		return capture.DeviceStats{}, errors.New("device not open")
	}
	st, err := d.handle.Stats()
	if err != nil {
		return capture.DeviceStats{}, err
	}
	return capture.DeviceStats{
		Dropped:   uint64(st.PacketsDropped),
		IfDropped: uint64(st.PacketsIfDropped),
	}, nil
}

func (d *Pcap) Close() error {
	if d.handle != nil {
		d.handle.Close()
		d.handle = nil
	}
	return nil
}

// PcapFile replays a capture file as a device. Reads return io.EOF at
// end of file, which the session treats as clean loop completion.
type PcapFile struct {
	path   string
	handle *pcap.Handle
}

var _ capture.Device = (*PcapFile)(nil)

// NewPcapFile returns an unopened offline device for the given pcap file.
func NewPcapFile(path string) *PcapFile {
	return &PcapFile{path: path}
}

func (d *PcapFile) Name() string { return d.path }

// Open opens the file; promiscuous mode, timeout and snap length do not
// apply to offline reads.
func (d *PcapFile) Open(_ bool, _ time.Duration, _ int) error {
	handle, err := pcap.OpenOffline(d.path)
	if err != nil {
		return fmt.Errorf("open pcap file %s: %w", d.path, err)
	}
	d.handle = handle
	return nil
}

func (d *PcapFile) SetFilter(expr string) error {
	return d.handle.SetBPFFilter(expr)
}

func (d *PcapFile) LinkType() layers.LinkType {
	if d.handle == nil {
		return layers.LinkTypeEthernet
	}
	return d.handle.LinkType()
}

func (d *PcapFile) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	return d.handle.ReadPacketData()
}

// Stats always reports zero drops; files do not drop.
func (d *PcapFile) Stats() (capture.DeviceStats, error) {
	return capture.DeviceStats{}, nil
}

func (d *PcapFile) Close() error {
	if d.handle != nil {
		d.handle.Close()
		d.handle = nil
	}
	return nil
}
