package device

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/afpacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"golang.org/x/net/bpf"

	"github.com/exp1azy/ether-net/internal/capture"
)

// AFPacket is a Linux AF_PACKET (TPACKET_V3) capture device. Compared to
// libpcap it avoids a copy per frame by memory-mapping the ring buffer.
type AFPacket struct {
	name   string
	handle *afpacket.TPacket

	// BufferSizeMB is the target ring buffer budget. Zero means 8 MB.
	BufferSizeMB int

	snapLen int
}

var _ capture.Device = (*AFPacket)(nil)

// NewAFPacket returns an unopened AF_PACKET device for the named
// interface.
func NewAFPacket(name string) *AFPacket {
	return &AFPacket{name: name}
}

func (d *AFPacket) Name() string { return d.name }

// Open maps the TPACKET_V3 ring. AF_PACKET raw sockets receive all
// traffic on the interface, so the promiscuous flag is accepted but has
// no additional effect.
func (d *AFPacket) Open(_ bool, timeout time.Duration, snapLen int) error {
	budget := d.BufferSizeMB
	if budget <= 0 {
		budget = 8
	}
	frameSize, blockSize, numBlocks, err := ringGeometry(budget, snapLen, os.Getpagesize())
	if err != nil {
		return fmt.Errorf("compute ring geometry: %w", err)
	}

	handle, err := afpacket.NewTPacket(
		afpacket.OptInterface(d.name),
		afpacket.OptFrameSize(frameSize),
		afpacket.OptBlockSize(blockSize),
		afpacket.OptNumBlocks(numBlocks),
		afpacket.OptPollTimeout(timeout),
		afpacket.SocketRaw,
		afpacket.TPacketVersion3,
	)
	if err != nil {
		return fmt.Errorf("open af_packet on %s: %w", d.name, err)
	}
	if err := handle.InitSocketStats(); err != nil {
		handle.Close()
		return fmt.Errorf("init socket stats: %w", err)
	}
	d.handle = handle
	d.snapLen = snapLen
	return nil
}

// SetFilter compiles the expression with libpcap and installs the raw
// instructions on the socket.
func (d *AFPacket) SetFilter(expr string) error {
	insns, err := pcap.CompileBPFFilter(layers.LinkTypeEthernet, d.snapLen, expr)
	if err != nil {
		return fmt.Errorf("compile filter %q: %w", expr, err)
	}
	raw := make([]bpf.RawInstruction, len(insns))
	for i, in := range insns {
		raw[i] = bpf.RawInstruction{Op: in.Code, Jt: in.Jt, Jf: in.Jf, K: in.K}
	}
	return d.handle.SetBPF(raw)
}

func (d *AFPacket) LinkType() layers.LinkType { return layers.LinkTypeEthernet }

func (d *AFPacket) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	data, ci, err := d.handle.ReadPacketData()
	if errors.Is(err, afpacket.ErrTimeout) {
		return nil, ci, capture.ErrReadTimeout
	}
	return data, ci, err
}

func (d *AFPacket) Stats() (capture.DeviceStats, error) {
	if d.handle == nil {
		return capture.DeviceStats{}, errors.New("device not open")
	}
	_, v3, err := d.handle.SocketStats()
	if err != nil {
		return capture.DeviceStats{}, err
	}
	return capture.DeviceStats{Dropped: uint64(v3.Drops())}, nil
}

func (d *AFPacket) Close() error {
	if d.handle != nil {
		d.handle.Close()
		d.handle = nil
	}
	return nil
}

// ringGeometry derives TPACKET_V3 frame/block/count values from a memory
// budget in megabytes. PACKET_MMAP requires the frame size aligned to
// TPACKET_ALIGNMENT, the block size an exact multiple of both the page
// size and the frame size, and block*count near the budget.
func ringGeometry(budgetMB, snapLen, pageSize int) (frameSize, blockSize, numBlocks int, err error) {
	const tpacketAlignment = 16
	const tpacketHdrLen = 52

	if budgetMB <= 0 {
		return 0, 0, 0, fmt.Errorf("buffer budget must be positive, got %d MB", budgetMB)
	}
	if snapLen <= 0 {
		return 0, 0, 0, fmt.Errorf("snap length must be positive, got %d", snapLen)
	}
	if pageSize <= 0 || pageSize%tpacketAlignment != 0 {
		return 0, 0, 0, fmt.Errorf("page size must be a positive multiple of %d, got %d", tpacketAlignment, pageSize)
	}

	frameSize = align(tpacketHdrLen+snapLen, tpacketAlignment)
	if frameSize >= pageSize {
		// A frame spanning whole pages keeps every multiple of it both
		// page- and frame-aligned.
		frameSize = align(frameSize, pageSize)
	}

	// Smallest block that is a whole number of both pages and frames.
	blockSize = lcm(pageSize, frameSize)
	const maxBlockSize = 4 * 1024 * 1024
	if blockSize > maxBlockSize {
		// Packing fractional frames per page would need an oversized
		// block; pad the frame to whole pages instead.
		frameSize = align(frameSize, pageSize)
		blockSize = frameSize
	}
	budgetBytes := budgetMB * 1024 * 1024
	if n := min(maxBlockSize, budgetBytes) / blockSize; n > 1 {
		blockSize *= n
	}

	numBlocks = budgetBytes / blockSize
	if numBlocks < 1 {
		numBlocks = 1
	}
	return frameSize, blockSize, numBlocks, nil
}

func align(n, to int) int {
	return (n + to - 1) / to * to
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	return a / gcd(a, b) * b
}
