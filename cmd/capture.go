package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/exp1azy/ether-net/internal/capture"
	"github.com/exp1azy/ether-net/internal/decode"
	"github.com/exp1azy/ether-net/internal/device"
	"github.com/exp1azy/ether-net/internal/telemetry"
)

var (
	captureInterface string
	captureFilter    string
	captureType      string
	captureQuiet     bool
	captureCount     uint64
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture packets from an interface and print a live stream",
	Long: `Capture binds a device, starts a capture session, and prints one
summary line per packet until interrupted (Ctrl-C) or --count packets
have been seen. A statistics summary is printed on exit.`,
	RunE: runCapture,
}

func init() {
	captureCmd.Flags().StringVarP(&captureInterface, "interface", "i", "",
		"interface to capture on (or pcap file path with --type file)")
	captureCmd.Flags().StringVarP(&captureFilter, "filter", "f", "",
		"BPF filter expression (overrides configured filter)")
	captureCmd.Flags().StringVar(&captureType, "type", "",
		"capture backend: pcap, afpacket or file (overrides configured type)")
	captureCmd.Flags().BoolVarP(&captureQuiet, "quiet", "q", false,
		"suppress per-packet output, print only the final summary")
	captureCmd.Flags().Uint64VarP(&captureCount, "count", "n", 0,
		"stop after this many packets (0 = until interrupted)")
}

func runCapture(cmd *cobra.Command, args []string) error {
	if captureInterface != "" {
		cfg.Capture.Device = captureInterface
	}
	if captureFilter != "" {
		cfg.Capture.Filter = captureFilter
	}
	if captureType != "" {
		cfg.Capture.Type = captureType
	}
	if cfg.Capture.Device == "" {
		return fmt.Errorf("no capture device: pass --interface or set capture.device")
	}

	dev, err := buildDevice()
	if err != nil {
		return err
	}

	session := capture.New(cfg.Capture.SessionConfig())
	if err := session.SetDevice(dev); err != nil {
		return err
	}
	if err := session.Start(); err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		collector := telemetry.NewCollector(cfg.Capture.Device, session.Snapshot)
		server, err := telemetry.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path, collector)
		if err != nil {
			return err
		}
		server.Start()
		defer server.Stop(cmd.Context())
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var seen uint64
	for pkt := range session.Packets(ctx) {
		if !captureQuiet {
			fmt.Println(decode.Summarize(pkt))
		}
		seen++
		if captureCount > 0 && seen >= captureCount {
			break
		}
	}

	if err := session.Stop(); err != nil {
		return err
	}
	printSummary(session.Snapshot())
	return nil
}

func buildDevice() (capture.Device, error) {
	switch cfg.Capture.Type {
	case "pcap":
		return device.NewPcap(cfg.Capture.Device), nil
	case "afpacket":
		dev := device.NewAFPacket(cfg.Capture.Device)
		dev.BufferSizeMB = cfg.Capture.BufferSizeMB
		return dev, nil
	case "file":
		return device.NewPcapFile(cfg.Capture.Device), nil
	default:
		return nil, fmt.Errorf("unknown capture type %q", cfg.Capture.Type)
	}
}

func printSummary(snap capture.Snapshot) {
	fmt.Println()
	fmt.Printf("%d packets captured, %d bytes in %s\n",
		snap.TotalPackets, snap.TotalBytes, snap.Duration.Round(time.Millisecond))
	fmt.Printf("average: %.1f pkt/s, %.1f B/s, %.1f B/pkt, %s between packets\n",
		snap.AvgPacketsPerSecond, snap.AvgBytesPerSecond, snap.AvgPacketSize,
		snap.AvgInterPacketTime.Round(time.Microsecond))
	fmt.Printf("peak: %d pkt/s, %d B/s\n",
		snap.MaxPacketsPerSecond, snap.MaxBytesPerSecond)
	if snap.Dropped > 0 || snap.IfDropped > 0 {
		fmt.Printf("dropped: %d by kernel, %d by interface\n", snap.Dropped, snap.IfDropped)
	}
	if len(snap.Errors) > 0 {
		fmt.Printf("%d capture errors, most recent: %v\n",
			len(snap.Errors), snap.Errors[len(snap.Errors)-1].Err)
	}
}
