package device

import (
	"fmt"

	"github.com/google/gopacket/pcap"
)

// Interface describes one capturable network interface.
type Interface struct {
	Name        string
	Description string
	Addresses   []string
}

// Interfaces lists the capture devices visible to libpcap. It is a
// stateless one-shot query with no session coupling.
func Interfaces() ([]Interface, error) {
	devs, err := pcap.FindAllDevs()
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	out := make([]Interface, 0, len(devs))
	for _, dev := range devs {
		ifc := Interface{
			Name:        dev.Name,
			Description: dev.Description,
		}
		for _, addr := range dev.Addresses {
			if addr.IP != nil {
				ifc.Addresses = append(ifc.Addresses, addr.IP.String())
			}
		}
		out = append(out, ifc)
	}
	return out, nil
}
