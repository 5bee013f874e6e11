package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/exp1azy/ether-net/internal/device"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List capture-capable network interfaces",
	Run: func(cmd *cobra.Command, args []string) {
		ifcs, err := device.Interfaces()
		if err != nil {
			exitWithError("listing devices", err)
		}
		if len(ifcs) == 0 {
			fmt.Println("no capture devices found (missing privileges?)")
			return
		}
		for _, ifc := range ifcs {
			line := ifc.Name
			if ifc.Description != "" {
				line += "  (" + ifc.Description + ")"
			}
			if len(ifc.Addresses) > 0 {
				line += "  [" + strings.Join(ifc.Addresses, ", ") + "]"
			}
			fmt.Println(line)
		}
	},
}
