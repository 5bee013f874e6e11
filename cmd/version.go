package cmd

import (
	"fmt"

	"github.com/google/gopacket/pcap"
	"github.com/spf13/cobra"
)

// versionCmd prints the build version and the libpcap it links against.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ether-net %s\n", rootCmd.Version)
		fmt.Println(pcap.Version())
	},
}
