// Package main is the entry point for the ether-net capture tool.
package main

import (
	"fmt"
	"os"

	"github.com/exp1azy/ether-net/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
