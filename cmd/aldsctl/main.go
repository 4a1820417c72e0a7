//go:build !rp2040 && !rp2350

// Command aldsctl drives the interrupt table and transmit queues from a host:
// scripted simulation, streaming over a serial port and port discovery.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "aldsctl",
	Short:         "Interrupt table and transmit queue tool",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(simCmd, sendCmd, portsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		println("Error:", err.Error())
		os.Exit(1)
	}
}
