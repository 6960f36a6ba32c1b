// Command usbsniff simulates the capture pipeline of a USB protocol analyzer
// and writes the packets the host receives to pcap and SQLite files.
package main

import (
	"os"

	"github.com/tebeka/atexit"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
