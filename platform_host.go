//go:build !rp2040 && !rp2350

package main

import (
	"os"

	"alds-go/services/transmit"
	"alds-go/txq"
	"alds-go/types"
)

const (
	deviceID    = "sim"
	bannerQueue = "uart0"
	bootDelay   = 0
)

var console = os.Stdout

// sinkFactory adds host serial ports to the loopback sinks.
func sinkFactory(spec types.TxqSpec) (txq.Sink, error) {
	if spec.Sink == "serial" {
		baud := spec.Baud
		if baud == 0 {
			baud = 115200
		}
		s, err := txq.OpenSerial(spec.Port, baud, spec.Depth)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return transmit.LoopbackSinks(spec)
}
