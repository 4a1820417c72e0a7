//go:build rp2040 || rp2350

package main

import (
	"machine"
	"os"
	"time"

	"alds-go/services/transmit"
	"alds-go/txq"
	"alds-go/types"

	"github.com/jangala-dev/tinygo-uartx/uartx"
)

const (
	deviceID    = "pico"
	bannerQueue = "uart0"
	bootDelay   = 2 * time.Second
)

var console = os.Stdout

// sinkFactory maps board sink names to peripherals. Anything else falls back
// to the loopback sinks.
func sinkFactory(spec types.TxqSpec) (txq.Sink, error) {
	switch spec.Sink {
	case "uart0", "uart1":
		u := uartx.UART0
		tx, rx := machine.UART0_TX_PIN, machine.UART0_RX_PIN
		if spec.Sink == "uart1" {
			u = uartx.UART1
			tx, rx = machine.UART1_TX_PIN, machine.UART1_RX_PIN
		}
		baud := uint32(spec.Baud)
		if baud == 0 {
			baud = 115200
		}
		if err := u.Configure(uartx.UARTConfig{BaudRate: baud, TX: tx, RX: rx}); err != nil {
			return nil, err
		}
		return txq.NewUARTXSink(u), nil
	case "spi0":
		if err := machine.SPI0.Configure(machine.SPIConfig{Frequency: 1_000_000}); err != nil {
			return nil, err
		}
		return txq.NewSPISink(machine.SPI0, spec.Depth), nil
	case "i2c0":
		if err := machine.I2C0.Configure(machine.I2CConfig{Frequency: 400 * machine.KHz}); err != nil {
			return nil, err
		}
		return txq.NewI2CSink(machine.I2C0, spec.Addr, spec.Depth), nil
	}
	return transmit.LoopbackSinks(spec)
}
